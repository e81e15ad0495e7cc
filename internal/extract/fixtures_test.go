package extract

import (
	"strings"
	"testing"
)

func TestFindStructLiterals(t *testing.T) {
	content := `let a = Config {
    url: "x",
};
let b = Other { x: 1 };
let c = Config { nested: Inner { y: 2 } };
`
	matches := FindStructLiterals(content, "Config")
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Line != 1 {
		t.Errorf("first Line = %d", matches[0].Line)
	}
	if matches[1].Line != 5 {
		t.Errorf("second Line = %d", matches[1].Line)
	}
	// The nested literal's closing brace must balance correctly.
	inner := content[matches[1].Start:matches[1].End]
	if !strings.HasSuffix(inner, "Inner { y: 2 } }") {
		t.Errorf("second match span = %q", inner)
	}
}

func TestFindStructLiteralsNone(t *testing.T) {
	if m := FindStructLiterals("no literals here", "Config"); len(m) != 0 {
		t.Errorf("got %+v", m)
	}
}

func TestInsertFieldNeedsComma(t *testing.T) {
	content := "let a = Config {\n    url: \"x\"\n};\n"
	got, err := InsertFieldIntoStructLiterals(content, "Config", "verify: true")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	// The comma is inserted at the closing brace, after the original
	// line's newline.
	if !strings.Contains(got, "url: \"x\"\n,\n            verify: true\n}") {
		t.Errorf("got %q", got)
	}
}

func TestInsertFieldAfterTrailingComma(t *testing.T) {
	content := "let a = Config {\n    url: \"x\",\n};\n"
	got, err := InsertFieldIntoStructLiterals(content, "Config", "verify: true")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if strings.Contains(got, ",,") {
		t.Errorf("double comma: %q", got)
	}
	if !strings.Contains(got, "verify: true") {
		t.Errorf("field missing: %q", got)
	}
}

func TestInsertFieldEmptyLiteral(t *testing.T) {
	content := "let a = Config {};\n"
	got, err := InsertFieldIntoStructLiterals(content, "Config", "verify: true")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if strings.Contains(got, ",\n            verify") {
		t.Errorf("comma after open brace: %q", got)
	}
	if !strings.Contains(got, "verify: true") {
		t.Errorf("field missing: %q", got)
	}
}

func TestInsertFieldAllSites(t *testing.T) {
	content := "Config {\n    a: 1,\n}\nConfig {\n    b: 2,\n}\n"
	got, err := InsertFieldIntoStructLiterals(content, "Config", "c: 3")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if strings.Count(got, "c: 3") != 2 {
		t.Errorf("got %q", got)
	}
}

func TestInsertFieldNested(t *testing.T) {
	content := "Config {\n    inner: Inner { x: 1 },\n}\n"
	got, err := InsertFieldIntoStructLiterals(content, "Config", "y: 2")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Insertion must land before Config's closing brace, not Inner's.
	if !strings.Contains(got, "Inner { x: 1 },\n\n            y: 2\n}") {
		t.Errorf("got %q", got)
	}
}

func TestInsertFieldNoSites(t *testing.T) {
	_, err := InsertFieldIntoStructLiterals("nothing", "Config", "x: 1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Config") {
		t.Errorf("err = %v", err)
	}
}
