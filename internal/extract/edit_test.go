package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestParseEditsSingleFile(t *testing.T) {
	reply := `
FILE: src/main.rs
FIND:
fn old() {}
REPLACE:
fn new() {}
END
`
	parsed := ParseEdits(reply)
	if len(parsed.Edits) != 1 {
		t.Fatalf("got %d edits, want 1", len(parsed.Edits))
	}
	e := parsed.Edits[0]
	if e.File != "src/main.rs" || e.Find != "fn old() {}" || e.Replace != "fn new() {}" {
		t.Errorf("edit = %+v", e)
	}
}

func TestParseEditsMultipleFiles(t *testing.T) {
	reply := `
FILE: src/main.rs
FIND:
line1
REPLACE:
line1_new
END

FILE: src/lib.rs
FIND:
line2
REPLACE:
line2_new
END
`
	parsed := ParseEdits(reply)
	if len(parsed.Edits) != 2 {
		t.Fatalf("got %d edits", len(parsed.Edits))
	}
	if len(parsed.AffectedFiles) != 2 {
		t.Errorf("affected = %v", parsed.AffectedFiles)
	}
}

func TestParseEditsFileStaysInForce(t *testing.T) {
	reply := `
FILE: src/main.rs
FIND:
fn old1() {}
REPLACE:
fn new1() {}
END

FIND:
fn old2() {}
REPLACE:
fn new2() {}
END
`
	parsed := ParseEdits(reply)
	if len(parsed.Edits) != 2 {
		t.Fatalf("got %d edits", len(parsed.Edits))
	}
	if parsed.Edits[1].File != "src/main.rs" {
		t.Errorf("second edit file = %q", parsed.Edits[1].File)
	}
	if len(parsed.AffectedFiles) != 1 {
		t.Errorf("affected = %v", parsed.AffectedFiles)
	}
}

func TestParseEditsCaseInsensitive(t *testing.T) {
	reply := "file: src/main.rs\nfind:\nfn old() {}\nreplace:\nfn new() {}\nend\n"
	parsed := ParseEdits(reply)
	if len(parsed.Edits) != 1 || parsed.Edits[0].File != "src/main.rs" {
		t.Fatalf("edits = %+v", parsed.Edits)
	}
}

func TestParseEditsEmptyFindRejected(t *testing.T) {
	reply := "FILE: src/main.rs\nFIND:\nREPLACE:\nsomething\nEND\n"
	parsed := ParseEdits(reply)
	if len(parsed.Edits) != 0 {
		t.Fatalf("empty FIND should be dropped, got %+v", parsed.Edits)
	}
}

func TestParseEditsPreservesInternalWhitespace(t *testing.T) {
	reply := "FILE: a.go\nFIND:\n\tif x  >  1 {\n\t\treturn\n\t}\nREPLACE:\n\tif x > 2 {\n\t\treturn\n\t}\nEND\n"
	parsed := ParseEdits(reply)
	if len(parsed.Edits) != 1 {
		t.Fatalf("got %d edits", len(parsed.Edits))
	}
	if parsed.Edits[0].Find != "\tif x  >  1 {\n\t\treturn\n\t}" {
		t.Errorf("Find = %q", parsed.Edits[0].Find)
	}
}

func TestApplyEditSuccess(t *testing.T) {
	content := "fn old() {}\nfn other() {}"
	got, err := ApplyEdit(content, EditInstruction{File: "t.rs", Find: "fn old() {}", Replace: "fn new() {}"})
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if got != "fn new() {}\nfn other() {}" {
		t.Errorf("got %q", got)
	}
}

func TestApplyEditFirstOccurrenceOnly(t *testing.T) {
	content := "x\nx\n"
	got, err := ApplyEdit(content, EditInstruction{File: "t.rs", Find: "x", Replace: "y"})
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if got != "y\nx\n" {
		t.Errorf("got %q", got)
	}
}

func TestApplyEditDeletion(t *testing.T) {
	content := "fn old() {}\nfn other() {}"
	got, err := ApplyEdit(content, EditInstruction{File: "t.rs", Find: "fn old() {}", Replace: ""})
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if got != "\nfn other() {}" {
		t.Errorf("got %q", got)
	}
}

func TestApplyEditMiss(t *testing.T) {
	content := "fn other() {}"
	_, err := ApplyEdit(content, EditInstruction{File: "t.rs", Find: "fn old() {}", Replace: "fn new() {}"})
	var applyErr *EditApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected EditApplyError, got %v", err)
	}
	if applyErr.File != "t.rs" {
		t.Errorf("File = %q", applyErr.File)
	}
}

func TestApplyEditNoFuzzyApplication(t *testing.T) {
	// Whitespace differs; the original content must be left untouched
	// and the miss reported with a whitespace hint.
	content := "fn main() {\n    let x = 1;\n}"
	_, err := ApplyEdit(content, EditInstruction{
		File:    "t.rs",
		Find:    "        let x = 1;",
		Replace: "    let y = 2;",
	})
	var applyErr *EditApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected EditApplyError, got %v", err)
	}
	if len(applyErr.FuzzyMatches) == 0 {
		t.Fatal("expected fuzzy diagnostics")
	}
	fm := applyErr.FuzzyMatches[0]
	if fm.Line != 2 {
		t.Errorf("Line = %d, want 2", fm.Line)
	}
	if fm.Similarity != 100 {
		t.Errorf("Similarity = %d, want 100", fm.Similarity)
	}
	if fm.Hint != HintWhitespace {
		t.Errorf("Hint = %q", fm.Hint)
	}
}

func TestApplyEditFindPreviewTruncated(t *testing.T) {
	long := strings.Repeat("a", 250)
	_, err := ApplyEdit("nothing here", EditInstruction{File: "t.rs", Find: long})
	var applyErr *EditApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("expected EditApplyError, got %v", err)
	}
	if len(applyErr.FindPreview) != 100 {
		t.Errorf("preview length = %d, want 100", len(applyErr.FindPreview))
	}
}

func TestApplyEditsInOrder(t *testing.T) {
	content := "fn old1() {}\nfn old2() {}\nfn other() {}"
	edits := []EditInstruction{
		{File: "t.rs", Find: "fn old1() {}", Replace: "fn new1() {}"},
		{File: "t.rs", Find: "fn old2() {}", Replace: "fn new2() {}"},
	}
	got, err := ApplyEdits(content, edits)
	if err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}
	if got != "fn new1() {}\nfn new2() {}\nfn other() {}" {
		t.Errorf("got %q", got)
	}
}

func TestApplyEditsEarlierFeedsLater(t *testing.T) {
	content := "alpha"
	edits := []EditInstruction{
		{File: "t.rs", Find: "alpha", Replace: "beta"},
		{File: "t.rs", Find: "beta", Replace: "gamma"},
	}
	got, err := ApplyEdits(content, edits)
	if err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}
	if got != "gamma" {
		t.Errorf("got %q", got)
	}
}

func TestApplyEditsAbortsOnFailure(t *testing.T) {
	content := "a\nb\n"
	edits := []EditInstruction{
		{File: "t.rs", Find: "missing", Replace: "x"},
		{File: "t.rs", Find: "a", Replace: "z"},
	}
	_, err := ApplyEdits(content, edits)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestEditIdempotence(t *testing.T) {
	// Once applied, re-applying the same edits must miss every FIND.
	content := "fn old1() {}\nfn old2() {}\n"
	edits := []EditInstruction{
		{File: "t.rs", Find: "fn old1() {}", Replace: "fn new1() {}"},
		{File: "t.rs", Find: "fn old2() {}", Replace: "fn new2() {}"},
	}
	result, err := ApplyEdits(content, edits)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	for _, e := range edits {
		if _, err := ApplyEdit(result, e); err == nil {
			t.Errorf("edit %q matched again after application", e.Find)
		}
	}
}

func TestEditsForFile(t *testing.T) {
	parsed := &ParsedEdits{
		Edits: []EditInstruction{
			{File: "a.rs", Find: "1"},
			{File: "b.rs", Find: "2"},
			{File: "a.rs", Find: "3"},
		},
	}
	got := parsed.EditsForFile("a.rs")
	if len(got) != 2 || got[0].Find != "1" || got[1].Find != "3" {
		t.Errorf("EditsForFile = %+v", got)
	}
}
