package extract

import "testing"

func TestFuzzyWhitespaceHint(t *testing.T) {
	content := "struct Foo {\n    field: i32,\n}"
	matches := FindFuzzyMatches(content, "\tfield: i32,")
	if len(matches) == 0 {
		t.Fatal("expected a match")
	}
	m := matches[0]
	if m.Line != 2 || m.Similarity != 100 || m.Hint != HintWhitespace {
		t.Errorf("match = %+v", m)
	}
	if m.Preview != "field: i32," {
		t.Errorf("Preview = %q", m.Preview)
	}
}

func TestFuzzyCaseHint(t *testing.T) {
	content := "const VALUE = 1;\n"
	matches := FindFuzzyMatches(content, "const value = 1;")
	if len(matches) == 0 {
		t.Fatal("expected a match")
	}
	if matches[0].Hint != HintCase {
		t.Errorf("Hint = %q", matches[0].Hint)
	}
	if matches[0].Similarity != 100 {
		t.Errorf("Similarity = %d", matches[0].Similarity)
	}
}

func TestFuzzyStructureHint(t *testing.T) {
	content := "fn foo() {\n    bar();\n    baz();\n}\n"
	find := "fn foo() {\n    bar();\n    qux();\n}"
	matches := FindFuzzyMatches(content, find)
	if len(matches) == 0 {
		t.Fatal("expected a match")
	}
	m := matches[0]
	if m.Hint != HintStructure {
		t.Errorf("Hint = %q", m.Hint)
	}
	if m.Similarity != 75 {
		t.Errorf("Similarity = %d, want 75", m.Similarity)
	}
}

func TestFuzzyBelowThresholdDropped(t *testing.T) {
	content := "a\nb\nc\nd\n"
	find := "w\nx\ny\nz"
	if matches := FindFuzzyMatches(content, find); len(matches) != 0 {
		t.Errorf("expected no matches, got %+v", matches)
	}
}

func TestFuzzyTopFiveOnly(t *testing.T) {
	content := "x\nx\nx\nx\nx\nx\nx\nx\n"
	matches := FindFuzzyMatches(content, "x ")
	if len(matches) > 5 {
		t.Errorf("got %d matches, want at most 5", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Error("matches not sorted by similarity")
		}
	}
}

func TestFuzzyMultiline(t *testing.T) {
	content := "impl Foo {\n    fn bar() {\n        println!(\"hello\");\n    }\n}"
	find := "  fn bar() {\n      println!(\"hello\");\n  }"
	matches := FindFuzzyMatches(content, find)
	if len(matches) == 0 {
		t.Fatal("expected a match")
	}
	if matches[0].Line != 2 {
		t.Errorf("Line = %d, want 2", matches[0].Line)
	}
	if matches[0].Hint != HintWhitespace {
		t.Errorf("Hint = %q", matches[0].Hint)
	}
}

func TestFuzzyEmptyFind(t *testing.T) {
	if matches := FindFuzzyMatches("content", ""); matches != nil {
		t.Errorf("expected nil, got %+v", matches)
	}
}

func TestFuzzyContentShorterThanFind(t *testing.T) {
	if matches := FindFuzzyMatches("one line", "a\nb\nc"); matches != nil {
		t.Errorf("expected nil, got %+v", matches)
	}
}

func TestNormalizeLine(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  hello   world  ", "hello world"},
		{"fn foo() {}", "fn foo() {}"},
		{"\tx\t=\t1", "x = 1"},
	}
	for _, c := range cases {
		if got := normalizeLine(c.in); got != c.want {
			t.Errorf("normalizeLine(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
