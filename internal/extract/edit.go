package extract

import (
	"fmt"
	"strings"
)

// EditInstruction is a single FIND/REPLACE edit scoped to one file.
// Order within a file matters: earlier edits may alter the text a later
// edit matches against.
type EditInstruction struct {
	File    string
	Find    string
	Replace string
}

// ParsedEdits holds the ordered edit list and the files they touch.
type ParsedEdits struct {
	Edits         []EditInstruction
	AffectedFiles []string
}

// EditsForFile returns the edits targeting path, in reply order.
func (p *ParsedEdits) EditsForFile(path string) []EditInstruction {
	var out []EditInstruction
	for _, e := range p.Edits {
		if e.File == path {
			out = append(out, e)
		}
	}
	return out
}

// ParseEdits parses edit instructions from a reply. The grammar is
// line-oriented and case-insensitive on the keywords:
//
//	FILE: path/to/file.rs
//	FIND:
//	<text>
//	REPLACE:
//	<text>
//	END
//
// FILE: stays in force until the next FILE: line; multiple blocks per
// file are permitted. Blocks with an empty FIND are dropped.
func ParseEdits(reply string) *ParsedEdits {
	parsed := &ParsedEdits{}
	var (
		currentFile string
		findLines   []string
		replLines   []string
		inFind      bool
		inReplace   bool
	)
	seen := map[string]bool{}
	// joinBlock drops blank lines at the edges of a block and keeps the
	// remaining lines, indentation included, verbatim.
	joinBlock := func(lines []string) string {
		for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
			lines = lines[1:]
		}
		for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
			lines = lines[:len(lines)-1]
		}
		return strings.Join(lines, "\n")
	}

	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		switch {
		case strings.HasPrefix(lower, "file:"):
			currentFile = strings.TrimSpace(trimmed[len("file:"):])
			continue
		case lower == "find:":
			inFind, inReplace = true, false
			findLines = nil
			continue
		case lower == "replace:":
			inFind, inReplace = false, true
			replLines = nil
			continue
		case lower == "end":
			inFind, inReplace = false, false
			find := joinBlock(findLines)
			if currentFile != "" && find != "" {
				parsed.Edits = append(parsed.Edits, EditInstruction{
					File:    currentFile,
					Find:    find,
					Replace: joinBlock(replLines),
				})
				if !seen[currentFile] {
					seen[currentFile] = true
					parsed.AffectedFiles = append(parsed.AffectedFiles, currentFile)
				}
			}
			findLines, replLines = nil, nil
			continue
		}

		if inFind {
			findLines = append(findLines, line)
		} else if inReplace {
			replLines = append(replLines, line)
		}
	}

	return parsed
}

// EditApplyError reports an edit whose FIND text has no exact occurrence.
// FuzzyMatches are informational only; application never silently
// succeeds on a fuzzy match.
type EditApplyError struct {
	File         string
	FindPreview  string
	Reason       string
	FuzzyMatches []FuzzyMatch
}

func (e *EditApplyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "FIND text not found in %s.\nSearched for: %q", e.File, e.FindPreview)
	for _, fm := range e.FuzzyMatches {
		fmt.Fprintf(&b, "\n  near line %d (%d%% similar, %s): %q",
			fm.Line, fm.Similarity, fm.Hint, fm.Preview)
	}
	return b.String()
}

// preview truncates s to at most n characters for diagnostics.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// ApplyEdit replaces the first exact occurrence of edit.Find in content.
// On a miss it returns an *EditApplyError carrying fuzzy diagnostics.
func ApplyEdit(content string, edit EditInstruction) (string, error) {
	if idx := strings.Index(content, edit.Find); idx >= 0 {
		return content[:idx] + edit.Replace + content[idx+len(edit.Find):], nil
	}

	return "", &EditApplyError{
		File:         edit.File,
		FindPreview:  preview(edit.Find, 100),
		Reason:       "FIND text not found",
		FuzzyMatches: FindFuzzyMatches(content, edit.Find),
	}
}

// ApplyEdits applies edits in order, feeding the output of each edit
// into the next. The first failure aborts the remaining edits for this
// content and is returned.
func ApplyEdits(content string, edits []EditInstruction) (string, error) {
	result := content
	for _, e := range edits {
		next, err := ApplyEdit(result, e)
		if err != nil {
			return "", err
		}
		result = next
	}
	return result, nil
}
