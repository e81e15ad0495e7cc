package extract

import (
	"fmt"
	"strings"
)

// StructLiteralMatch marks a brace-balanced `Name { ... }` block.
type StructLiteralMatch struct {
	// Start is the byte offset of the struct name.
	Start int
	// End is the byte offset just past the closing brace.
	End int
	// LastFieldEnd is the offset just past the last top-level comma.
	LastFieldEnd int
	// Line is the 1-based line number of the opening.
	Line int
}

// FindStructLiterals locates every `structName {` literal in content and
// walks brace depth to its matching close. Detection is purely textual;
// nested braces in field values count toward depth.
func FindStructLiterals(content, structName string) []StructLiteralMatch {
	var matches []StructLiteralMatch
	pattern := structName + " {"
	searchPos := 0

	for {
		rel := strings.Index(content[searchPos:], pattern)
		if rel < 0 {
			break
		}
		start := searchPos + rel
		afterOpen := start + len(pattern)

		end, lastField, ok := matchingBrace(content[afterOpen:])
		if !ok {
			searchPos = afterOpen
			continue
		}

		matches = append(matches, StructLiteralMatch{
			Start:        start,
			End:          afterOpen + end,
			LastFieldEnd: afterOpen + lastField,
			Line:         strings.Count(content[:start], "\n") + 1,
		})
		searchPos = afterOpen + end
	}

	return matches
}

// matchingBrace scans content that begins just past an opening brace and
// returns the offset past the matching close plus the offset past the
// last depth-1 comma.
func matchingBrace(content string) (end, lastFieldEnd int, ok bool) {
	depth := 1
	for pos, ch := range content {
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return pos + 1, lastFieldEnd, true
			}
		case ',':
			if depth == 1 {
				lastFieldEnd = pos + 1
			}
		}
	}
	return 0, 0, false
}

// InsertFieldIntoStructLiterals inserts newField just before the closing
// brace of every structName literal, adding a leading comma unless the
// preceding non-whitespace character is `,` or `{`. Insertions apply in
// reverse position order so earlier offsets stay valid.
func InsertFieldIntoStructLiterals(content, structName, newField string) (string, error) {
	matches := FindStructLiterals(content, structName)
	if len(matches) == 0 {
		return "", fmt.Errorf("no %s struct literals found", structName)
	}

	result := content
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		insertPos := m.End - 1
		before := strings.TrimRight(result[:insertPos], " \t\n\r")
		needsComma := !strings.HasSuffix(before, ",") && !strings.HasSuffix(before, "{")

		insertion := "\n            " + newField + "\n"
		if needsComma {
			insertion = ",\n            " + newField + "\n"
		}
		result = result[:insertPos] + insertion + result[insertPos:]
	}

	return result, nil
}
