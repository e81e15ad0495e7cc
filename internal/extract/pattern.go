package extract

import (
	"fmt"
	"strings"
)

// ReplacePatternInstruction inserts text after every occurrence of a
// pattern, optionally restricted to a scope marker's brace block.
type ReplacePatternInstruction struct {
	AfterPattern string
	InsertText   string
	Scope        string
}

// ParsedReplacePatterns is the instruction list recovered from a reply.
type ParsedReplacePatterns struct {
	Instructions []ReplacePatternInstruction
	Scope        string
}

// ParseReplacePatterns parses AFTER/INSERT blocks, with optional
// SCOPE: lines. Keywords are case-insensitive and line-oriented.
func ParseReplacePatterns(reply string) *ParsedReplacePatterns {
	parsed := &ParsedReplacePatterns{}
	var (
		scope      string
		afterLines []string
		insLines   []string
		inAfter    bool
		inInsert   bool
	)

	flush := func() {
		after := strings.TrimSpace(strings.Join(afterLines, "\n"))
		insert := strings.TrimSpace(strings.Join(insLines, "\n"))
		if after != "" && insert != "" {
			parsed.Instructions = append(parsed.Instructions, ReplacePatternInstruction{
				AfterPattern: after,
				InsertText:   insert,
				Scope:        scope,
			})
		}
	}

	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		switch {
		case strings.HasPrefix(lower, "scope:"):
			scope = strings.TrimSpace(trimmed[len("scope:"):])
			continue
		case lower == "after:":
			flush()
			inAfter, inInsert = true, false
			afterLines, insLines = nil, nil
			continue
		case lower == "insert:":
			inAfter, inInsert = false, true
			continue
		}

		if inAfter {
			afterLines = append(afterLines, line)
		} else if inInsert {
			insLines = append(insLines, line)
		}
	}
	flush()

	parsed.Scope = scope
	return parsed
}

// ApplyReplacePatterns inserts each instruction's text after every
// in-scope occurrence of its pattern. Insertions happen in a single
// left-to-right pass that consumes positions, so inserted text can
// never be matched again by the same pattern. An instruction whose
// pattern matches nowhere fails the whole application.
func ApplyReplacePatterns(content string, patterns *ParsedReplacePatterns) (string, error) {
	result := content

	for _, inst := range patterns.Instructions {
		var b strings.Builder
		lastPos := 0
		found := false

		for {
			rel := strings.Index(result[lastPos:], inst.AfterPattern)
			if rel < 0 {
				break
			}
			abs := lastPos + rel
			end := abs + len(inst.AfterPattern)

			if inst.Scope != "" && !inScope(result[:abs], inst.Scope) {
				b.WriteString(result[lastPos:end])
				lastPos = end
				continue
			}

			found = true
			b.WriteString(result[lastPos:end])
			b.WriteString(inst.InsertText)
			lastPos = end
		}
		b.WriteString(result[lastPos:])

		if !found {
			return "", fmt.Errorf("AFTER pattern not found: %q", preview(inst.AfterPattern, 50))
		}
		result = b.String()
	}

	return result, nil
}

// inScope reports whether a position (the end of before) is inside the
// brace block opened by the last prior occurrence of the scope marker.
// Depth tracking is approximate: braces are counted textually from the
// marker.
func inScope(before, scope string) bool {
	pos := strings.LastIndex(before, scope)
	if pos < 0 {
		return false
	}
	depth := 0
	for _, ch := range before[pos:] {
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth <= 0 {
				// The marker's block has closed.
				return false
			}
		}
	}
	return depth > 0
}
