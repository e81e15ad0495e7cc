// Package extract recovers intended output files and edit instructions
// from LLM replies, and applies edit-family instructions to file content.
package extract

import (
	"regexp"
	"strings"
)

// ExtractedFile is one output file recovered from a reply. Path is ""
// when the reply did not attribute the content to a path; callers fall
// back to the job's primary output file.
type ExtractedFile struct {
	Path    string
	Content string
}

var (
	worksplitRe = regexp.MustCompile(`(?is)~~~worksplit(?::([^\s]+))?(?:[ \t]+\w*)?\n(.*?)\n~~~worksplit`)

	pathHeadingRe = regexp.MustCompile("(?ms)^([a-zA-Z0-9_./-]+\\.[a-zA-Z]+)[ \t]*\n```\\w*\n(.*?)\n```")

	genericFenceRe = regexp.MustCompile("(?s)```\\w*\n?(.*?)```")

	// Nested wrappers sometimes emitted inside a worksplit fence.
	nestedPathHeadingRe = regexp.MustCompile("(?s)^[a-zA-Z0-9_./-]+\\.[a-zA-Z]+[ \t]*\n```\\w*\n(.*?)\n?```\\s*$")
	nestedBacktickRe    = regexp.MustCompile("(?s)^```\\w*\n(.*?)\n?```\\s*$")
)

// Files extracts output files from a reply. Probes run in priority
// order and the first probe yielding at least one non-empty file wins,
// so a looser format never overrides a more specific one:
//
//  1. ~~~worksplit fences with optional :path
//  2. bare file path heading followed by a triple-backtick block
//  3. concatenation of all generic fenced blocks
//
// With no fences at all, the raw reply (minus stray delimiter lines)
// becomes a single unattributed file.
func Files(reply string) []ExtractedFile {
	var files []ExtractedFile

	for _, m := range worksplitRe.FindAllStringSubmatch(reply, -1) {
		path := strings.TrimSpace(m[1])
		content := stripNestedFences(strings.TrimSpace(m[2]))
		if content == "" {
			continue
		}
		files = append(files, ExtractedFile{Path: path, Content: content})
	}
	if len(files) > 0 {
		return files
	}

	for _, m := range pathHeadingRe.FindAllStringSubmatch(reply, -1) {
		path := strings.TrimSpace(m[1])
		content := strings.TrimSpace(m[2])
		if path == "" || content == "" {
			continue
		}
		files = append(files, ExtractedFile{Path: path, Content: content})
	}
	if len(files) > 0 {
		return files
	}

	var blocks []string
	for _, m := range genericFenceRe.FindAllStringSubmatch(reply, -1) {
		if b := strings.TrimSpace(m[1]); b != "" {
			blocks = append(blocks, b)
		}
	}
	if len(blocks) > 0 {
		return []ExtractedFile{{Content: strings.Join(blocks, "\n\n")}}
	}

	return []ExtractedFile{{Content: stripWorksplitDelimiters(strings.TrimSpace(reply))}}
}

// Code is the single-string form of Files, joining all contents.
func Code(reply string) string {
	files := Files(reply)
	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, f.Content)
	}
	return strings.Join(parts, "\n\n")
}

// stripNestedFences unwraps content an LLM wrapped in both a worksplit
// fence and a backtick block (with or without a path heading).
func stripNestedFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if m := nestedPathHeadingRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := nestedBacktickRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// stripWorksplitDelimiters drops stray delimiter lines from raw replies.
func stripWorksplitDelimiters(content string) string {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(trimmed, "~~~worksplit") || trimmed == "~~~" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// CountLines counts the lines in content the way the size budgets do.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
