package job

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/worksplit/internal/wserr"
)

// knownKeys are the recognized front-matter keys. Anything else is
// ignored but logged so typos surface.
var knownKeys = map[string]bool{
	"context_files": true,
	"output_dir":    true,
	"output_file":   true,
	"output_files":  true,
	"target_files":  true,
	"target_file":   true,
	"test_file":     true,
	"mode":          true,
	"sequential":    true,
	"depends_on":    true,
	"struct_name":   true,
	"new_field":     true,
	"verify":        true,
}

// Parse reads a job file's bytes into a Job. The file must begin with a
// front-matter block delimited by two `---` lines; the markdown body
// below the closing delimiter becomes the instruction text.
func Parse(id string, src []byte, filePath string, maxContextFiles int, log *zap.Logger) (*Job, error) {
	front, body, err := splitFrontMatter(string(src))
	if err != nil {
		return nil, &wserr.ParseError{Path: filePath, Reason: "no frontmatter found", Err: err}
	}

	// First decode into a generic map to detect presence and unknown keys.
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(front), &raw); err != nil {
		return nil, &wserr.ParseError{Path: filePath, Reason: "invalid YAML", Err: err}
	}
	for key := range raw {
		if !knownKeys[key] {
			log.Warn("ignoring unknown job front-matter key",
				zap.String("job", id), zap.String("key", key))
		}
	}

	var meta Metadata
	if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
		return nil, &wserr.ParseError{Path: filePath, Reason: "invalid YAML", Err: err}
	}

	if meta.Mode == "" {
		meta.Mode = ModeReplace
	}
	if !meta.Mode.Valid() {
		return nil, &wserr.ParseError{
			Path:   filePath,
			Reason: fmt.Sprintf("unknown mode %q", meta.Mode),
		}
	}

	_, meta.testFileSet = raw["test_file"]
	_, meta.outputFilesSet = raw["output_files"]
	_, meta.targetFilesSet = raw["target_files"]
	_, meta.targetFileSet = raw["target_file"]

	if err := meta.Validate(maxContextFiles); err != nil {
		return nil, err
	}

	return &Job{
		ID:           id,
		Meta:         meta,
		Instructions: strings.TrimSpace(body),
		FilePath:     filePath,
	}, nil
}

// splitFrontMatter separates the `---` delimited block from the body.
func splitFrontMatter(src string) (front, body string, err error) {
	normalized := strings.ReplaceAll(src, "\r\n", "\n")
	trimmed := strings.TrimLeft(normalized, "\n")
	if !strings.HasPrefix(trimmed, "---\n") && trimmed != "---" {
		return "", "", wserr.ErrMissingFrontMatter
	}

	rest := strings.TrimPrefix(trimmed, "---\n")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		// A front-matter block that is never closed.
		return "", "", wserr.ErrMissingFrontMatter
	}

	front = rest[:end]
	body = rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return front, body, nil
}
