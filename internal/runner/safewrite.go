package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lucasnoah/worksplit/internal/status"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

// isProtectedPath reports whether the engine must refuse to write path.
// The jobs tree, the status document (by name, anywhere), and any
// configured deny glob are protected.
func (r *Runner) isProtectedPath(fullPath string) bool {
	if filepath.Base(fullPath) == status.FileName {
		return true
	}

	absJobs, err1 := filepath.Abs(r.jobsMgr.JobsDir())
	absPath, err2 := filepath.Abs(fullPath)
	if err1 == nil && err2 == nil {
		rel, err := filepath.Rel(absJobs, absPath)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return true
		}
	}

	relToRoot, err := filepath.Rel(r.projectRoot, fullPath)
	if err != nil {
		relToRoot = fullPath
	}
	for _, glob := range r.cfg.Behavior.ProtectedGlobs {
		if ok, err := doublestar.Match(glob, filepath.ToSlash(relToRoot)); err == nil && ok {
			return true
		}
	}
	return false
}

// safeWrite writes content to fullPath unless the path is protected.
// Parent directories are created when configured. Written paths are
// invalidated in the context cache and tracked for implicit context.
func (r *Runner) safeWrite(fullPath, content string) error {
	if r.isProtectedPath(fullPath) {
		return &wserr.ProtectedPathWrite{Path: fullPath}
	}

	dir := filepath.Dir(fullPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if !r.cfg.Behavior.CreateOutputDirs {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fullPath, err)
	}

	r.jobsMgr.InvalidateCache(fullPath)
	r.trackModified(fullPath)
	return nil
}

func (r *Runner) trackModified(fullPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modifiedFiles = append(r.modifiedFiles, fullPath)
}
