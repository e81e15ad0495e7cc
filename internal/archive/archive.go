// Package archive moves completed job files out of the active jobs
// directory and deletes archived files past their retention age.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/status"
)

// DirName is the archive subdirectory inside jobs/.
const DirName = "archive"

// Result reports what an archive pass did.
type Result struct {
	Archived []string
	Skipped  []string
}

// CompletedJobs moves the job files for Pass entries into jobs/archive/
// and removes their status entries. Fail and stuck jobs stay in place so
// their state remains inspectable.
func CompletedJobs(jobsDir string, store *status.Store, log *zap.Logger) (*Result, error) {
	archiveDir := filepath.Join(jobsDir, DirName)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	res := &Result{}
	for _, entry := range store.AllEntries() {
		if entry.Status != status.Pass {
			res.Skipped = append(res.Skipped, entry.ID)
			continue
		}

		src := filepath.Join(jobsDir, entry.ID+".md")
		if _, err := os.Stat(src); err != nil {
			res.Skipped = append(res.Skipped, entry.ID)
			continue
		}
		dst := filepath.Join(archiveDir, entry.ID+".md")
		if err := os.Rename(src, dst); err != nil {
			return res, fmt.Errorf("archive %s: %w", entry.ID, err)
		}
		if err := store.Remove(entry.ID); err != nil {
			return res, err
		}
		log.Info("archived job", zap.String("job", entry.ID))
		res.Archived = append(res.Archived, entry.ID)
	}
	return res, nil
}

// Cleanup deletes archived job files older than maxAge. Returns the
// deleted file names.
func Cleanup(jobsDir string, maxAge time.Duration, log *zap.Logger) ([]string, error) {
	archiveDir := filepath.Join(jobsDir, DirName)
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	var deleted []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(archiveDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", path, err)
		}
		log.Info("deleted archived job file", zap.String("file", entry.Name()))
		deleted = append(deleted, entry.Name())
	}
	return deleted, nil
}
