package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/status"
)

func setup(t *testing.T) (string, *status.Store) {
	t.Helper()
	jobsDir := t.TempDir()
	store, err := status.Open(jobsDir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return jobsDir, store
}

func writeJob(t *testing.T, jobsDir, id string) {
	t.Helper()
	path := filepath.Join(jobsDir, id+".md")
	if err := os.WriteFile(path, []byte("---\noutput_dir: src/\noutput_file: a.rs\n---\nx"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCompletedJobs(t *testing.T) {
	jobsDir, store := setup(t)
	writeJob(t, jobsDir, "done")
	writeJob(t, jobsDir, "failed")
	store.SyncWithJobs([]string{"done", "failed"})
	store.UpdateStatus("done", status.Pass)
	store.SetFailed("failed", "x")

	res, err := CompletedJobs(jobsDir, store, zap.NewNop())
	if err != nil {
		t.Fatalf("CompletedJobs: %v", err)
	}
	if len(res.Archived) != 1 || res.Archived[0] != "done" {
		t.Errorf("Archived = %v", res.Archived)
	}

	if _, err := os.Stat(filepath.Join(jobsDir, "done.md")); !os.IsNotExist(err) {
		t.Error("source job file still present")
	}
	if _, err := os.Stat(filepath.Join(jobsDir, DirName, "done.md")); err != nil {
		t.Error("archived file missing")
	}
	if _, err := os.Stat(filepath.Join(jobsDir, "failed.md")); err != nil {
		t.Error("failed job must stay in place")
	}

	if _, err := store.Get("done"); err == nil {
		t.Error("status entry for archived job should be removed")
	}
	if _, err := store.Get("failed"); err != nil {
		t.Error("failed entry should remain")
	}
}

func TestCleanup(t *testing.T) {
	jobsDir, _ := setup(t)
	archiveDir := filepath.Join(jobsDir, DirName)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		t.Fatal(err)
	}

	oldFile := filepath.Join(archiveDir, "old.md")
	newFile := filepath.Join(archiveDir, "new.md")
	os.WriteFile(oldFile, []byte("x"), 0o644)
	os.WriteFile(newFile, []byte("x"), 0o644)

	past := time.Now().Add(-40 * 24 * time.Hour)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatal(err)
	}

	deleted, err := Cleanup(jobsDir, 30*24*time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "old.md" {
		t.Errorf("deleted = %v", deleted)
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Error("recent file should survive")
	}
}

func TestCleanupNoArchiveDir(t *testing.T) {
	jobsDir, _ := setup(t)
	deleted, err := Cleanup(jobsDir, time.Hour, zap.NewNop())
	if err != nil || deleted != nil {
		t.Errorf("got %v, %v", deleted, err)
	}
}
