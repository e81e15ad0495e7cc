package jobs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/config"
	"github.com/lucasnoah/worksplit/internal/prompt"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "jobs"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	return NewManager(root, cfg.Limits, zap.NewNop()), root
}

func writeFile(t *testing.T, root string, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverJobs(t *testing.T) {
	m, root := newTestManager(t)
	writeFile(t, root, "jobs/b_second.md", "---\noutput_dir: src/\noutput_file: b.rs\n---\nx")
	writeFile(t, root, "jobs/a_first.md", "---\noutput_dir: src/\noutput_file: a.rs\n---\nx")
	writeFile(t, root, "jobs/_systemprompt_create.md", "sys")
	writeFile(t, root, "jobs/_jobstatus.json", "{}")
	writeFile(t, root, "jobs/notes.txt", "not a job")
	writeFile(t, root, "jobs/archive/old.md", "---\n---\nx")

	ids, err := m.DiscoverJobs()
	if err != nil {
		t.Fatalf("DiscoverJobs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a_first" || ids[1] != "b_second" {
		t.Errorf("ids = %v", ids)
	}
}

func TestDiscoverJobsMissingFolder(t *testing.T) {
	m := NewManager(t.TempDir(), config.Default().Limits, zap.NewNop())
	_, err := m.DiscoverJobs()
	if !errors.Is(err, wserr.ErrJobsFolderNotFound) {
		t.Fatalf("expected ErrJobsFolderNotFound, got %v", err)
	}
}

func TestParseJob(t *testing.T) {
	m, root := newTestManager(t)
	writeFile(t, root, "jobs/my_job.md", `---
context_files: [src/lib.rs]
output_dir: src/
output_file: out.rs
---
Do the thing.
`)

	j, err := m.ParseJob("my_job")
	if err != nil {
		t.Fatalf("ParseJob: %v", err)
	}
	if j.ID != "my_job" || j.Instructions != "Do the thing." {
		t.Errorf("job = %+v", j)
	}
}

func TestSystemPromptFallbacks(t *testing.T) {
	m, root := newTestManager(t)
	writeFile(t, root, "jobs/"+CreatePromptFile, "create prompt")
	writeFile(t, root, "jobs/"+VerifyPromptFile, "verify prompt")

	// Edit prompt falls back to the create prompt.
	s, err := m.LoadEditPrompt()
	if err != nil || s != "create prompt" {
		t.Errorf("LoadEditPrompt = %q, %v", s, err)
	}

	// Verify-edit falls back to the verify prompt.
	s, err = m.LoadVerifyEditPrompt()
	if err != nil || s != "verify prompt" {
		t.Errorf("LoadVerifyEditPrompt = %q, %v", s, err)
	}

	// Optional prompts return empty when absent.
	s, err = m.LoadTestPrompt()
	if err != nil || s != "" {
		t.Errorf("LoadTestPrompt = %q, %v", s, err)
	}
	s, err = m.LoadSplitPrompt()
	if err != nil || s != "" {
		t.Errorf("LoadSplitPrompt = %q, %v", s, err)
	}

	// Required prompt missing is an error.
	writeFileRemove(t, root, "jobs/"+CreatePromptFile)
	writeFile(t, root, "jobs/"+EditPromptFile, "edit prompt")
	s, err = m.LoadEditPrompt()
	if err != nil || s != "edit prompt" {
		t.Errorf("LoadEditPrompt = %q, %v", s, err)
	}
	_, err = m.LoadCreatePrompt()
	var nf *wserr.SystemPromptNotFound
	if !errors.As(err, &nf) {
		t.Errorf("expected SystemPromptNotFound, got %v", err)
	}
}

func writeFileRemove(t *testing.T, root, rel string) {
	t.Helper()
	if err := os.Remove(filepath.Join(root, rel)); err != nil {
		t.Fatal(err)
	}
}

func TestLoadContextFileTooLarge(t *testing.T) {
	m, root := newTestManager(t)
	big := strings.Repeat("line\n", 1000)
	writeFile(t, root, "src/big.rs", big)

	_, err := m.LoadContextFile("src/big.rs")
	var tooLarge *wserr.FileTooLarge
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected FileTooLarge, got %v", err)
	}
	if tooLarge.Lines != 1000 || tooLarge.Limit != 900 {
		t.Errorf("err = %+v", tooLarge)
	}
	if !strings.Contains(tooLarge.Suggestion, "split") {
		t.Errorf("suggestion should name a split job: %q", tooLarge.Suggestion)
	}
}

func TestLoadTargetFileUnlimited(t *testing.T) {
	m, root := newTestManager(t)
	big := strings.Repeat("line\n", 5000)
	writeFile(t, root, "src/huge.rs", big)

	content, err := m.LoadTargetFileUnlimited("src/huge.rs")
	if err != nil {
		t.Fatalf("LoadTargetFileUnlimited: %v", err)
	}
	if len(content) != len(big) {
		t.Error("content truncated")
	}
}

func TestCacheInvalidate(t *testing.T) {
	m, root := newTestManager(t)
	writeFile(t, root, "src/a.rs", "v1\n")

	got, err := m.LoadContextFile("src/a.rs")
	if err != nil || got != "v1\n" {
		t.Fatalf("first load = %q, %v", got, err)
	}

	writeFile(t, root, "src/a.rs", "v2\n")
	got, _ = m.LoadContextFile("src/a.rs")
	if got != "v1\n" {
		t.Errorf("expected cached content, got %q", got)
	}

	m.InvalidateCache(filepath.Join(root, "src/a.rs"))
	got, _ = m.LoadContextFile("src/a.rs")
	if got != "v2\n" {
		t.Errorf("expected fresh content after invalidate, got %q", got)
	}

	stats := m.CacheStats()
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCheckTokenBudget(t *testing.T) {
	m, _ := newTestManager(t)

	// Small prompt: no warning.
	_, warn, exceeded := m.CheckTokenBudget("sys", nil, "instr", 32000)
	if warn || exceeded {
		t.Error("small prompt flagged")
	}

	// ~30k tokens of context on a 32k window: exceeded.
	big := []prompt.File{{Path: "a", Content: strings.Repeat("x", 120000)}}
	est, warn, exceeded := m.CheckTokenBudget("sys", big, "instr", 32000)
	if !warn || !exceeded {
		t.Errorf("est=%d warn=%v exceeded=%v", est, warn, exceeded)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(strings.Repeat("a", 100)); got != 25 {
		t.Errorf("EstimateTokens = %d, want 25", got)
	}
}
