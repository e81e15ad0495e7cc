// Package jobs manages the jobs directory: discovery, job parsing,
// system prompts, and context/target file loading under size budgets.
package jobs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/config"
	"github.com/lucasnoah/worksplit/internal/job"
	"github.com/lucasnoah/worksplit/internal/prompt"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

// System prompt file names inside the jobs directory.
const (
	CreatePromptFile     = "_systemprompt_create.md"
	VerifyPromptFile     = "_systemprompt_verify.md"
	EditPromptFile       = "_systemprompt_edit.md"
	VerifyEditPromptFile = "_systemprompt_verify_edit.md"
	TestPromptFile       = "_systemprompt_test.md"
	SplitPromptFile      = "_systemprompt_split.md"
)

// ArchiveDirName holds archived job files inside jobs/.
const ArchiveDirName = "archive"

// Manager owns access to the jobs directory.
type Manager struct {
	jobsDir     string
	projectRoot string
	limits      config.LimitsConfig
	cache       *fileCache
	log         *zap.Logger
}

// NewManager creates a manager rooted at projectRoot/jobs.
func NewManager(projectRoot string, limits config.LimitsConfig, log *zap.Logger) *Manager {
	return &Manager{
		jobsDir:     filepath.Join(projectRoot, "jobs"),
		projectRoot: projectRoot,
		limits:      limits,
		cache:       newFileCache(),
		log:         log,
	}
}

// JobsDir returns the jobs directory path.
func (m *Manager) JobsDir() string { return m.jobsDir }

// ProjectRoot returns the project root path.
func (m *Manager) ProjectRoot() string { return m.projectRoot }

// Limits returns the size budgets in force.
func (m *Manager) Limits() config.LimitsConfig { return m.limits }

// JobsFolderExists reports whether the jobs directory is present.
func (m *Manager) JobsFolderExists() bool {
	info, err := os.Stat(m.jobsDir)
	return err == nil && info.IsDir()
}

// DiscoverJobs lists job ids: .md files in jobs/, excluding names with a
// leading underscore and the archive subdirectory. Sorted for
// determinism.
func (m *Manager) DiscoverJobs() ([]string, error) {
	if !m.JobsFolderExists() {
		return nil, fmt.Errorf("%w: %s", wserr.ErrJobsFolderNotFound, m.jobsDir)
	}

	entries, err := os.ReadDir(m.jobsDir)
	if err != nil {
		return nil, fmt.Errorf("read jobs dir %s: %w", m.jobsDir, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "_") || !strings.HasSuffix(name, ".md") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".md"))
	}

	sort.Strings(ids)
	m.log.Info("discovered job files", zap.Int("count", len(ids)))
	return ids, nil
}

// ParseJob reads and validates the job file for id.
func (m *Manager) ParseJob(id string) (*job.Job, error) {
	path := filepath.Join(m.jobsDir, id+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &wserr.ParseError{Path: path, Reason: "read failed", Err: err}
	}
	return job.Parse(id, data, path, m.limits.MaxContextFiles, m.log)
}

// LoadSystemPrompt reads a prompt file from the jobs directory.
func (m *Manager) LoadSystemPrompt(filename string) (string, error) {
	path := filepath.Join(m.jobsDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &wserr.SystemPromptNotFound{Path: path}
		}
		return "", fmt.Errorf("read system prompt %s: %w", path, err)
	}
	return string(data), nil
}

// LoadCreatePrompt loads the generation system prompt.
func (m *Manager) LoadCreatePrompt() (string, error) {
	return m.LoadSystemPrompt(CreatePromptFile)
}

// LoadVerifyPrompt loads the verification system prompt.
func (m *Manager) LoadVerifyPrompt() (string, error) {
	return m.LoadSystemPrompt(VerifyPromptFile)
}

// LoadTestPrompt loads the optional TDD test prompt; returns "" when the
// file is absent.
func (m *Manager) LoadTestPrompt() (string, error) {
	s, err := m.LoadSystemPrompt(TestPromptFile)
	if err != nil {
		if isPromptMissing(err) {
			return "", nil
		}
		return "", err
	}
	return s, nil
}

// LoadEditPrompt loads the edit prompt, falling back to the create prompt.
func (m *Manager) LoadEditPrompt() (string, error) {
	s, err := m.LoadSystemPrompt(EditPromptFile)
	if err != nil {
		if isPromptMissing(err) {
			return m.LoadCreatePrompt()
		}
		return "", err
	}
	return s, nil
}

// LoadVerifyEditPrompt loads the edit verification prompt, falling back
// to the standard verify prompt.
func (m *Manager) LoadVerifyEditPrompt() (string, error) {
	s, err := m.LoadSystemPrompt(VerifyEditPromptFile)
	if err != nil {
		if isPromptMissing(err) {
			return m.LoadVerifyPrompt()
		}
		return "", err
	}
	return s, nil
}

// LoadSplitPrompt loads the optional split prompt; "" when absent.
func (m *Manager) LoadSplitPrompt() (string, error) {
	s, err := m.LoadSystemPrompt(SplitPromptFile)
	if err != nil {
		if isPromptMissing(err) {
			return "", nil
		}
		return "", err
	}
	return s, nil
}

func isPromptMissing(err error) bool {
	var nf *wserr.SystemPromptNotFound
	return errors.As(err, &nf)
}

// splitSuggestion is the actionable hint attached to FileTooLarge.
func splitSuggestion(relPath string) string {
	base := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	return fmt.Sprintf(
		"Run a split job first: worksplit new %s-split --mode split --target %s",
		base, relPath)
}

// LoadContextFile reads one context file under the size budget, via the
// cache.
func (m *Manager) LoadContextFile(relPath string) (string, error) {
	fullPath := filepath.Join(m.projectRoot, relPath)
	entry, err := m.cache.getOrLoad(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("context file not found: %s", relPath)
		}
		return "", fmt.Errorf("read context file %s: %w", relPath, err)
	}

	// The output-line budget bounds context too: a file the engine could
	// not regenerate in one piece should be split before it is used.
	if entry.lineCount > m.limits.MaxOutputLines {
		return "", &wserr.FileTooLarge{
			Path:       relPath,
			Lines:      entry.lineCount,
			Limit:      m.limits.MaxOutputLines,
			Suggestion: splitSuggestion(relPath),
		}
	}
	return entry.content, nil
}

// LoadContextFiles loads every declared context file for a job.
func (m *Manager) LoadContextFiles(j *job.Job) ([]prompt.File, error) {
	var files []prompt.File
	for _, rel := range j.Meta.ContextFiles {
		content, err := m.LoadContextFile(rel)
		if err != nil {
			return nil, err
		}
		files = append(files, prompt.File{Path: rel, Content: content})
	}
	return files, nil
}

// LoadTargetFile reads a target file under the size budget (edit family).
func (m *Manager) LoadTargetFile(relPath string) (string, error) {
	return m.LoadContextFile(relPath)
}

// LoadTargetFileUnlimited reads a target without the size budget. Split
// mode exists to shrink oversized files, so the budget cannot apply.
func (m *Manager) LoadTargetFileUnlimited(relPath string) (string, error) {
	fullPath := filepath.Join(m.projectRoot, relPath)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("target file not found: %s", relPath)
		}
		return "", fmt.Errorf("read target file %s: %w", relPath, err)
	}
	m.log.Info("loaded split target without size limit",
		zap.String("path", relPath), zap.Int("lines", countLines(string(data))))
	return string(data), nil
}

// InvalidateCache drops a path from the cache after a write.
func (m *Manager) InvalidateCache(fullPath string) { m.cache.invalidate(fullPath) }

// ClearCache empties the cache.
func (m *Manager) ClearCache() { m.cache.clear() }

// CacheStats reports cache effectiveness.
func (m *Manager) CacheStats() CacheStats { return m.cache.stats() }

// EstimateTokens approximates the token count of content (chars / 4).
func EstimateTokens(content string) int { return len(content) / 4 }

// tokenOutputBuffer reserves room for a 900-line output in the budget.
const tokenOutputBuffer = 1200

// CheckTokenBudget estimates the prompt size and classifies it against
// the context window: warning above 80%, error above 90%.
func (m *Manager) CheckTokenBudget(systemPrompt string, contextFiles []prompt.File,
	instructions string, contextLimit int) (estimated int, warning, exceeded bool) {
	total := EstimateTokens(systemPrompt) + EstimateTokens(instructions) + tokenOutputBuffer
	for _, f := range contextFiles {
		total += EstimateTokens(f.Content)
	}

	warning = total > contextLimit*8/10
	exceeded = total > contextLimit*9/10
	if warning {
		m.log.Warn("token budget high",
			zap.Int("estimated", total), zap.Int("limit", contextLimit))
	}
	return total, warning, exceeded
}
