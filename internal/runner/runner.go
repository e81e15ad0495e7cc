// Package runner drives jobs through the generation pipeline and
// schedules batches across dependency groups.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/config"
	"github.com/lucasnoah/worksplit/internal/db"
	"github.com/lucasnoah/worksplit/internal/jobs"
	"github.com/lucasnoah/worksplit/internal/llm"
	"github.com/lucasnoah/worksplit/internal/status"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

// Runner executes jobs against the generation service.
type Runner struct {
	cfg         config.Config
	jobsMgr     *jobs.Manager
	store       *status.Store
	gen         llm.Generator
	build       BuildRunner
	log         *zap.Logger
	projectRoot string
	runID       string
	events      eventRecorder

	// jobTimeout overrides the config timeout for each LLM call when set.
	jobTimeout time.Duration

	mu            sync.Mutex
	modifiedFiles []string
}

// Options configures a run.
type Options struct {
	// ResumeStuck re-queues jobs found in intermediate or partial states.
	ResumeStuck bool
	// StopOnFail stops scheduling new jobs after the first failure.
	StopOnFail bool
	// MaxConcurrent bounds within-group parallelism; 0 means unbounded.
	MaxConcurrent int
	// JobTimeout overrides the per-LLM-call deadline.
	JobTimeout time.Duration
}

// New builds a Runner. eventDB may be nil to disable the audit log.
func New(cfg config.Config, projectRoot string, gen llm.Generator, build BuildRunner,
	store *status.Store, jobsMgr *jobs.Manager, eventDB *db.DB, log *zap.Logger) *Runner {
	return &Runner{
		cfg:         cfg,
		jobsMgr:     jobsMgr,
		store:       store,
		gen:         gen,
		build:       build,
		log:         log,
		projectRoot: projectRoot,
		runID:       uuid.New().String(),
		events:      eventRecorder{db: eventDB, log: log},
	}
}

// RunID identifies this runner's batch in the event log.
func (r *Runner) RunID() string { return r.runID }

// SetJobTimeout overrides the per-call deadline (CLI --job-timeout).
func (r *Runner) SetJobTimeout(d time.Duration) { r.jobTimeout = d }

// Store exposes the status store for the CLI surface.
func (r *Runner) Store() *status.Store { return r.store }

// JobsManager exposes the jobs manager for the CLI surface.
func (r *Runner) JobsManager() *jobs.Manager { return r.jobsMgr }

// systemPrompts holds the per-run prompt set loaded from jobs/.
type systemPrompts struct {
	create     string
	verify     string
	test       string
	edit       string
	verifyEdit string
	split      string
}

func (r *Runner) loadPrompts() (*systemPrompts, error) {
	create, err := r.jobsMgr.LoadCreatePrompt()
	if err != nil {
		return nil, err
	}
	verify, err := r.jobsMgr.LoadVerifyPrompt()
	if err != nil {
		return nil, err
	}
	test, err := r.jobsMgr.LoadTestPrompt()
	if err != nil {
		return nil, err
	}
	edit, err := r.jobsMgr.LoadEditPrompt()
	if err != nil {
		return nil, err
	}
	verifyEdit, err := r.jobsMgr.LoadVerifyEditPrompt()
	if err != nil {
		return nil, err
	}
	split, err := r.jobsMgr.LoadSplitPrompt()
	if err != nil {
		return nil, err
	}
	return &systemPrompts{
		create:     create,
		verify:     verify,
		test:       test,
		edit:       edit,
		verifyEdit: verifyEdit,
		split:      split,
	}, nil
}

// callTimeout resolves the per-LLM-call deadline.
func (r *Runner) callTimeout() time.Duration {
	if r.jobTimeout > 0 {
		return r.jobTimeout
	}
	return time.Duration(r.cfg.Ollama.TimeoutSeconds) * time.Second
}

// callLLM wraps one generation call in the per-job deadline and records
// it in the event log.
func (r *Runner) callLLM(ctx context.Context, jobID, phase, systemPrompt, userPrompt string,
	stream, withRetry bool) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout())
	defer cancel()

	start := time.Now()
	var reply string
	var err error
	if withRetry {
		reply, err = r.gen.GenerateWithRetry(callCtx, systemPrompt, userPrompt, stream)
	} else {
		reply, err = r.gen.Generate(callCtx, systemPrompt, userPrompt, stream)
	}
	r.events.LLMCall(r.runID, jobID, phase, time.Since(start), len(userPrompt), len(reply), err == nil)

	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", wserr.ErrCancelled
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", &wserr.TimeoutError{Seconds: int(r.callTimeout().Seconds())}
		}
		return "", err
	}
	return reply, nil
}
