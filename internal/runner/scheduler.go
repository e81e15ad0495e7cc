package runner

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lucasnoah/worksplit/internal/deps"
	"github.com/lucasnoah/worksplit/internal/job"
	"github.com/lucasnoah/worksplit/internal/status"
)

// RunSummary aggregates per-job outcomes for one run.
type RunSummary struct {
	Processed int
	Passed    int
	Failed    int
	Skipped   int
	Results   []JobResult
}

func (s *RunSummary) record(res *JobResult) {
	s.Processed++
	switch res.Status {
	case status.Pass:
		s.Passed++
	case status.Fail:
		s.Failed++
	}
	s.Results = append(s.Results, *res)
}

// prepare discovers jobs, syncs the store, and collects the ids to run.
func (r *Runner) prepare(opts Options) ([]string, error) {
	r.mu.Lock()
	r.modifiedFiles = nil
	r.mu.Unlock()

	discovered, err := r.jobsMgr.DiscoverJobs()
	if err != nil {
		return nil, err
	}
	if err := r.store.SyncWithJobs(discovered); err != nil {
		return nil, err
	}

	stuck := r.store.GetStuckJobs()
	if len(stuck) > 0 && !opts.ResumeStuck {
		ids := make([]string, len(stuck))
		for i, e := range stuck {
			ids[i] = e.ID
		}
		r.log.Warn("stuck jobs found; use --resume to retry them",
			zap.Strings("jobs", ids))
	}

	var toRun []string
	for _, e := range r.store.GetReadyJobs() {
		toRun = append(toRun, e.ID)
	}
	if opts.ResumeStuck {
		for _, e := range stuck {
			toRun = append(toRun, e.ID)
		}
	}
	sort.Strings(toRun)
	return toRun, nil
}

// RunSingle executes one job by id.
func (r *Runner) RunSingle(ctx context.Context, id string) (*JobResult, error) {
	discovered, err := r.jobsMgr.DiscoverJobs()
	if err != nil {
		return nil, err
	}
	if err := r.store.SyncWithJobs(discovered); err != nil {
		return nil, err
	}

	prompts, err := r.loadPrompts()
	if err != nil {
		return nil, err
	}
	return r.runJob(ctx, id, prompts)
}

// RunAll executes every ready job strictly sequentially in id order.
func (r *Runner) RunAll(ctx context.Context, opts Options) (*RunSummary, error) {
	if opts.JobTimeout > 0 {
		r.jobTimeout = opts.JobTimeout
	}

	toRun, err := r.prepare(opts)
	if err != nil {
		return nil, err
	}
	summary := &RunSummary{}
	if len(toRun) == 0 {
		r.log.Info("no jobs to process")
		return summary, nil
	}

	prompts, err := r.loadPrompts()
	if err != nil {
		return nil, err
	}

	r.log.Info("processing jobs", zap.Int("count", len(toRun)))
	for i, id := range toRun {
		res, err := r.runJob(ctx, id, prompts)
		if err != nil {
			return summary, err
		}
		summary.record(res)

		if opts.StopOnFail && res.Status == status.Fail {
			r.log.Info("stopping after failure (stop-on-fail)")
			summary.Skipped = len(toRun) - i - 1
			break
		}
	}

	r.log.Info("run complete",
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// RunBatch executes jobs grouped by dependency level. Groups run
// strictly in order; within a group up to MaxConcurrent jobs run in
// parallel (0 = unbounded). With StopOnFail, in-flight jobs in the
// failing group finish and everything unprocessed is skipped.
func (r *Runner) RunBatch(ctx context.Context, opts Options) (*RunSummary, error) {
	if opts.JobTimeout > 0 {
		r.jobTimeout = opts.JobTimeout
	}

	toRun, err := r.prepare(opts)
	if err != nil {
		return nil, err
	}
	summary := &RunSummary{}
	if len(toRun) == 0 {
		r.log.Info("no jobs to process")
		return summary, nil
	}

	var parsed []*job.Job
	for _, id := range toRun {
		j, err := r.jobsMgr.ParseJob(id)
		if err != nil {
			// Unparseable jobs fail up front rather than poisoning the
			// graph.
			summary.record(r.failJob(id, err.Error()))
			continue
		}
		parsed = append(parsed, j)
	}

	graph, err := deps.Build(parsed, r.log)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(parsed))
	for i, j := range parsed {
		ids[i] = j.ID
	}
	groups, err := graph.ExecutionGroups(ids)
	if err != nil {
		return nil, err
	}

	prompts, err := r.loadPrompts()
	if err != nil {
		return nil, err
	}

	r.log.Info("processing jobs in dependency groups",
		zap.Int("jobs", len(ids)), zap.Int("groups", len(groups)))

	var stopped atomic.Bool
	var infraErr error
	var mu sync.Mutex

	for gi, group := range groups {
		if stopped.Load() || infraErr != nil {
			summary.Skipped += len(group)
			continue
		}

		r.log.Info("batch group",
			zap.Int("group", gi+1), zap.Int("of", len(groups)),
			zap.Int("jobs", len(group)))

		eg, groupCtx := errgroup.WithContext(ctx)
		if opts.MaxConcurrent > 0 {
			eg.SetLimit(opts.MaxConcurrent)
		}

		for _, id := range group {
			id := id
			if stopped.Load() {
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				continue
			}
			eg.Go(func() error {
				res, err := r.runJob(groupCtx, id, prompts)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if infraErr == nil {
						infraErr = err
					}
					stopped.Store(true)
					return nil
				}
				summary.record(res)
				if opts.StopOnFail && res.Status == status.Fail {
					r.log.Info("stopping batch after failure (stop-on-fail)",
						zap.String("job", id))
					stopped.Store(true)
				}
				return nil
			})
		}
		// Barrier: in-flight jobs always finish before the group ends.
		_ = eg.Wait()
	}

	if infraErr != nil {
		return summary, infraErr
	}

	r.log.Info("batch complete",
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}
