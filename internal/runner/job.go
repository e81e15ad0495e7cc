package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/extract"
	"github.com/lucasnoah/worksplit/internal/job"
	"github.com/lucasnoah/worksplit/internal/prompt"
	"github.com/lucasnoah/worksplit/internal/status"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

// contextWindow is the token budget checked before generation.
const contextWindow = 32000

// JobResult is the per-job outcome surfaced to the scheduler and CLI.
type JobResult struct {
	JobID          string
	Status         status.JobStatus
	Error          string
	OutputPaths    []string
	OutputLines    int
	TestPath       string
	RetryAttempted bool
}

// genOutcome is what a mode-specific generation phase produces.
type genOutcome struct {
	// files are repo-relative outputs with their content.
	files []prompt.File
	// fullPaths are the absolute paths written.
	fullPaths []string
	totalLines int
	// partial is set by edit mode when some edits succeeded and some
	// failed.
	partial *status.PartialEditState
}

// failJob marks the job failed in the store and builds the result.
func (r *Runner) failJob(id, msg string) *JobResult {
	if err := r.store.SetFailed(id, msg); err != nil {
		r.log.Warn("persist failure status", zap.String("job", id), zap.Error(err))
	}
	r.events.JobEvent(r.runID, id, "finalize", string(status.Fail), msg)
	return &JobResult{JobID: id, Status: status.Fail, Error: msg}
}

// transition persists a status before entering the phase that needs it.
func (r *Runner) transition(id string, st status.JobStatus) error {
	if err := r.store.UpdateStatus(id, st); err != nil {
		return err
	}
	r.events.JobEvent(r.runID, id, "transition", string(st), "")
	return nil
}

// loadContextWithImplicit loads the declared context files; a replace
// job with no declared context that rewrites an existing file gets that
// file as implicit context so generation sees what it replaces.
func (r *Runner) loadContextWithImplicit(j *job.Job) ([]prompt.File, error) {
	ctxFiles, err := r.jobsMgr.LoadContextFiles(j)
	if err != nil {
		return nil, err
	}

	editFamily := j.Meta.Mode == job.ModeEdit || j.Meta.Mode == job.ModeReplacePattern ||
		j.Meta.Mode == job.ModeUpdateFixtures
	if len(ctxFiles) == 0 && !editFamily {
		rel := j.Meta.OutputPath()
		full := filepath.Join(r.projectRoot, rel)
		if _, statErr := os.Stat(full); statErr == nil {
			content, loadErr := r.jobsMgr.LoadContextFile(rel)
			if loadErr != nil {
				return nil, loadErr
			}
			r.log.Debug("added implicit context",
				zap.String("job", j.ID), zap.String("file", rel))
			ctxFiles = append(ctxFiles, prompt.File{Path: rel, Content: content})
		}
	}
	return ctxFiles, nil
}

// runJob executes the full pipeline for one job. Infrastructure errors
// are returned; job-level failures come back as a Fail result with the
// store already updated.
func (r *Runner) runJob(ctx context.Context, id string, prompts *systemPrompts) (*JobResult, error) {
	r.log.Info("processing job", zap.String("job", id))

	j, err := r.jobsMgr.ParseJob(id)
	if err != nil {
		return r.failJob(id, err.Error()), nil
	}

	ctxFiles, err := r.loadContextWithImplicit(j)
	if err != nil {
		var tooLarge *wserr.FileTooLarge
		if errors.As(err, &tooLarge) {
			// Fail fast; no generation happens for oversized context.
			return nil, err
		}
		return r.failJob(id, err.Error()), nil
	}

	estimated, _, exceeded := r.jobsMgr.CheckTokenBudget(prompts.create, ctxFiles, j.Instructions, contextWindow)
	if exceeded {
		budgetErr := &wserr.ContextBudgetExceeded{Estimated: estimated, Max: contextWindow}
		return r.failJob(id, budgetErr.Error()), nil
	}

	r.store.RegisterRunning(id, os.Getpid())
	defer r.store.ClearRunning(id)

	result := &JobResult{JobID: id}

	// TDD pre-phase: generate the test before the implementation.
	if j.Meta.IsTDD() {
		if prompts.test == "" {
			return nil, &wserr.SystemPromptNotFound{
				Path: filepath.Join(r.jobsMgr.JobsDir(), "_systemprompt_test.md")}
		}
		if err := r.transition(id, status.PendingTest); err != nil {
			return nil, err
		}

		testPath := j.Meta.TestPath()
		testPrompt := prompt.Test(prompts.test, ctxFiles, j.Instructions, testPath)
		reply, err := r.callLLM(ctx, id, "test", prompt.SystemTest, testPrompt,
			r.cfg.Behavior.StreamOutput, true)
		if err != nil {
			return r.failJob(id, err.Error()), nil
		}

		testCode := extract.Code(reply)
		fullTestPath := filepath.Join(r.projectRoot, testPath)
		if err := r.safeWrite(fullTestPath, testCode); err != nil {
			return nil, err
		}
		result.TestPath = fullTestPath
	}

	if err := r.transition(id, status.PendingWork); err != nil {
		return nil, err
	}

	var outcome *genOutcome
	switch {
	case j.Meta.Mode == job.ModeEdit:
		outcome, err = r.runEdit(ctx, j, ctxFiles, prompts)
	case j.Meta.Mode == job.ModeReplacePattern:
		outcome, err = r.runReplacePattern(ctx, j, ctxFiles, prompts)
	case j.Meta.Mode == job.ModeUpdateFixtures:
		outcome, err = r.runUpdateFixtures(j)
	case j.Meta.Mode == job.ModeSplit:
		outcome, err = r.runSplit(ctx, j, ctxFiles, prompts)
	case j.Meta.IsSequential():
		outcome, err = r.runSequential(ctx, j, ctxFiles, prompts)
	default:
		outcome, err = r.runReplace(ctx, j, ctxFiles, prompts)
	}
	if err != nil {
		var protected *wserr.ProtectedPathWrite
		if errors.As(err, &protected) {
			return nil, err
		}
		return r.failJob(id, err.Error()), nil
	}

	result.OutputPaths = outcome.fullPaths
	result.OutputLines = outcome.totalLines

	if outcome.totalLines > r.cfg.Limits.MaxOutputLines {
		r.log.Warn("generated output exceeds line limit",
			zap.String("job", id),
			zap.Int("lines", outcome.totalLines),
			zap.Int("limit", r.cfg.Limits.MaxOutputLines))
	}

	// Partial edit completion is terminal: successes stay on disk, the
	// failures are preserved for inspection, verification is skipped.
	if outcome.partial != nil {
		if err := r.store.SetPartial(id, *outcome.partial); err != nil {
			return nil, err
		}
		if err := r.store.SetOutputs(id, outcome.fullPaths); err != nil {
			return nil, err
		}
		r.events.JobEvent(r.runID, id, "finalize", string(status.Partial),
			fmt.Sprintf("%d ok, %d failed",
				len(outcome.partial.SuccessfulEdits), len(outcome.partial.FailedEdits)))
		result.Status = status.Partial
		result.Error = fmt.Sprintf("%d of %d edits failed",
			len(outcome.partial.FailedEdits),
			len(outcome.partial.FailedEdits)+len(outcome.partial.SuccessfulEdits))
		return result, nil
	}

	finalStatus := status.Pass
	finalError := ""

	if !j.Meta.ShouldVerify() {
		r.log.Info("verification skipped", zap.String("job", id))
	} else {
		if err := r.transition(id, status.PendingVerification); err != nil {
			return nil, err
		}

		verifySystem := prompts.verify
		if j.Meta.Mode == job.ModeEdit {
			verifySystem = prompts.verifyEdit
		}

		verdict, reason, err := r.runVerification(ctx, j, verifySystem, ctxFiles, outcome.files)
		if err != nil {
			return r.failJob(id, err.Error()), nil
		}

		if !verdict.IsPass() {
			// One retry with the verifier's feedback folded in.
			r.log.Info("verification failed, retrying",
				zap.String("job", id), zap.String("reason", reason))
			result.RetryAttempted = true
			if err := r.store.SetRetryAttempted(id); err != nil {
				return nil, err
			}

			retryFiles, err := r.runRetry(ctx, j, prompts.create, ctxFiles, outcome.files, reason)
			if err != nil {
				return r.failJob(id, err.Error()), nil
			}
			if len(retryFiles) > 0 {
				var fullPaths []string
				for _, f := range retryFiles {
					full := filepath.Join(r.projectRoot, f.Path)
					if err := r.safeWrite(full, f.Content); err != nil {
						return nil, err
					}
					fullPaths = append(fullPaths, full)
				}
				outcome.files = retryFiles
				outcome.fullPaths = fullPaths
				result.OutputPaths = fullPaths
			}

			verdict, reason, err = r.runVerification(ctx, j, verifySystem, ctxFiles, outcome.files)
			if err != nil {
				return r.failJob(id, err.Error()), nil
			}
		}

		if verdict.IsPass() {
			finalStatus = status.Pass
			if j.Meta.IsTDD() {
				if err := r.transition(id, status.PendingTestRun); err != nil {
					return nil, err
				}
				// Test execution is not performed yet; the verdict stands.
				r.log.Info("test execution deferred", zap.String("job", id))
			}
		} else {
			finalStatus = status.Fail
			finalError = reason
			if finalError == "" {
				finalError = "verification failed"
			}
		}
	}

	// Build verification runs last, over whatever content the retry left
	// on disk, so the files being marked Pass are the ones checked.
	if finalStatus != status.Fail {
		if err := r.verifyWithBuild(ctx, j); err != nil {
			res := r.failJob(id, err.Error())
			res.OutputPaths = result.OutputPaths
			res.OutputLines = result.OutputLines
			res.TestPath = result.TestPath
			res.RetryAttempted = result.RetryAttempted
			return res, nil
		}
	}

	if finalStatus == status.Fail {
		res := r.failJob(id, finalError)
		res.OutputPaths = result.OutputPaths
		res.OutputLines = result.OutputLines
		res.TestPath = result.TestPath
		res.RetryAttempted = result.RetryAttempted
		return res, nil
	}

	if err := r.store.UpdateStatus(id, finalStatus); err != nil {
		return nil, err
	}
	if err := r.store.SetOutputs(id, outcome.fullPaths); err != nil {
		return nil, err
	}
	r.events.JobEvent(r.runID, id, "finalize", string(finalStatus), "")

	r.log.Info("generation complete; wire the new code into its callers",
		zap.String("job", id))
	result.Status = finalStatus
	return result, nil
}

// runVerification asks the verifier for a verdict over generated files.
func (r *Runner) runVerification(ctx context.Context, j *job.Job, verifySystem string,
	ctxFiles, generated []prompt.File) (extract.VerificationResult, string, error) {
	verifyPrompt := prompt.Verification(verifySystem, ctxFiles, generated, j.Instructions)
	reply, err := r.callLLM(ctx, j.ID, "verify", prompt.SystemVerify, verifyPrompt, false, false)
	if err != nil {
		return extract.VerifyFailHard, "", err
	}
	verdict, reason := extract.ParseVerification(reply)
	r.log.Info("verification result",
		zap.String("job", j.ID), zap.String("verdict", verdict.String()))
	return verdict, reason, nil
}

// runRetry regenerates outputs with the previous attempt and verifier
// feedback in the prompt. Extracted files without a path fall back to
// the single previous output when unambiguous.
func (r *Runner) runRetry(ctx context.Context, j *job.Job, createPrompt string,
	ctxFiles, previous []prompt.File, feedback string) ([]prompt.File, error) {
	retryPrompt := prompt.Retry(createPrompt, ctxFiles, j.Instructions, previous, feedback)
	reply, err := r.callLLM(ctx, j.ID, "retry", prompt.SystemRetry, retryPrompt,
		r.cfg.Behavior.StreamOutput, false)
	if err != nil {
		return nil, err
	}

	var files []prompt.File
	for _, f := range extract.Files(reply) {
		switch {
		case f.Path != "":
			files = append(files, prompt.File{Path: f.Path, Content: f.Content})
		case len(previous) == 1:
			files = append(files, prompt.File{Path: previous[0].Path, Content: f.Content})
		}
	}
	return files, nil
}
