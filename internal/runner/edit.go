package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/extract"
	"github.com/lucasnoah/worksplit/internal/job"
	"github.com/lucasnoah/worksplit/internal/prompt"
	"github.com/lucasnoah/worksplit/internal/status"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

// findPreviewLen truncates FIND text in partial-state records.
const findPreviewLen = 50

// runEdit drives edit mode: one generation call, parsed into edit
// instructions, applied per target in reply order. A failing edit aborts
// the rest of its file but other files proceed; files with at least one
// applied edit are written. Mixed outcomes surface as partial state.
func (r *Runner) runEdit(ctx context.Context, j *job.Job, ctxFiles []prompt.File,
	prompts *systemPrompts) (*genOutcome, error) {
	targets, err := r.loadTargets(j.Meta.GetTargetFiles())
	if err != nil {
		return nil, err
	}

	editPrompt := prompt.Edit(prompts.edit, targets, ctxFiles, j.Instructions)
	reply, err := r.callLLM(ctx, j.ID, "generate", prompt.SystemEdit, editPrompt,
		r.cfg.Behavior.StreamOutput, true)
	if err != nil {
		return nil, err
	}

	parsed := extract.ParseEdits(reply)
	if len(parsed.Edits) == 0 {
		return nil, &wserr.EditFailed{Msg: "edit mode produced no edits"}
	}

	outcome := &genOutcome{}
	var partial status.PartialEditState

	for _, target := range targets {
		fileEdits := parsed.EditsForFile(target.Path)
		if len(fileEdits) == 0 {
			continue
		}

		current := target.Content
		applied := 0
		for i, edit := range fileEdits {
			next, err := extract.ApplyEdit(current, edit)
			if err != nil {
				var applyErr *extract.EditApplyError
				failed := status.FailedEdit{
					FilePath:    edit.File,
					FindPreview: previewString(edit.Find, findPreviewLen),
					Reason:      "FIND text not found",
				}
				if errors.As(err, &applyErr) && len(applyErr.FuzzyMatches) > 0 {
					line := applyErr.FuzzyMatches[0].Line
					failed.SuggestedLine = &line
				}
				partial.FailedEdits = append(partial.FailedEdits, failed)

				// Later edits may depend on this one's result; skip the
				// rest of this file.
				for _, skipped := range fileEdits[i+1:] {
					partial.FailedEdits = append(partial.FailedEdits, status.FailedEdit{
						FilePath:    skipped.File,
						FindPreview: previewString(skipped.Find, findPreviewLen),
						Reason:      "skipped after earlier edit failed",
					})
				}
				break
			}
			current = next
			applied++
			partial.SuccessfulEdits = append(partial.SuccessfulEdits, status.SuccessfulEdit{
				FilePath:    edit.File,
				FindPreview: previewString(edit.Find, findPreviewLen),
			})
		}

		if applied > 0 {
			full := filepath.Join(r.projectRoot, target.Path)
			if err := r.safeWrite(full, current); err != nil {
				return nil, err
			}
			outcome.files = append(outcome.files, prompt.File{Path: target.Path, Content: current})
			outcome.fullPaths = append(outcome.fullPaths, full)
			outcome.totalLines += extract.CountLines(current)
		}
	}

	switch {
	case len(partial.SuccessfulEdits) == 0:
		// Nothing applied at all.
		suggestions := editSuggestions(partial.FailedEdits, len(parsed.Edits))
		return nil, &wserr.EditFailedWithSuggestions{
			Msg:         "all edits failed",
			Suggestions: suggestions,
		}
	case len(partial.FailedEdits) > 0:
		outcome.partial = &partial
	}

	r.log.Info("edit mode complete",
		zap.String("job", j.ID),
		zap.Int("applied", len(partial.SuccessfulEdits)),
		zap.Int("failed", len(partial.FailedEdits)))
	return outcome, nil
}

// editSuggestions derives actionable hints from failed edits.
func editSuggestions(failed []status.FailedEdit, editCount int) []string {
	var out []string
	if editCount > 10 {
		out = append(out, fmt.Sprintf(
			"consider replace mode: this job has %d edits, replace is safer", editCount))
	}
	for _, f := range failed {
		if f.SuggestedLine != nil {
			out = append(out, fmt.Sprintf("for %q: check line %d in %s",
				f.FindPreview, *f.SuggestedLine, f.FilePath))
		}
	}
	if len(out) == 0 {
		out = append(out, "check whitespace: the target may use different indentation")
	}
	return out
}

func previewString(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
