package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lucasnoah/worksplit/internal/extract"
	"github.com/lucasnoah/worksplit/internal/job"
	"github.com/lucasnoah/worksplit/internal/prompt"
)

// PlannedEditStatus classifies one edit in a dry run.
type PlannedEditStatus string

const (
	// WillApply means the FIND text matches exactly.
	WillApply PlannedEditStatus = "will_apply"
	// WillApplyFuzzy means no exact occurrence exists but a fully
	// whitespace/case-equivalent window does; the edit needs that fixed
	// before a real run can apply it.
	WillApplyFuzzy PlannedEditStatus = "will_apply_fuzzy"
	// WillFail means no usable occurrence was found.
	WillFail PlannedEditStatus = "will_fail"
)

// PlannedEdit is one entry of a dry-run plan.
type PlannedEdit struct {
	File           string
	FindPreview    string
	ReplacePreview string
	Status         PlannedEditStatus
	// Hint carries the top fuzzy-match description for failures.
	Hint string
}

// DryRunResult is the plan a dry run produces. No files are written and
// no status is mutated.
type DryRunResult struct {
	JobID        string
	Mode         job.Mode
	PlannedEdits []PlannedEdit
	// PlannedOutputs lists the files a generation-mode job would write.
	PlannedOutputs []string
	Warnings       []string
}

// DryRunJob analyzes a job without writing anything. Edit mode performs
// generation and edit parsing and classifies each edit; generation
// modes report the planned outputs from metadata alone.
func (r *Runner) DryRunJob(ctx context.Context, id string) (*DryRunResult, error) {
	j, err := r.jobsMgr.ParseJob(id)
	if err != nil {
		return nil, err
	}

	res := &DryRunResult{JobID: id, Mode: j.Meta.Mode}

	if j.Meta.Mode != job.ModeEdit {
		switch j.Meta.Mode {
		case job.ModeReplacePattern, job.ModeUpdateFixtures:
			res.PlannedOutputs = j.Meta.GetTargetFiles()
		default:
			res.PlannedOutputs = j.Meta.GetOutputFiles()
		}
		return res, nil
	}

	ctxFiles, err := r.loadContextWithImplicit(j)
	if err != nil {
		return nil, err
	}
	targets, err := r.loadTargets(j.Meta.GetTargetFiles())
	if err != nil {
		return nil, err
	}

	prompts, err := r.loadPrompts()
	if err != nil {
		return nil, err
	}

	editPrompt := prompt.Edit(prompts.edit, targets, ctxFiles, j.Instructions)
	reply, err := r.callLLM(ctx, id, "dry_run", prompt.SystemEdit, editPrompt, false, true)
	if err != nil {
		return nil, err
	}

	parsed := extract.ParseEdits(reply)
	contents := map[string]string{}
	for _, t := range targets {
		contents[t.Path] = t.Content
	}

	for _, edit := range parsed.Edits {
		current, ok := contents[edit.File]
		if !ok {
			res.PlannedEdits = append(res.PlannedEdits, PlannedEdit{
				File:           edit.File,
				FindPreview:    previewString(edit.Find, findPreviewLen),
				ReplacePreview: previewString(edit.Replace, findPreviewLen),
				Status:         WillFail,
				Hint:           "not a target file",
			})
			continue
		}

		next, applyErr := extract.ApplyEdit(current, edit)
		if applyErr == nil {
			contents[edit.File] = next
			res.PlannedEdits = append(res.PlannedEdits, PlannedEdit{
				File:           edit.File,
				FindPreview:    previewString(edit.Find, findPreviewLen),
				ReplacePreview: previewString(edit.Replace, findPreviewLen),
				Status:         WillApply,
			})
			continue
		}

		planned := PlannedEdit{
			File:           edit.File,
			FindPreview:    previewString(edit.Find, findPreviewLen),
			ReplacePreview: previewString(edit.Replace, findPreviewLen),
			Status:         WillFail,
		}
		var ee *extract.EditApplyError
		if errors.As(applyErr, &ee) && len(ee.FuzzyMatches) > 0 {
			top := ee.FuzzyMatches[0]
			planned.Hint = fmt.Sprintf("line %d, %d%% similar (%s)",
				top.Line, top.Similarity, top.Hint)
			if top.Similarity == 100 {
				planned.Status = WillApplyFuzzy
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"%s: FIND differs only by %s near line %d",
					edit.File, top.Hint, top.Line))
			}
		}
		res.PlannedEdits = append(res.PlannedEdits, planned)
	}

	return res, nil
}

// Print renders the plan for humans.
func (d *DryRunResult) Print(w io.Writer) {
	fmt.Fprintf(w, "[DRY RUN] Job: %s (%s)\n", d.JobID, d.Mode)
	if len(d.PlannedOutputs) > 0 {
		fmt.Fprintln(w, "Planned outputs:")
		for _, p := range d.PlannedOutputs {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
	if len(d.PlannedEdits) > 0 {
		fmt.Fprintf(w, "Planned edits: %d\n", len(d.PlannedEdits))
		for _, e := range d.PlannedEdits {
			marker := "?"
			switch e.Status {
			case WillApply:
				marker = "ok"
			case WillApplyFuzzy:
				marker = "~"
			case WillFail:
				marker = "x"
			}
			fmt.Fprintf(w, "  [%s] %s: %q", marker, e.File, e.FindPreview)
			if e.Hint != "" {
				fmt.Fprintf(w, " (%s)", e.Hint)
			}
			fmt.Fprintln(w)
		}
	}
	for _, warning := range d.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
