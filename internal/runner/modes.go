package runner

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/extract"
	"github.com/lucasnoah/worksplit/internal/job"
	"github.com/lucasnoah/worksplit/internal/prompt"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

// runReplace handles the default mode: one generation call, one or more
// extracted files staged and written.
func (r *Runner) runReplace(ctx context.Context, j *job.Job, ctxFiles []prompt.File,
	prompts *systemPrompts) (*genOutcome, error) {
	outputPath := j.Meta.OutputPath()
	genPrompt := prompt.Creation(prompts.create, ctxFiles, j.Instructions, outputPath)

	reply, err := r.callLLM(ctx, j.ID, "generate", prompt.SystemCreate, genPrompt,
		r.cfg.Behavior.StreamOutput, true)
	if err != nil {
		return nil, err
	}

	outcome := &genOutcome{}
	for _, f := range extract.Files(reply) {
		rel := f.Path
		if rel == "" {
			rel = outputPath
		}
		outcome.files = append(outcome.files, prompt.File{Path: rel, Content: f.Content})
		outcome.totalLines += extract.CountLines(f.Content)
	}

	for _, f := range outcome.files {
		full := filepath.Join(r.projectRoot, f.Path)
		if err := r.safeWrite(full, f.Content); err != nil {
			return nil, err
		}
		outcome.fullPaths = append(outcome.fullPaths, full)
	}
	return outcome, nil
}

// runSequential generates each declared output with its own call,
// feeding earlier outputs forward as context.
func (r *Runner) runSequential(ctx context.Context, j *job.Job, ctxFiles []prompt.File,
	prompts *systemPrompts) (*genOutcome, error) {
	outputFiles := j.Meta.GetOutputFiles()
	outcome := &genOutcome{}
	var previouslyGenerated []prompt.File

	for idx, outputPath := range outputFiles {
		remaining := outputFiles[idx+1:]
		r.log.Info("sequential generation",
			zap.String("job", j.ID),
			zap.String("file", outputPath),
			zap.Int("index", idx+1), zap.Int("total", len(outputFiles)))

		seqPrompt := prompt.SequentialCreation(prompts.create, ctxFiles, previouslyGenerated,
			j.Instructions, outputPath, remaining)
		reply, err := r.callLLM(ctx, j.ID, "generate", prompt.SystemCreate, seqPrompt,
			r.cfg.Behavior.StreamOutput, true)
		if err != nil {
			return nil, err
		}

		content := firstExtracted(reply)
		if content == "" {
			return nil, &wserr.EditFailed{Msg: fmt.Sprintf(
				"sequential generation produced no content for %s", outputPath)}
		}

		full := filepath.Join(r.projectRoot, outputPath)
		if err := r.safeWrite(full, content); err != nil {
			return nil, err
		}

		f := prompt.File{Path: outputPath, Content: content}
		previouslyGenerated = append(previouslyGenerated, f)
		outcome.files = append(outcome.files, f)
		outcome.fullPaths = append(outcome.fullPaths, full)
		outcome.totalLines += extract.CountLines(content)
	}
	return outcome, nil
}

// runSplit is sequential generation with the oversized target loaded
// once as primary context. The target file itself is never deleted.
func (r *Runner) runSplit(ctx context.Context, j *job.Job, ctxFiles []prompt.File,
	prompts *systemPrompts) (*genOutcome, error) {
	splitSystem := prompts.split
	if splitSystem == "" {
		return nil, &wserr.SystemPromptNotFound{
			Path: filepath.Join(r.jobsMgr.JobsDir(), "_systemprompt_split.md")}
	}

	targetPath := j.Meta.TargetFile
	targetContent, err := r.jobsMgr.LoadTargetFileUnlimited(targetPath)
	if err != nil {
		return nil, err
	}
	target := prompt.File{Path: targetPath, Content: targetContent}

	outputFiles := j.Meta.GetOutputFiles()
	r.log.Info("split mode",
		zap.String("job", j.ID),
		zap.String("target", targetPath),
		zap.Int("outputs", len(outputFiles)))

	outcome := &genOutcome{}
	var previouslyGenerated []prompt.File

	for idx, outputPath := range outputFiles {
		remaining := outputFiles[idx+1:]
		splitPrompt := prompt.SequentialSplit(splitSystem, target, ctxFiles,
			previouslyGenerated, j.Instructions, outputPath, remaining)
		reply, err := r.callLLM(ctx, j.ID, "generate", prompt.SystemCreate, splitPrompt,
			r.cfg.Behavior.StreamOutput, true)
		if err != nil {
			return nil, err
		}

		content := firstExtracted(reply)
		if content == "" {
			return nil, &wserr.EditFailed{Msg: fmt.Sprintf(
				"split produced no content for %s", outputPath)}
		}

		full := filepath.Join(r.projectRoot, outputPath)
		if err := r.safeWrite(full, content); err != nil {
			return nil, err
		}

		f := prompt.File{Path: outputPath, Content: content}
		previouslyGenerated = append(previouslyGenerated, f)
		outcome.files = append(outcome.files, f)
		outcome.fullPaths = append(outcome.fullPaths, full)
		outcome.totalLines += extract.CountLines(content)
	}
	return outcome, nil
}

// runReplacePattern applies AFTER/INSERT instructions to every target.
func (r *Runner) runReplacePattern(ctx context.Context, j *job.Job, ctxFiles []prompt.File,
	prompts *systemPrompts) (*genOutcome, error) {
	targets, err := r.loadTargets(j.Meta.GetTargetFiles())
	if err != nil {
		return nil, err
	}

	patPrompt := prompt.ReplacePattern(prompts.edit, targets, ctxFiles, j.Instructions)
	reply, err := r.callLLM(ctx, j.ID, "generate", prompt.SystemEdit, patPrompt,
		r.cfg.Behavior.StreamOutput, true)
	if err != nil {
		return nil, err
	}

	patterns := extract.ParseReplacePatterns(reply)
	if len(patterns.Instructions) == 0 {
		return nil, &wserr.EditFailed{Msg: "no AFTER/INSERT instructions in reply"}
	}

	outcome := &genOutcome{}
	for _, target := range targets {
		updated, err := extract.ApplyReplacePatterns(target.Content, patterns)
		if err != nil {
			return nil, &wserr.EditFailed{Msg: fmt.Sprintf("%s: %v", target.Path, err)}
		}
		full := filepath.Join(r.projectRoot, target.Path)
		if err := r.safeWrite(full, updated); err != nil {
			return nil, err
		}
		outcome.files = append(outcome.files, prompt.File{Path: target.Path, Content: updated})
		outcome.fullPaths = append(outcome.fullPaths, full)
		outcome.totalLines += extract.CountLines(updated)
	}
	return outcome, nil
}

// runUpdateFixtures inserts the configured field into struct literals.
// Fully deterministic: no LLM call.
func (r *Runner) runUpdateFixtures(j *job.Job) (*genOutcome, error) {
	targets, err := r.loadTargets(j.Meta.GetTargetFiles())
	if err != nil {
		return nil, err
	}

	outcome := &genOutcome{}
	for _, target := range targets {
		updated, err := extract.InsertFieldIntoStructLiterals(
			target.Content, j.Meta.StructName, j.Meta.NewField)
		if err != nil {
			return nil, &wserr.EditFailed{Msg: fmt.Sprintf("%s: %v", target.Path, err)}
		}
		full := filepath.Join(r.projectRoot, target.Path)
		if err := r.safeWrite(full, updated); err != nil {
			return nil, err
		}
		outcome.files = append(outcome.files, prompt.File{Path: target.Path, Content: updated})
		outcome.fullPaths = append(outcome.fullPaths, full)
		outcome.totalLines += extract.CountLines(updated)
	}
	return outcome, nil
}

// loadTargets reads target files under the size budget.
func (r *Runner) loadTargets(paths []string) ([]prompt.File, error) {
	var targets []prompt.File
	for _, rel := range paths {
		content, err := r.jobsMgr.LoadTargetFile(rel)
		if err != nil {
			return nil, err
		}
		targets = append(targets, prompt.File{Path: rel, Content: content})
	}
	return targets, nil
}

// firstExtracted returns the first extracted file's content, falling
// back to the joined form.
func firstExtracted(reply string) string {
	files := extract.Files(reply)
	if len(files) > 0 {
		return files[0].Content
	}
	return extract.Code(reply)
}
