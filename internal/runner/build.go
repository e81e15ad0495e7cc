package runner

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/job"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

// BuildRunner abstracts build/test command execution for testability.
type BuildRunner interface {
	// Run executes command via the shell in dir, returning the exit code
	// and combined stdout+stderr.
	Run(ctx context.Context, dir, command string) (exitCode int, combined string, err error)
}

// ShellRunner implements BuildRunner with `sh -c`.
type ShellRunner struct{}

func (ShellRunner) Run(ctx context.Context, dir, command string) (int, string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), out.String(), nil
		}
		return -1, out.String(), err
	}
	return 0, out.String(), nil
}

// verifyWithBuild runs the configured build command and, when enabled,
// the test command. A non-zero exit is a job failure with no retry.
func (r *Runner) verifyWithBuild(ctx context.Context, j *job.Job) error {
	if r.cfg.Build.VerifyBuild && r.cfg.Build.BuildCommand != "" {
		if err := r.runVerifyCommand(ctx, r.cfg.Build.BuildCommand); err != nil {
			return err
		}
	}
	if r.cfg.Build.VerifyTests && r.cfg.Build.TestCommand != "" {
		if err := r.runVerifyCommand(ctx, r.cfg.Build.TestCommand); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runVerifyCommand(ctx context.Context, command string) error {
	r.log.Info("running build verification", zap.String("command", command))
	start := time.Now()

	exitCode, output, err := r.build.Run(ctx, r.projectRoot, command)
	r.events.BuildRun(r.runID, command, exitCode, time.Since(start))
	if err != nil {
		return &wserr.BuildFailed{Command: command, Output: err.Error()}
	}
	if exitCode != 0 {
		return &wserr.BuildFailed{Command: command, Output: output}
	}
	return nil
}
