package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/config"
	"github.com/lucasnoah/worksplit/internal/runner"
	"github.com/lucasnoah/worksplit/internal/status"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

var (
	runFlagBatch         bool
	runFlagMaxConcurrent int
	runFlagResume        bool
	runFlagStopOnFail    bool
	runFlagDryRun        bool
	runFlagModel         string
	runFlagURL           string
	runFlagTimeout       int
	runFlagJobTimeout    int
	runFlagNoStream      bool
)

var runCmd = &cobra.Command{
	Use:   "run [job-id]",
	Short: "Run one job, or all ready jobs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := newAppContext(config.Overrides{
			Model:    runFlagModel,
			URL:      runFlagURL,
			Timeout:  runFlagTimeout,
			NoStream: runFlagNoStream,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		r := app.newRunner()
		if runFlagJobTimeout > 0 {
			r.SetJobTimeout(time.Duration(runFlagJobTimeout) * time.Second)
		}

		// External cancellation: a signal finalizes running jobs as
		// failed with the cancellation reason, then stops the pipeline.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			if ctx.Err() == context.Canceled {
				for id := range app.store.RunningJobs() {
					_ = app.store.SetFailed(id, wserr.ErrCancelled.Error())
					app.store.ClearRunning(id)
					app.log.Warn("job cancelled", zap.String("job", id))
				}
			}
		}()

		out := cmd.OutOrStdout()

		if len(args) == 1 {
			id := args[0]
			if runFlagDryRun {
				plan, err := r.DryRunJob(ctx, id)
				if err != nil {
					return err
				}
				plan.Print(out)
				return nil
			}
			res, err := r.RunSingle(ctx, id)
			if err != nil {
				return err
			}
			printResult(out, res)
			if res.Status == status.Fail {
				return &wserr.RunFailed{Count: 1}
			}
			return nil
		}

		if runFlagDryRun {
			return dryRunAll(ctx, app, r, out)
		}

		opts := runner.Options{
			ResumeStuck:   runFlagResume,
			StopOnFail:    runFlagStopOnFail,
			MaxConcurrent: runFlagMaxConcurrent,
		}
		var summary *runner.RunSummary
		if runFlagBatch {
			summary, err = r.RunBatch(ctx, opts)
		} else {
			summary, err = r.RunAll(ctx, opts)
		}
		if err != nil {
			return err
		}

		printSummary(out, summary)
		if summary.Failed > 0 {
			return &wserr.RunFailed{Count: summary.Failed}
		}
		return nil
	},
}

func dryRunAll(ctx context.Context, app *appContext, r *runner.Runner, out io.Writer) error {
	ids, err := app.jobsMgr.DiscoverJobs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		entry, err := app.store.Get(id)
		if err == nil && !entry.Status.IsReady() {
			continue
		}
		plan, err := r.DryRunJob(ctx, id)
		if err != nil {
			fmt.Fprintf(out, "[DRY RUN] Job: %s error: %v\n", id, err)
			continue
		}
		plan.Print(out)
	}
	return nil
}

func printResult(out io.Writer, res *runner.JobResult) {
	retry := ""
	if res.RetryAttempted {
		retry = " (retried)"
	}
	fmt.Fprintf(out, "%s: %s%s\n", res.JobID, res.Status, retry)
	if res.Error != "" {
		fmt.Fprintf(out, "  reason: %s\n", res.Error)
	}
	for _, p := range res.OutputPaths {
		fmt.Fprintf(out, "  wrote: %s\n", p)
	}
	if res.TestPath != "" {
		fmt.Fprintf(out, "  test:  %s\n", res.TestPath)
	}
}

func printSummary(out io.Writer, s *runner.RunSummary) {
	for i := range s.Results {
		printResult(out, &s.Results[i])
	}
	fmt.Fprintf(out, "processed: %d  passed: %d  failed: %d  skipped: %d\n",
		s.Processed, s.Passed, s.Failed, s.Skipped)
}

func init() {
	runCmd.Flags().BoolVar(&runFlagBatch, "batch", false, "dependency-aware parallel execution")
	runCmd.Flags().IntVar(&runFlagMaxConcurrent, "max-concurrent", 0, "max parallel jobs in batch mode (0 = unbounded)")
	runCmd.Flags().BoolVar(&runFlagResume, "resume", false, "re-queue stuck jobs")
	runCmd.Flags().BoolVar(&runFlagStopOnFail, "stop-on-fail", false, "stop scheduling after the first failure")
	runCmd.Flags().BoolVar(&runFlagDryRun, "dry-run", false, "plan without writing files or mutating status")
	runCmd.Flags().StringVar(&runFlagModel, "model", "", "model override")
	runCmd.Flags().StringVar(&runFlagURL, "url", "", "Ollama URL override")
	runCmd.Flags().IntVar(&runFlagTimeout, "timeout", 0, "request timeout override (seconds)")
	runCmd.Flags().IntVar(&runFlagJobTimeout, "job-timeout", 0, "per-LLM-call deadline override (seconds)")
	runCmd.Flags().BoolVar(&runFlagNoStream, "no-stream", false, "disable streaming output")
}
