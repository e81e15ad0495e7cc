package cli

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/worksplit/internal/config"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id|all>",
	Short: "Cancel running or stuck jobs",
	Long: `cancel signals the process registered for a running job, which
finalizes the job as failed with "Cancelled by user". Stuck jobs from a
previous run have no live process; their entries are marked failed
directly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := newAppContext(config.Overrides{})
		if err != nil {
			return err
		}
		defer cleanup()

		out := cmd.OutOrStdout()
		target := args[0]

		running := app.store.RunningJobs()
		stuck := app.store.GetStuckJobs()

		if len(running) == 0 && len(stuck) == 0 {
			fmt.Fprintln(out, "No running or stuck jobs found.")
			return nil
		}

		cancelOne := func(id string) error {
			if pid, ok := running[id]; ok {
				// PIDs are only meaningful within the current process
				// lifetime; the signalled runner finalizes the job.
				if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
					fmt.Fprintf(out, "signal pid %d for %s: %v\n", pid, id, err)
				}
			}
			if err := app.store.SetFailed(id, wserr.ErrCancelled.Error()); err != nil {
				return err
			}
			app.store.ClearRunning(id)
			fmt.Fprintf(out, "Cancelled: %s\n", id)
			return nil
		}

		if target == "all" {
			seen := map[string]bool{}
			for id := range running {
				seen[id] = true
				if err := cancelOne(id); err != nil {
					return err
				}
			}
			for _, e := range stuck {
				if !seen[e.ID] {
					if err := cancelOne(e.ID); err != nil {
						return err
					}
				}
			}
			return nil
		}

		if _, err := app.store.Get(target); err != nil {
			return err
		}
		isStuck := false
		for _, e := range stuck {
			if e.ID == target {
				isStuck = true
			}
		}
		if _, isRunning := running[target]; !isRunning && !isStuck {
			fmt.Fprintf(out, "Job %q is not running.\n", target)
			return nil
		}
		return cancelOne(target)
	},
}
