package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/worksplit/internal/config"
	"github.com/lucasnoah/worksplit/internal/status"
)

var (
	statusFlagJSON   bool
	statusFlagFailed bool
)

// statusEntryView is the stable machine-readable shape for --json.
type statusEntryView struct {
	ID             string                   `json:"id"`
	Status         status.JobStatus         `json:"status"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	Error          string                   `json:"error,omitempty"`
	OutputPaths    []string                 `json:"output_paths,omitempty"`
	RetryAttempted bool                     `json:"retry_attempted,omitempty"`
	PartialState   *status.PartialEditState `json:"partial_state,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show job statuses",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := newAppContext(config.Overrides{})
		if err != nil {
			return err
		}
		defer cleanup()

		// Surface jobs added since the last run.
		if ids, err := app.jobsMgr.DiscoverJobs(); err == nil {
			if err := app.store.SyncWithJobs(ids); err != nil {
				return err
			}
		}

		entries := app.store.AllEntries()
		if statusFlagFailed {
			var failed []status.Entry
			for _, e := range entries {
				if e.Status == status.Fail {
					failed = append(failed, e)
				}
			}
			entries = failed
		}

		out := cmd.OutOrStdout()
		if statusFlagJSON {
			views := make([]statusEntryView, 0, len(entries))
			for _, e := range entries {
				views = append(views, statusEntryView{
					ID:             e.ID,
					Status:         e.Status,
					CreatedAt:      e.CreatedAt,
					UpdatedAt:      e.UpdatedAt,
					Error:          e.Error,
					OutputPaths:    e.OutputPaths,
					RetryAttempted: e.RetryAttempted,
					PartialState:   e.PartialState,
				})
			}
			data, err := json.MarshalIndent(views, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "No jobs found.")
			return nil
		}

		fmt.Fprintf(out, "%-30s %-22s %-7s %s\n", "JOB", "STATUS", "RETRY", "ERROR")
		fmt.Fprintf(out, "%s\n", strings.Repeat("-", 70))
		for _, e := range entries {
			retry := ""
			if e.RetryAttempted {
				retry = "yes"
			}
			errMsg := e.Error
			if len(errMsg) > 50 {
				errMsg = errMsg[:47] + "..."
			}
			fmt.Fprintf(out, "%-30s %-22s %-7s %s\n", e.ID, e.Status, retry, errMsg)
			if e.PartialState != nil {
				fmt.Fprintf(out, "    partial: %d applied, %d failed\n",
					len(e.PartialState.SuccessfulEdits), len(e.PartialState.FailedEdits))
			}
		}
		fmt.Fprintln(out, app.store.GetSummary())
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlagJSON, "json", false, "machine-readable output")
	statusCmd.Flags().BoolVar(&statusFlagFailed, "failed", false, "show only failed jobs")
}
