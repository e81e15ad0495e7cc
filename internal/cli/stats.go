package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/worksplit/internal/analytics"
	"github.com/lucasnoah/worksplit/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics from the event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := newAppContext(config.Overrides{})
		if err != nil {
			return err
		}
		defer cleanup()

		if app.eventDB == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "event log disabled or unavailable")
			return nil
		}

		report, err := analytics.BuildReport(app.eventDB)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(report.Jobs) == 0 {
			fmt.Fprintln(out, "no recorded runs yet")
			return nil
		}

		fmt.Fprintf(out, "%-30s %-8s %-10s %-12s %s\n", "JOB", "EVENTS", "LLM CALLS", "MEAN CALL", "LAST")
		for _, js := range report.Jobs {
			fmt.Fprintf(out, "%-30s %-8d %-10d %-12s %s\n",
				js.JobID, js.Events, js.LLMCalls,
				fmt.Sprintf("%dms", js.MeanCallMs), js.LastStatus)
		}

		if len(report.Phases) > 0 {
			fmt.Fprintln(out, "\nPhase latency:")
			for _, ps := range report.Phases {
				fmt.Fprintf(out, "  %-10s %d calls, mean %dms, %.0f%% failed\n",
					ps.Phase, ps.Calls, ps.MeanMs, ps.FailedRate*100)
			}
		}
		fmt.Fprintf(out, "\nbuild runs: %d (%d failed)\n", report.BuildRuns, report.BuildFails)
		return nil
	},
}
