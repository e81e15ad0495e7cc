package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/worksplit/internal/config"
)

var (
	resetFlagAllStuck bool
	resetFlagPrune    bool
)

var resetCmd = &cobra.Command{
	Use:   "reset [job-id]",
	Short: "Reset a job (or all stuck jobs) back to created",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := newAppContext(config.Overrides{})
		if err != nil {
			return err
		}
		defer cleanup()

		out := cmd.OutOrStdout()

		if resetFlagPrune {
			ids, err := app.jobsMgr.DiscoverJobs()
			if err != nil {
				return err
			}
			if err := app.store.Prune(ids); err != nil {
				return err
			}
			fmt.Fprintln(out, "pruned status entries without job files")
		}

		switch {
		case len(args) == 1:
			if err := app.store.ResetJob(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out, "reset %s to created\n", args[0])
		case resetFlagAllStuck:
			stuck := app.store.GetStuckJobs()
			for _, e := range stuck {
				if err := app.store.ResetJob(e.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "reset %s to created\n", e.ID)
			}
			fmt.Fprintf(out, "%s reset\n", plural(len(stuck), "stuck job"))
		case !resetFlagPrune:
			return fmt.Errorf("pass a job id or --all-stuck")
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetFlagAllStuck, "all-stuck", false, "reset every stuck job")
	resetCmd.Flags().BoolVar(&resetFlagPrune, "prune", false, "drop status entries whose job file is gone")
}
