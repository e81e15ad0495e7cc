package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/worksplit/internal/archive"
	"github.com/lucasnoah/worksplit/internal/config"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move passed job files into jobs/archive/",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := newAppContext(config.Overrides{})
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := archive.CompletedJobs(app.jobsMgr.JobsDir(), app.store, app.log)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, id := range res.Archived {
			fmt.Fprintf(out, "archived %s\n", id)
		}
		fmt.Fprintf(out, "%s archived, %d skipped\n",
			plural(len(res.Archived), "job"), len(res.Skipped))
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete archived job files past the retention age",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := newAppContext(config.Overrides{})
		if err != nil {
			return err
		}
		defer cleanup()

		if !app.cfg.Cleanup.Enabled {
			fmt.Fprintln(cmd.OutOrStdout(), "cleanup is disabled; enable it in worksplit.toml [cleanup]")
			return nil
		}

		maxAge := time.Duration(app.cfg.Cleanup.Days) * 24 * time.Hour
		deleted, err := archive.Cleanup(app.jobsMgr.JobsDir(), maxAge, app.log)
		if err != nil {
			return err
		}
		for _, name := range deleted {
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", plural(len(deleted), "file"))
		return nil
	},
}
