package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/worksplit/internal/config"
	"github.com/lucasnoah/worksplit/internal/deps"
	"github.com/lucasnoah/worksplit/internal/job"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Show the dependency graph and execution groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := newAppContext(config.Overrides{})
		if err != nil {
			return err
		}
		defer cleanup()

		ids, err := app.jobsMgr.DiscoverJobs()
		if err != nil {
			return err
		}

		var parsed []*job.Job
		for _, id := range ids {
			j, err := app.jobsMgr.ParseJob(id)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "skipping %s: %v\n", id, err)
				continue
			}
			parsed = append(parsed, j)
		}

		graph, err := deps.Build(parsed, app.log)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, j := range parsed {
			dependencies := graph.Dependencies(j.ID)
			if len(dependencies) == 0 {
				fmt.Fprintf(out, "%s: no dependencies\n", j.ID)
				continue
			}
			fmt.Fprintf(out, "%s: depends on %v\n", j.ID, dependencies)
		}

		ready := make([]string, 0, len(parsed))
		for _, j := range parsed {
			ready = append(ready, j.ID)
		}
		groups, err := graph.ExecutionGroups(ready)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\nExecution groups:")
		for i, g := range groups {
			fmt.Fprintf(out, "  %d: %v\n", i+1, g)
		}
		return nil
	},
}
