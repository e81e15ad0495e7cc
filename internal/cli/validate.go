package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/worksplit/internal/config"
	"github.com/lucasnoah/worksplit/internal/wserr"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate every job file",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := newAppContext(config.Overrides{})
		if err != nil {
			return err
		}
		defer cleanup()

		results, err := app.parseAllJobs()
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(results))
		for id := range results {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		out := cmd.OutOrStdout()
		invalid := 0
		for _, id := range ids {
			if parseErr := results[id]; parseErr != nil {
				invalid++
				fmt.Fprintf(out, "INVALID %s: %v\n", id, parseErr)
			} else {
				fmt.Fprintf(out, "ok      %s\n", id)
			}
		}
		fmt.Fprintf(out, "%s checked, %d invalid\n", plural(len(ids), "job"), invalid)

		if invalid > 0 {
			return &wserr.RunFailed{Count: invalid}
		}
		return nil
	},
}
