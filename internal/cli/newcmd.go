package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/worksplit/internal/job"
)

var (
	newFlagMode   string
	newFlagTarget string
	newFlagOutput string
	newFlagDir    string
)

var jobNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var newCmd = &cobra.Command{
	Use:   "new <job-id>",
	Short: "Create a job file from a mode template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if !jobNameRe.MatchString(id) {
			return fmt.Errorf("invalid job name %q: use letters, digits, dashes, underscores", id)
		}

		mode := job.Mode(newFlagMode)
		if !mode.Valid() {
			return fmt.Errorf("unknown mode %q", newFlagMode)
		}

		root, err := projectRoot()
		if err != nil {
			return err
		}
		path := filepath.Join(root, "jobs", id+".md")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("job already exists: %s", path)
		}

		content := jobTemplate(id, mode, newFlagDir, newFlagOutput, newFlagTarget)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write job file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
		return nil
	},
}

func jobTemplate(id string, mode job.Mode, dir, output, target string) string {
	if dir == "" {
		dir = "src/"
	}
	if output == "" {
		output = id + ".rs"
	}

	switch mode {
	case job.ModeEdit:
		return fmt.Sprintf(`---
mode: edit
target_files:
  - %s
output_dir: %s
output_file: %s
---
Describe the surgical changes to make.
`, orPlaceholder(target), dir, output)
	case job.ModeSplit:
		return fmt.Sprintf(`---
mode: split
target_file: %s
output_files:
  - %spart_a.rs
  - %spart_b.rs
output_dir: %s
output_file: %s
---
Describe how to split the target file into the output modules.
`, orPlaceholder(target), dir, dir, dir, output)
	case job.ModeReplacePattern:
		return fmt.Sprintf(`---
mode: replace_pattern
target_files:
  - %s
output_dir: %s
output_file: %s
---
Describe the insertions to make after recurring patterns.
`, orPlaceholder(target), dir, output)
	case job.ModeUpdateFixtures:
		return fmt.Sprintf(`---
mode: update_fixtures
target_files:
  - %s
struct_name: ChangeMe
new_field: "field: value"
output_dir: %s
output_file: %s
---
Adds new_field to every ChangeMe struct literal in the targets.
`, orPlaceholder(target), dir, output)
	default:
		return fmt.Sprintf(`---
context_files: []
output_dir: %s
output_file: %s
---
Describe what to generate.
`, dir, output)
	}
}

func orPlaceholder(target string) string {
	if target == "" {
		return "src/change_me.rs"
	}
	return target
}

func init() {
	newCmd.Flags().StringVar(&newFlagMode, "mode", "replace", "job mode: replace|edit|split|replace_pattern|update_fixtures")
	newCmd.Flags().StringVar(&newFlagTarget, "target", "", "target file for edit-family and split modes")
	newCmd.Flags().StringVar(&newFlagOutput, "output", "", "output file name (default <job-id>.rs)")
	newCmd.Flags().StringVar(&newFlagDir, "dir", "src/", "output directory")
}
