package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/worksplit/internal/jobs"
	"github.com/lucasnoah/worksplit/internal/prompt"
)

const sampleJob = `---
context_files: []
output_dir: src/
output_file: greeting.rs
---
Create a function greet(name: &str) -> String that returns a friendly
greeting for the given name.
`

const sampleConfig = `[ollama]
url = "http://localhost:11434"
model = "qwen-32k:latest"
timeout_seconds = 300

[limits]
max_output_lines = 900
max_context_lines = 1000
max_context_files = 2

[behavior]
stream_output = true
create_output_dirs = true

[build]
# build_command = "cargo build"
# verify_build = true
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold the jobs directory, prompt files, and config",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}

		jobsDir := filepath.Join(root, "jobs")
		if err := os.MkdirAll(jobsDir, 0o755); err != nil {
			return fmt.Errorf("create jobs dir: %w", err)
		}

		out := cmd.OutOrStdout()
		files := map[string]string{
			filepath.Join(jobsDir, jobs.CreatePromptFile): prompt.SystemCreate,
			filepath.Join(jobsDir, jobs.VerifyPromptFile): prompt.SystemVerify,
			filepath.Join(jobsDir, jobs.EditPromptFile):   prompt.SystemEdit,
			filepath.Join(jobsDir, jobs.TestPromptFile):   prompt.SystemTest,
			filepath.Join(jobsDir, "example_greeting.md"): sampleJob,
			filepath.Join(root, "worksplit.toml"):         sampleConfig,
		}

		for path, content := range files {
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "exists  %s\n", path)
				continue
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(out, "created %s\n", path)
		}

		fmt.Fprintln(out, "\nEdit jobs/example_greeting.md and run: worksplit run")
		return nil
	},
}
