// Package cli wires the WorkSplit command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/logging"
)

var version = "dev"

// SetVersion records the build-time version string.
func SetVersion(v string) {
	version = v
}

var (
	flagVerbose  bool
	flagJSONLogs bool
	flagRoot     string
)

var rootCmd = &cobra.Command{
	Use:   "worksplit",
	Short: "worksplit — offload code generation jobs to a local LLM",
	Long: `worksplit drives declarative job files through a generation pipeline:
context assembly, LLM generation, verification, optional retry, and
on-disk materialization. Job files live in jobs/, status is tracked in
jobs/_jobstatus.json, and configuration comes from worksplit.toml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns any command error.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() *zap.Logger {
	return logging.New(logging.Options{Verbose: flagVerbose, JSON: flagJSONLogs})
}

// projectRoot resolves --root or the working directory.
func projectRoot() (string, error) {
	if flagRoot != "" {
		return flagRoot, nil
	}
	return os.Getwd()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "log as JSON lines")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "project root (defaults to the working directory)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}
