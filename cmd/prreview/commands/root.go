package commands

import (
	"github.com/spf13/cobra"
)

var (
	// githubToken authenticates against the GitHub API. Falls back to
	// $GITHUB_TOKEN when unset.
	githubToken string

	// logLevel is the log level name.
	logLevel string

	// logDir enables rotating file logs when set.
	logDir string

	// outputFormat controls output format (text, json).
	outputFormat string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "prreview",
	Short: "Automated pull request review",
	Long: `prreview reviews GitHub pull requests against a markdown coding
standard and posts the findings as inline review comments.

Comments are addressed by new-file line number and resolved to diff
positions locally, so only added lines are ever commented on.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(
		&githubToken, "token", "",
		"GitHub API token (default: $GITHUB_TOKEN)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info",
		"Log level: trace, debug, info, warn, error, critical",
	)
	rootCmd.PersistentFlags().StringVar(
		&logDir, "log-dir", "",
		"Directory for rotating log files (empty to disable)",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)

	// Add subcommands.
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
