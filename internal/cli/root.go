package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/phabmd/internal/logging"
	"github.com/dshills/phabmd/internal/review"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var flagLogLevel string

var rootCmd = &cobra.Command{
	Use:   "phabmd",
	Short: "Export Phabricator review comments to Markdown",
	Long: "phabmd extracts the review discussion of a Phabricator Differential revision, " +
		"recovers inline code suggestions from the web UI, and renders the result as Markdown, JSON or YAML.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// newLogger builds the stderr logger. The --log-level flag wins over the
// configured level.
func newLogger(configured string) *slog.Logger {
	level := configured
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	return logging.NewLogger(os.Stderr, logging.ParseLevel(level))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print phabmd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "phabmd version %s\n", review.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
}
