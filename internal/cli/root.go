// Package cli provides the command-line interface for ledgerlog.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/ledgerlog/internal/cli/commands"
	"github.com/ccollicutt/ledgerlog/internal/logging"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	LogLevel  string
	LogFormat string
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "ledgerlog",
		Short: "Correlate balance sync errors with transactions in log archives",
		Long: `ledgerlog is a batch analysis tool for gzipped application log archives.

It reconstructs log entries, extracts transactions and errors, and correlates
balance synchronisation errors with the transactions of the same request.

Reports:
  - Balance sync discrepancies per user
  - Errors per month
  - Top error reasons by transaction action
  - Loss per currency

Tables are exported as CSV files and the report can be posted to webhooks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := logging.Init(opts.LogLevel, opts.LogFormat, cmd.ErrOrStderr())
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", logging.FormatConsole, "Log format (console|json)")

	// Add subcommands
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
