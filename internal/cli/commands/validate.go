package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/ledgerlog/pkg/config"
	"github.com/ccollicutt/ledgerlog/pkg/ingest"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a ledgerlog configuration file without running analysis.

Checks:
  - YAML syntax
  - Required fields
  - Archive extensions, export format and worker count
  - Webhook URLs and triggers
  - Archive existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Report what we found
	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Log sources: %d pattern(s)\n", len(cfg.LogSources))
	fmt.Fprintf(out, "  Extensions:  %v\n", cfg.ArchiveExtensions)
	fmt.Fprintf(out, "  Export:      %s\n", cfg.Export)
	if cfg.Export == config.ExportCSV {
		fmt.Fprintf(out, "  Output dir:  %s\n", cfg.OutputDir)
	}
	fmt.Fprintf(out, "  Error rules: level=%t word=%t\n", cfg.ErrorDetection.MatchLevel, cfg.ErrorDetection.MatchWord)
	fmt.Fprintf(out, "  Webhooks:    %d\n", len(cfg.Webhooks))

	// Check if archives exist (warnings only)
	files, err := ingest.ExpandSources(cfg.LogSources, cfg.ArchiveExtensions)
	if err != nil {
		fmt.Fprintf(out, "\nWarning: Error expanding log sources: %v\n", err)
		return nil
	}

	existing, missing := splitExisting(files)
	if len(existing) == 0 {
		fmt.Fprintf(out, "\nWarning: No archives match log sources\n")
	} else {
		fmt.Fprintf(out, "\nArchives matched: %d\n", len(existing))
		for _, f := range existing {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}
	for _, m := range missing {
		fmt.Fprintf(out, "Warning: %s matches nothing\n", m)
	}

	return nil
}
