package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/ledgerlog/pkg/analyzer"
	"github.com/ccollicutt/ledgerlog/pkg/config"
	"github.com/ccollicutt/ledgerlog/pkg/ingest"
	"github.com/ccollicutt/ledgerlog/pkg/output"
	"github.com/ccollicutt/ledgerlog/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	Output    string
	TimeRange string
	OutputDir string
	Export    string
	Workers   int
	Verbose   bool
	Quiet     bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <config-file>",
		Short: "Analyze log archives for balance sync discrepancies",
		Long: `Analyze the log archives listed in the configuration file.

Produces:
  - Balance sync report (per-user discrepancies and losses)
  - Errors over time (per month)
  - Top error reasons (by transaction action)
  - Loss by currency

Unless export is disabled, every table is also written as CSV to the
output directory.

Exit codes:
  0 - No balance sync discrepancies
  1 - Balance sync discrepancies found
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.TimeRange, "time-range", "", "Limit analysis to time window ending now (e.g., 2h, 720h)")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "Directory for exported tables (overrides config)")
	cmd.Flags().StringVar(&opts.Export, "export", "", "Export format (csv|none, overrides config)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Archives decoded in parallel (overrides config)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show run statistics and all error reasons")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_issues", "When to fire webhook (on_issues|always|never)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := applyAnalyzeOverrides(cfg, opts); err != nil {
		return err
	}

	// Build the output formatter before doing any work
	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	analyzerOpts := []analyzer.AnalyzerOption{
		analyzer.WithErrorRules(analyzer.ErrorRules{
			MatchLevel: cfg.ErrorDetection.MatchLevel,
			MatchWord:  cfg.ErrorDetection.MatchWord,
		}),
		analyzer.WithLogger(log.Logger),
	}

	if opts.TimeRange != "" {
		duration, err := time.ParseDuration(opts.TimeRange)
		if err != nil {
			return fmt.Errorf("invalid time-range %q: %w", opts.TimeRange, err)
		}
		if duration <= 0 {
			return fmt.Errorf("invalid time-range %q: must be positive", opts.TimeRange)
		}
		end := time.Now()
		start := end.Add(-duration)
		analyzerOpts = append(analyzerOpts, analyzer.WithTimeRange(start, end))
	}

	a, err := analyzer.NewAnalyzer(analyzerOpts...)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	// Discover archives
	files, err := ingest.ExpandSources(cfg.LogSources, cfg.ArchiveExtensions)
	if err != nil {
		return fmt.Errorf("expanding log sources: %w", err)
	}
	log.Info().Int("archives", len(files)).Str("config", configPath).Msg("Archives discovered")

	// Decompress, parse and merge
	loader := ingest.NewLoader(
		ingest.WithWorkers(cfg.Workers),
		ingest.WithLogger(log.Logger),
	)
	load, err := loader.Load(ctx, files)
	if err != nil {
		return fmt.Errorf("loading archives: %w", err)
	}
	if len(load.Sources) == 0 {
		return fmt.Errorf("none of the %d archive(s) could be read: %w", len(load.Failures), load.Failures[0])
	}

	// Run analysis
	result, err := a.Analyze(ctx, load.Entries)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	// Create report
	report := output.NewReport(result, load, configPath)

	if cfg.Export == config.ExportCSV {
		written, err := output.NewCSVExporter().Export(cfg.OutputDir, result)
		if err != nil {
			return fmt.Errorf("exporting tables: %w", err)
		}
		report.Metadata.ExportDir = cfg.OutputDir
		log.Info().Str("dir", cfg.OutputDir).Int("files", len(written)).Msg("Tables exported")
	}

	// Output report
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Send webhooks (failures are logged but don't fail analysis)
	if targets := collectWebhooks(cfg, opts); len(targets) > 0 {
		webhook.NewClient().Notify(ctx, report, targets, log.Logger)
	}

	// Set exit code based on results
	if report.HasIssues() {
		ExitCode = 1
	}

	return nil
}

// applyAnalyzeOverrides applies command-line flags on top of the loaded
// configuration.
func applyAnalyzeOverrides(cfg *config.Config, opts *AnalyzeOptions) error {
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	if opts.Workers < 0 {
		return fmt.Errorf("invalid workers %d: must be zero or positive", opts.Workers)
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	switch config.ExportFormat(opts.Export) {
	case "":
	case config.ExportCSV, config.ExportNone:
		cfg.Export = config.ExportFormat(opts.Export)
	default:
		return fmt.Errorf("invalid export %q (must be csv or none)", opts.Export)
	}
	if cfg.Export == config.ExportCSV && cfg.OutputDir == "" {
		cfg.OutputDir = config.DefaultOutputDir
	}
	switch webhook.Trigger(opts.WebhookTrigger) {
	case "", webhook.TriggerOnIssues, webhook.TriggerAlways, webhook.TriggerNever:
	default:
		return fmt.Errorf("invalid webhook-trigger %q (must be on_issues, always, or never)", opts.WebhookTrigger)
	}
	return nil
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) []webhook.Target {
	targets := make([]webhook.Target, 0, len(cfg.Webhooks)+1)

	for _, wh := range cfg.Webhooks {
		targets = append(targets, webhook.Target{
			Name:    wh.Name,
			Trigger: webhook.Trigger(wh.Trigger),
			SendOptions: webhook.SendOptions{
				URL:     wh.URL,
				Token:   wh.Token,
				Timeout: wh.Timeout,
			},
		})
	}

	if opts.WebhookURL != "" {
		trigger := webhook.Trigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = webhook.TriggerOnIssues
		}

		targets = append(targets, webhook.Target{
			Name:    "cli",
			Trigger: trigger,
			SendOptions: webhook.SendOptions{
				URL:     opts.WebhookURL,
				Token:   opts.WebhookToken,
				Timeout: config.DefaultWebhookTimeout,
			},
		})
	}

	return targets
}
