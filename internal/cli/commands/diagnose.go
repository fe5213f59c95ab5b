package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ccollicutt/ledgerlog/pkg/analyzer"
	"github.com/ccollicutt/ledgerlog/pkg/config"
	"github.com/ccollicutt/ledgerlog/pkg/ingest"
	"github.com/ccollicutt/ledgerlog/pkg/parser"

	"github.com/spf13/cobra"
)

// maxDiagnoseArchives bounds how many archives are decompressed for the
// header checks.
const maxDiagnoseArchives = 5

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Archive existence and readability
- Log header format coverage in actual archives
- Export directory and webhook configuration

Example:
  ledgerlog diagnose config.yaml
  ledgerlog diagnose -v config.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check log sources
	sourceResults, archives := checkLogSources(cfg)
	results = append(results, sourceResults...)

	// 4. Check archives decompress and carry the expected headers
	results = append(results, checkArchives(archives, cfg, opts)...)

	// 5. Check export directory
	results = append(results, checkOutputDir(cfg)...)

	// 6. Check webhooks configuration
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{"Check the file path is correct"}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{"Add at least a log_sources section"}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Log sources: %d", len(cfg.LogSources)),
		fmt.Sprintf("Archive extensions: %s", strings.Join(cfg.ArchiveExtensions, ", ")),
		fmt.Sprintf("Error detection: level=%t word=%t", cfg.ErrorDetection.MatchLevel, cfg.ErrorDetection.MatchWord),
	}
	return cfg, result
}

// checkLogSources reports per source pattern and returns every archive
// that exists.
func checkLogSources(cfg *config.Config) ([]DiagnosticResult, []string) {
	results := []DiagnosticResult{}
	var archives []string

	for _, source := range cfg.LogSources {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Source: %s", source),
		}

		files, err := ingest.ExpandSources([]string{source}, cfg.ArchiveExtensions)
		existing, _ := splitExisting(files)

		switch {
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot expand source: %v", err)
			result.Suggests = []string{"Verify the glob pattern syntax"}
		case len(existing) == 0:
			result.Status = "warning"
			result.Message = "Source matches no archives"
			result.Suggests = []string{
				"Check if the archives exist at this path",
				fmt.Sprintf("Directories are searched for files ending in %s", strings.Join(cfg.ArchiveExtensions, ", ")),
			}
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Matches %d archive(s)", len(existing))
			result.Details = append(result.Details, existing...)
			archives = append(archives, existing...)
		}
		results = append(results, result)
	}

	if len(archives) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Archives Summary",
			Status:  "error",
			Message: "No accessible archives found",
			Suggests: []string{
				"Ensure at least one archive exists and is readable",
			},
		})
	}

	return results, archives
}

// checkArchives decompresses a sample of archives and measures how many
// entries carry a parsable header.
func checkArchives(archives []string, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	rules := analyzer.ErrorRules{
		MatchLevel: cfg.ErrorDetection.MatchLevel,
		MatchWord:  cfg.ErrorDetection.MatchWord,
	}
	extractor := analyzer.NewTransactionExtractor()

	sample := archives
	if len(sample) > maxDiagnoseArchives {
		sample = sample[:maxDiagnoseArchives]
	}

	for _, path := range sample {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Header Format: %s", filepath.Base(path)),
		}

		text, err := ingest.ReadArchive(path)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot read archive: %v", err)
			result.Suggests = []string{
				"Check the file is a valid gzip archive",
				"Unreadable archives are skipped during analysis",
			}
			results = append(results, result)
			continue
		}

		entries := parser.ParseSource(path, text)
		timed, leveled, requests := 0, 0, 0
		var sampleFail string
		for i := range entries {
			e := &entries[i]
			if e.HasTime() {
				timed++
			} else if sampleFail == "" {
				sampleFail = firstLine(e.Message)
			}
			if e.Level != "" {
				leveled++
			}
			if e.SecondaryRequestID != "" {
				requests++
			}
		}

		switch {
		case len(entries) == 0:
			result.Status = "warning"
			result.Message = "Archive contains no log entries"
		case timed == 0:
			result.Status = "error"
			result.Message = "No entries start with an ISO-8601 UTC timestamp"
			result.Suggests = []string{
				"Entries must begin with a timestamp like 2024-01-01T00:00:00.000Z",
			}
			if sampleFail != "" {
				result.Details = []string{"Sample line:", truncate(sampleFail, 80)}
			}
		case requests < len(entries)/2:
			result.Status = "warning"
			result.Message = fmt.Sprintf("Only %d/%d entries carry a request id", requests, len(entries))
			result.Suggests = []string{
				"Errors and transactions are correlated on the tab-delimited request id",
			}
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("%d entries, %d with timestamp, %d with level", len(entries), timed, leveled)
		}

		if opts.Verbose && len(entries) > 0 {
			txns, dropped := extractor.ExtractAll(entries)
			result.Details = append(result.Details,
				fmt.Sprintf("Errors: %d", len(rules.ExtractErrors(entries))),
				fmt.Sprintf("Transactions: %d (%d entries without id)", len(txns), dropped),
			)
		}

		results = append(results, result)
	}

	if len(archives) > len(sample) && opts.Verbose {
		results = append(results, DiagnosticResult{
			Check:   "Header Format",
			Status:  "ok",
			Message: fmt.Sprintf("Checked %d of %d archives", len(sample), len(archives)),
		})
	}

	return results
}

func checkOutputDir(cfg *config.Config) []DiagnosticResult {
	if cfg.Export != config.ExportCSV {
		return nil
	}

	result := DiagnosticResult{
		Check: fmt.Sprintf("Output Directory: %s", cfg.OutputDir),
	}

	info, err := os.Stat(cfg.OutputDir)
	switch {
	case os.IsNotExist(err):
		parent := filepath.Dir(filepath.Clean(cfg.OutputDir))
		if pinfo, perr := os.Stat(parent); perr == nil && pinfo.IsDir() {
			result.Status = "ok"
			result.Message = "Will be created on first export"
		} else {
			result.Status = "warning"
			result.Message = fmt.Sprintf("Parent directory %s does not exist", parent)
			result.Suggests = []string{"The directory tree is created on export if permissions allow"}
		}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access output directory: %v", err)
	case !info.IsDir():
		result.Status = "error"
		result.Message = "Path exists and is not a directory"
		result.Suggests = []string{"Set output_dir to a directory or use --output-dir"}
	default:
		result.Status = "ok"
		result.Message = "Directory exists"
	}

	return []DiagnosticResult{result}
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== ledgerlog Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before running analysis.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		// Check URL
		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			}
		}

		// Check trigger
		if wh.Trigger != "" {
			switch wh.Trigger {
			case config.WebhookTriggerOnIssues, config.WebhookTriggerAlways, config.WebhookTriggerNever:
				// Valid
			default:
				issues = append(issues, fmt.Sprintf("Invalid trigger %q (use on_issues, always, or never)", wh.Trigger))
			}
		}

		// Check if token looks like an unexpanded env var
		if strings.HasPrefix(wh.Token, "$") {
			warnings = append(warnings, fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token))
		}

		if len(issues) > 0 {
			result.Status = "error"
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			if wh.URL == "" {
				continue
			}

			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	// Any response (even 4xx/5xx) means the server is reachable
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

// splitExisting separates expanded sources into paths that exist and
// patterns that matched nothing.
func splitExisting(files []string) (existing, missing []string) {
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			existing = append(existing, f)
		} else {
			missing = append(missing, f)
		}
	}
	return existing, missing
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
