// Package config provides configuration loading and validation for ledgerlog.
package config

import (
	"time"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// LogSources are archive paths, glob patterns or directories.
	LogSources []string `yaml:"log_sources"`

	// ArchiveExtensions selects the files picked up when a directory is
	// walked. Defaults to [".gz"].
	ArchiveExtensions []string `yaml:"archive_extensions,omitempty"`

	// OutputDir receives the tabular exports.
	OutputDir string `yaml:"output_dir,omitempty"`

	// Workers is the number of archives decoded in parallel.
	// Zero means one per CPU.
	Workers int `yaml:"workers,omitempty"`

	// Export selects the export format written to OutputDir.
	Export ExportFormat `yaml:"export,omitempty"`

	ErrorDetection ErrorDetectionConfig `yaml:"error_detection"`
	Webhooks       []WebhookConfig      `yaml:"webhooks,omitempty"`
}

// ExportFormat selects how analysis tables are exported.
type ExportFormat string

const (
	// ExportCSV writes one CSV file per table.
	ExportCSV ExportFormat = "csv"
	// ExportNone disables exports.
	ExportNone ExportFormat = "none"
)

// ErrorDetectionConfig toggles the signals that classify an entry as an
// error. At least one must be enabled.
type ErrorDetectionConfig struct {
	// MatchLevel classifies entries logged at level ERROR.
	MatchLevel bool `yaml:"match_level"`

	// MatchWord classifies entries whose message contains the word "error".
	MatchWord bool `yaml:"match_word"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnIssues fires only when balance-sync discrepancies are found (default).
	WebhookTriggerOnIssues WebhookTrigger = "on_issues"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending analysis results.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_issues" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
