package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.LogSources = []string{"/var/log/app/*.gz"}
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
log_sources:
  - /data/logs
  - /other/*.gz
archive_extensions: [".gz", ".log"]
output_dir: ./out
workers: 4
export: none
error_detection:
  match_level: true
  match_word: false
`
	path := writeTempFile(t, "config.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.LogSources) != 2 {
		t.Errorf("LogSources = %d, want 2", len(cfg.LogSources))
	}
	if !reflect.DeepEqual(cfg.ArchiveExtensions, []string{".gz", ".log"}) {
		t.Errorf("ArchiveExtensions = %v", cfg.ArchiveExtensions)
	}
	if cfg.OutputDir != "./out" {
		t.Errorf("OutputDir = %q, want ./out", cfg.OutputDir)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Export != ExportNone {
		t.Errorf("Export = %q, want none", cfg.Export)
	}
	if !cfg.ErrorDetection.MatchLevel || cfg.ErrorDetection.MatchWord {
		t.Errorf("ErrorDetection = %+v", cfg.ErrorDetection)
	}
}

func TestLoad_MinimalConfigGetsDefaults(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "log_sources: [/data/logs]\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.ArchiveExtensions, DefaultArchiveExtensions) {
		t.Errorf("ArchiveExtensions = %v, want %v", cfg.ArchiveExtensions, DefaultArchiveExtensions)
	}
	if cfg.OutputDir != DefaultOutputDir {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, DefaultOutputDir)
	}
	if cfg.Export != ExportCSV {
		t.Errorf("Export = %q, want csv", cfg.Export)
	}
	if !cfg.ErrorDetection.MatchLevel || !cfg.ErrorDetection.MatchWord {
		t.Errorf("ErrorDetection = %+v, want both enabled", cfg.ErrorDetection)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0", cfg.Workers)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(context.Background(), "/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	content := `invalid: yaml: content: [`
	path := writeTempFile(t, "invalid.yaml", content)
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvLogSources, " /env/a.gz, ,/env/b ")
	t.Setenv(EnvOutputDir, "/env/out")
	t.Setenv(EnvWorkers, "7")

	path := writeTempFile(t, "config.yaml", "log_sources: [/file/logs]\noutput_dir: /file/out\nworkers: 2\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.LogSources, []string{"/env/a.gz", "/env/b"}) {
		t.Errorf("LogSources = %v", cfg.LogSources)
	}
	if cfg.OutputDir != "/env/out" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Workers != 7 {
		t.Errorf("Workers = %d, want 7", cfg.Workers)
	}
}

func TestLoad_InvalidWorkersEnvIgnored(t *testing.T) {
	t.Setenv(EnvWorkers, "many")

	path := writeTempFile(t, "config.yaml", "log_sources: [/logs]\nworkers: 3\n")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"no log sources", func(c *Config) { c.LogSources = nil }, true},
		{"blank log source", func(c *Config) { c.LogSources = []string{" "} }, true},
		{"extension without dot", func(c *Config) { c.ArchiveExtensions = []string{"gz"} }, true},
		{"bare dot extension", func(c *Config) { c.ArchiveExtensions = []string{"."} }, true},
		{"negative workers", func(c *Config) { c.Workers = -1 }, true},
		{"invalid export", func(c *Config) { c.Export = "xlsx" }, true},
		{"export none", func(c *Config) { c.Export = ExportNone; c.OutputDir = "" }, false},
		{"no error detection", func(c *Config) { c.ErrorDetection = ErrorDetectionConfig{} }, true},
		{"word detection only", func(c *Config) { c.ErrorDetection = ErrorDetectionConfig{MatchWord: true} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := &Config{
		LogSources:     []string{"/logs"},
		ErrorDetection: ErrorDetectionConfig{MatchLevel: true},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Export != ExportCSV {
		t.Errorf("Export = %q, want csv", cfg.Export)
	}
	if cfg.OutputDir != DefaultOutputDir {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, DefaultOutputDir)
	}
	if !reflect.DeepEqual(cfg.ArchiveExtensions, DefaultArchiveExtensions) {
		t.Errorf("ArchiveExtensions = %v", cfg.ArchiveExtensions)
	}
}

func TestDefaultConfig(t *testing.T) {
	a := DefaultConfig()
	a.ArchiveExtensions[0] = ".changed"

	if DefaultConfig().ArchiveExtensions[0] != ".gz" {
		t.Error("DefaultConfig() shares the extensions slice between calls")
	}
	if DefaultArchiveExtensions[0] != ".gz" {
		t.Error("DefaultArchiveExtensions was modified")
	}
}

// ============================================================================
// Webhook Validation Tests
// ============================================================================

func TestValidate_Webhooks(t *testing.T) {
	tests := []struct {
		name    string
		webhook WebhookConfig
		wantErr bool
	}{
		{"https", WebhookConfig{Name: "ops", URL: "https://example.com/webhook", Trigger: WebhookTriggerOnIssues, Timeout: 10 * time.Second}, false},
		{"http", WebhookConfig{URL: "http://localhost:8080/webhook"}, false},
		{"missing url", WebhookConfig{Name: "no-url", Trigger: WebhookTriggerOnIssues}, true},
		{"invalid scheme", WebhookConfig{URL: "ftp://example.com/webhook"}, true},
		{"missing host", WebhookConfig{URL: "https:///webhook"}, true},
		{"invalid trigger", WebhookConfig{URL: "https://example.com/webhook", Trigger: "invalid_trigger"}, true},
		{"trigger always", WebhookConfig{URL: "https://example.com/webhook", Trigger: WebhookTriggerAlways}, false},
		{"trigger never", WebhookConfig{URL: "https://example.com/webhook", Trigger: WebhookTriggerNever}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Webhooks = []WebhookConfig{tt.webhook}
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Webhook_Defaults(t *testing.T) {
	cfg := validConfig()
	cfg.Webhooks = []WebhookConfig{{URL: "https://example.com/webhook"}}

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Webhooks[0].Trigger != WebhookTriggerOnIssues {
		t.Errorf("Default trigger = %v, want %v", cfg.Webhooks[0].Trigger, WebhookTriggerOnIssues)
	}
	if cfg.Webhooks[0].Timeout != DefaultWebhookTimeout {
		t.Errorf("Default timeout = %v, want %v", cfg.Webhooks[0].Timeout, DefaultWebhookTimeout)
	}
}

func TestValidate_Webhook_ExpandsToken(t *testing.T) {
	t.Setenv("LEDGERLOG_TEST_TOKEN", "secret-value")

	cfg := validConfig()
	cfg.Webhooks = []WebhookConfig{{URL: "https://example.com/webhook", Token: "${LEDGERLOG_TEST_TOKEN}"}}

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Webhooks[0].Token != "secret-value" {
		t.Errorf("Token = %q, want secret-value", cfg.Webhooks[0].Token)
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("TEST_WEBHOOK_TOKEN", "secret-value")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_WEBHOOK_TOKEN}", "secret-value"},
		{"$TEST_WEBHOOK_TOKEN", "secret-value"},
		{"plain-value", "plain-value"},
		{"", ""},
		{"${NONEXISTENT_VAR}", ""},
	}

	for _, tt := range tests {
		got := expandEnvVar(tt.input)
		if got != tt.want {
			t.Errorf("expandEnvVar(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoad_WithWebhooks(t *testing.T) {
	content := `
log_sources:
  - /var/log/app
webhooks:
  - name: test-webhook
    url: "https://example.com/webhook"
    trigger: on_issues
    timeout: 30s
  - url: "https://backup.example.com/webhook"
    trigger: always
`
	path := writeTempFile(t, "config-with-webhooks.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Webhooks) != 2 {
		t.Fatalf("Webhooks = %d, want 2", len(cfg.Webhooks))
	}
	if cfg.Webhooks[0].Name != "test-webhook" {
		t.Errorf("Webhook[0].Name = %q, want %q", cfg.Webhooks[0].Name, "test-webhook")
	}
	if cfg.Webhooks[0].Timeout != 30*time.Second {
		t.Errorf("Webhook[0].Timeout = %v, want 30s", cfg.Webhooks[0].Timeout)
	}
	if cfg.Webhooks[1].Trigger != WebhookTriggerAlways {
		t.Errorf("Webhook[1].Trigger = %v, want %v", cfg.Webhooks[1].Trigger, WebhookTriggerAlways)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}
