package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Default values for configuration.
const (
	DefaultWebhookTimeout = 10 * time.Second
	DefaultOutputDir      = "reports"
	DefaultExport         = ExportCSV
)

// DefaultArchiveExtensions are the file extensions picked up when walking
// a directory source.
var DefaultArchiveExtensions = []string{".gz"}

// Environment variable names.
const (
	EnvLogSources = "LEDGERLOG_LOG_SOURCES"
	EnvOutputDir  = "LEDGERLOG_OUTPUT_DIR"
	EnvWorkers    = "LEDGERLOG_WORKERS"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogSources:        []string{},
		ArchiveExtensions: append([]string(nil), DefaultArchiveExtensions...),
		OutputDir:         DefaultOutputDir,
		Export:            DefaultExport,
		ErrorDetection: ErrorDetectionConfig{
			MatchLevel: true,
			MatchWord:  true,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvLogSources); v != "" {
		var sources []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sources = append(sources, s)
			}
		}
		if len(sources) > 0 {
			c.LogSources = sources
		}
	}

	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}

	// Non-numeric values are ignored.
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
}
