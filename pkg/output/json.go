package output

import (
	"context"
	"encoding/json"
	"io"
)

// quietReport is the summary-only JSON shape. The run id ties it to the
// exports and webhook deliveries of the same run.
type quietReport struct {
	RunID     string  `json:"run_id"`
	ExportDir string  `json:"export_dir,omitempty"`
	Summary   Summary `json:"summary"`
}

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if f.opts.Quiet {
		return encoder.Encode(quietReport{
			RunID:     report.RunID,
			ExportDir: report.Metadata.ExportDir,
			Summary:   report.Summary,
		})
	}

	return encoder.Encode(report)
}
