// Package webhook posts analysis reports to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ccollicutt/ledgerlog/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// RunIDHeader carries the report's run id so receivers can deduplicate.
const RunIDHeader = "X-Ledgerlog-Run-Id"

// maxResponseBody bounds how much of a response is kept.
const maxResponseBody = 1 << 20

// Trigger determines when a webhook fires.
type Trigger string

const (
	TriggerOnIssues Trigger = "on_issues"
	TriggerAlways   Trigger = "always"
	TriggerNever    Trigger = "never"
)

// ShouldFire reports whether a webhook with this trigger fires for the report.
// An empty trigger behaves like on_issues.
func (t Trigger) ShouldFire(report *output.Report) bool {
	switch t {
	case TriggerAlways:
		return true
	case TriggerNever:
		return false
	default:
		return report.HasIssues()
	}
}

// Client sends analysis reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
		userAgent:  "ledgerlog-webhook",
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Target is a named webhook endpoint with its trigger.
type Target struct {
	Name    string
	Trigger Trigger
	SendOptions
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts an analysis report to a webhook endpoint.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}
	fail := func(err error) *Response {
		resp.Error = err
		resp.Duration = time.Since(start)
		return resp
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fail(fmt.Errorf("failed to marshal report: %w", err))
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if report.RunID != "" {
		req.Header.Set(RunIDHeader, report.RunID)
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return fail(fmt.Errorf("failed to read response: %w", err))
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}

// Notify sends the report to every target whose trigger fires and returns
// the number of failed deliveries. Failures are logged, not returned.
func (c *Client) Notify(ctx context.Context, report *output.Report, targets []Target, logger zerolog.Logger) int {
	failed := 0
	for _, t := range targets {
		name := t.Name
		if name == "" {
			name = t.URL
		}

		if !t.Trigger.ShouldFire(report) {
			logger.Debug().Str("webhook", name).Str("trigger", string(t.Trigger)).Msg("Webhook skipped")
			continue
		}

		resp := c.Send(ctx, report, t.SendOptions)
		if !resp.Success() {
			failed++
			logger.Warn().
				Err(resp.Error).
				Str("webhook", name).
				Int("status", resp.StatusCode).
				Dur("duration", resp.Duration).
				Msg("Webhook delivery failed")
			continue
		}
		logger.Info().
			Str("webhook", name).
			Int("status", resp.StatusCode).
			Dur("duration", resp.Duration).
			Msg("Webhook delivered")
	}
	return failed
}
