package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ccollicutt/ledgerlog/pkg/parser"
)

// Analyzer classifies merged entries and correlates balance-sync errors.
type Analyzer struct {
	rules      ErrorRules
	extractor  *TransactionExtractor
	correlator BalanceSyncCorrelator
	logger     zerolog.Logger

	// Options
	timeRange *TimeRange
}

// TimeRange defines a time window for filtering entries.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the range, bounds included.
func (r *TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithTimeRange limits analysis to entries within the given time range.
// Entries without a primary time are excluded when a range is set.
func WithTimeRange(start, end time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.timeRange = &TimeRange{Start: start, End: end}
	}
}

// WithErrorRules replaces the default error classification rules.
func WithErrorRules(rules ErrorRules) AnalyzerOption {
	return func(a *Analyzer) {
		a.rules = rules
	}
}

// WithLogger sets the logger used for stage progress.
func WithLogger(l zerolog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(opts ...AnalyzerOption) (*Analyzer, error) {
	a := &Analyzer{
		rules:     DefaultErrorRules(),
		extractor: NewTransactionExtractor(),
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.timeRange != nil && a.timeRange.End.Before(a.timeRange.Start) {
		return nil, fmt.Errorf("time range end %s is before start %s",
			a.timeRange.End.Format(time.RFC3339), a.timeRange.Start.Format(time.RFC3339))
	}
	if !a.rules.MatchLevel && !a.rules.MatchWord {
		return nil, fmt.Errorf("error detection has no rules enabled")
	}

	return a, nil
}

// Analyze runs classification, extraction and correlation over a
// time-ordered entry collection.
func (a *Analyzer) Analyze(ctx context.Context, entries []parser.LogEntry) (*AnalysisResult, error) {
	result := &AnalysisResult{
		Stats: AnalysisStats{
			TimeRange: a.timeRange,
			StartTime: time.Now(),
		},
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selected := a.filter(entries)
	result.Entries = selected
	result.Stats.EntriesProcessed = len(selected)
	result.Stats.EntriesFiltered = len(entries) - len(selected)

	result.Errors = a.rules.ExtractErrors(selected)
	result.Transactions, result.Stats.Dropped = a.extractor.ExtractAll(selected)
	a.logger.Debug().
		Int("entries", len(selected)).
		Int("errors", len(result.Errors)).
		Int("transactions", len(result.Transactions)).
		Int("dropped", result.Stats.Dropped).
		Msg("Entries classified")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.SyncErrors, result.Correlated, result.BalanceSync = a.correlator.Run(result.Transactions, result.Errors)
	a.logger.Debug().
		Int("sync_errors", len(result.SyncErrors)).
		Int("correlated", len(result.Correlated)).
		Int("users", len(result.BalanceSync)).
		Msg("Balance sync correlated")

	result.ErrorsByMonth = ErrorsByMonth(result.Errors)
	result.TopErrorReasons = TopErrorReasons(result.Errors, result.Transactions)
	result.LossByCurrency = LossByCurrency(result.BalanceSync)

	result.Stats.EndTime = time.Now()

	return result, nil
}

func (a *Analyzer) filter(entries []parser.LogEntry) []parser.LogEntry {
	if a.timeRange == nil {
		if entries == nil {
			return []parser.LogEntry{}
		}
		return entries
	}

	out := make([]parser.LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.HasTime() && a.timeRange.Contains(e.PrimaryTime) {
			out = append(out, e)
		}
	}
	return out
}
