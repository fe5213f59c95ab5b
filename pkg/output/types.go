// Package output provides formatting and export of analysis results.
package output

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ccollicutt/ledgerlog/pkg/analyzer"
	"github.com/ccollicutt/ledgerlog/pkg/ingest"
)

// Report is the complete analysis output.
type Report struct {
	// RunID uniquely identifies this analysis run.
	RunID string `json:"run_id"`

	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// BalanceSync has one row per user with correlated sync errors.
	BalanceSync []BalanceSyncRow `json:"balance_sync"`

	ErrorsByMonth   []MonthlyErrors `json:"errors_by_month"`
	TopErrorReasons []ErrorReason   `json:"top_error_reasons"`
	LossByCurrency  []CurrencyLoss  `json:"loss_by_currency"`

	// Failures lists archives that could not be read.
	Failures []SourceFailure `json:"failures,omitempty"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	EntriesProcessed       int             `json:"entries_processed"`
	EntriesFiltered        int             `json:"entries_filtered"`
	Transactions           int             `json:"transactions"`
	TransactionsDropped    int             `json:"transactions_dropped"`
	Errors                 int             `json:"errors"`
	SyncErrors             int             `json:"sync_errors"`
	CorrelatedTransactions int             `json:"correlated_transactions"`
	UsersAffected          int             `json:"users_affected"`
	TotalDebitLoss         decimal.Decimal `json:"total_debit_loss"`
	TotalCreditLoss        decimal.Decimal `json:"total_credit_loss"`
	SourcesProcessed       int             `json:"sources_processed"`
	SourcesFailed          int             `json:"sources_failed"`
}

// BalanceSyncRow is the report form of analyzer.BalanceSyncAggregate.
type BalanceSyncRow struct {
	UserID                 string          `json:"user_id"`
	TotalTransactions      int             `json:"total_transactions"`
	TotalErrorTransactions int             `json:"total_error_transactions"`
	TotalDebitLoss         decimal.Decimal `json:"total_debit_loss"`
	TotalCreditLoss        decimal.Decimal `json:"total_credit_loss"`
	Currency               string          `json:"currency"`
	FirstErrorTime         time.Time       `json:"first_error_time"`
}

// MonthlyErrors is the number of errors logged in one month.
type MonthlyErrors struct {
	Month      string `json:"month"`
	ErrorCount int    `json:"error_count"`
}

// ErrorReason counts errors per transaction action.
type ErrorReason struct {
	Action     string `json:"action"`
	ErrorCount int    `json:"error_count"`
}

// CurrencyLoss sums losses per currency.
type CurrencyLoss struct {
	Currency        string          `json:"currency"`
	TotalDebitLoss  decimal.Decimal `json:"total_debit_loss"`
	TotalCreditLoss decimal.Decimal `json:"total_credit_loss"`
}

// SourceFailure is an archive that could not be read.
type SourceFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string `json:"config_file"`

	// Sources lists the archives that were analyzed.
	Sources []string `json:"sources"`

	// TimeRange is the time filter that was applied, if any.
	TimeRange *TimeRange `json:"time_range,omitempty"`

	// ExportDir is where tabular exports were written, if any.
	ExportDir string `json:"export_dir,omitempty"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the analysis took.
	Duration time.Duration `json:"duration"`
}

// TimeRange represents a time window for filtering.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewReport creates a Report from analysis results. load may be nil when
// the entries did not come from archives.
func NewReport(result *analyzer.AnalysisResult, load *ingest.Result, configFile string) *Report {
	debit, credit := result.TotalLoss()

	report := &Report{
		RunID:           uuid.NewString(),
		BalanceSync:     make([]BalanceSyncRow, 0, len(result.BalanceSync)),
		ErrorsByMonth:   make([]MonthlyErrors, 0, len(result.ErrorsByMonth)),
		TopErrorReasons: make([]ErrorReason, 0, len(result.TopErrorReasons)),
		LossByCurrency:  make([]CurrencyLoss, 0, len(result.LossByCurrency)),
		Metadata: Metadata{
			ConfigFile: configFile,
			Sources:    []string{},
			AnalyzedAt: result.Stats.EndTime,
			Duration:   result.Stats.EndTime.Sub(result.Stats.StartTime),
		},
		Summary: Summary{
			EntriesProcessed:       result.Stats.EntriesProcessed,
			EntriesFiltered:        result.Stats.EntriesFiltered,
			Transactions:           len(result.Transactions),
			TransactionsDropped:    result.Stats.Dropped,
			Errors:                 len(result.Errors),
			SyncErrors:             len(result.SyncErrors),
			CorrelatedTransactions: len(result.Correlated),
			UsersAffected:          len(result.BalanceSync),
			TotalDebitLoss:         debit,
			TotalCreditLoss:        credit,
		},
	}

	for _, row := range result.BalanceSync {
		report.BalanceSync = append(report.BalanceSync, BalanceSyncRow(row))
	}
	for _, m := range result.ErrorsByMonth {
		report.ErrorsByMonth = append(report.ErrorsByMonth, MonthlyErrors(m))
	}
	for _, r := range result.TopErrorReasons {
		report.TopErrorReasons = append(report.TopErrorReasons, ErrorReason(r))
	}
	for _, c := range result.LossByCurrency {
		report.LossByCurrency = append(report.LossByCurrency, CurrencyLoss(c))
	}

	if load != nil {
		for _, s := range load.Sources {
			report.Metadata.Sources = append(report.Metadata.Sources, s.Source)
		}
		for _, f := range load.Failures {
			report.Failures = append(report.Failures, SourceFailure{Source: f.Source, Error: f.Err.Error()})
		}
		report.Summary.SourcesProcessed = len(load.Sources)
		report.Summary.SourcesFailed = len(load.Failures)
	}

	if result.Stats.TimeRange != nil {
		report.Metadata.TimeRange = &TimeRange{
			Start: result.Stats.TimeRange.Start,
			End:   result.Stats.TimeRange.End,
		}
	}

	return report
}

// HasIssues returns true if any user has balance-sync discrepancies.
func (r *Report) HasIssues() bool {
	return len(r.BalanceSync) > 0
}
