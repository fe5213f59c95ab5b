package output

import (
	"context"
	"fmt"
	"io"
	"time"
)

// defaultReasonLimit caps the error reasons printed outside verbose mode.
const defaultReasonLimit = 10

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "ledgerlog: %d entries, %d transactions, %d errors, %d users with balance sync errors\n",
		report.Summary.EntriesProcessed,
		report.Summary.Transactions,
		report.Summary.Errors,
		report.Summary.UsersAffected)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	// Header
	fmt.Fprintln(w, "=== ledgerlog Analysis Report ===")
	if f.opts.Verbose {
		fmt.Fprintf(w, "Run: %s\n", report.RunID)
	}
	fmt.Fprintln(w)

	f.formatBalanceSync(report, w)
	f.formatErrorsByMonth(report, w)
	f.formatTopErrorReasons(report, w)
	f.formatLossByCurrency(report, w)

	if len(report.Failures) > 0 {
		fmt.Fprintln(w, "[FAILED SOURCES]")
		for _, fail := range report.Failures {
			fmt.Fprintf(w, "  - %s: %s\n", fail.Source, fail.Error)
		}
		fmt.Fprintln(w)
	}

	// Summary
	s := report.Summary
	fmt.Fprintln(w, "---")
	_, err := fmt.Fprintf(w, "Summary: %d entries, %d transactions, %d errors, %d users with balance sync errors\n",
		s.EntriesProcessed, s.Transactions, s.Errors, s.UsersAffected)
	if err != nil {
		return err
	}

	if f.opts.Verbose {
		fmt.Fprintf(w, "Sources processed: %d (%d failed)\n", s.SourcesProcessed, s.SourcesFailed)
		fmt.Fprintf(w, "Entries outside time range: %d\n", s.EntriesFiltered)
		fmt.Fprintf(w, "Entries without transaction id: %d\n", s.TransactionsDropped)
		fmt.Fprintf(w, "Sync errors: %d, correlated transactions: %d\n", s.SyncErrors, s.CorrelatedTransactions)
		if report.Metadata.ExportDir != "" {
			fmt.Fprintf(w, "Exports: %s\n", report.Metadata.ExportDir)
		}
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(time.Millisecond))
	}

	return nil
}

func (f *TextFormatter) formatBalanceSync(report *Report, w io.Writer) {
	fmt.Fprintln(w, "[BALANCE SYNC]")
	if !report.HasIssues() {
		fmt.Fprintln(w, "  No balance sync discrepancies detected")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  Affected: %d user(s)\n", len(report.BalanceSync))
	for _, row := range report.BalanceSync {
		fmt.Fprintf(w, "  - user=%s: %d of %d transaction(s) with sync errors, debit loss %s, credit loss %s",
			row.UserID,
			row.TotalErrorTransactions,
			row.TotalTransactions,
			withCurrency(row.TotalDebitLoss.String(), row.Currency),
			withCurrency(row.TotalCreditLoss.String(), row.Currency))
		if !row.FirstErrorTime.IsZero() {
			fmt.Fprintf(w, ", first error %s", row.FirstErrorTime.UTC().Format(time.RFC3339))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatErrorsByMonth(report *Report, w io.Writer) {
	if len(report.ErrorsByMonth) == 0 {
		return
	}
	fmt.Fprintln(w, "[ERRORS BY MONTH]")
	for _, m := range report.ErrorsByMonth {
		fmt.Fprintf(w, "  %s  %d\n", m.Month, m.ErrorCount)
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatTopErrorReasons(report *Report, w io.Writer) {
	if len(report.TopErrorReasons) == 0 {
		return
	}
	reasons := report.TopErrorReasons
	if !f.opts.Verbose && len(reasons) > defaultReasonLimit {
		reasons = reasons[:defaultReasonLimit]
	}

	fmt.Fprintln(w, "[TOP ERROR REASONS]")
	for _, r := range reasons {
		fmt.Fprintf(w, "  %s  %d\n", r.Action, r.ErrorCount)
	}
	if hidden := len(report.TopErrorReasons) - len(reasons); hidden > 0 {
		fmt.Fprintf(w, "  ... %d more (use --verbose)\n", hidden)
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatLossByCurrency(report *Report, w io.Writer) {
	if len(report.LossByCurrency) == 0 {
		return
	}
	fmt.Fprintln(w, "[LOSS BY CURRENCY]")
	for _, c := range report.LossByCurrency {
		fmt.Fprintf(w, "  %s  debit %s  credit %s\n", c.Currency, c.TotalDebitLoss, c.TotalCreditLoss)
	}
	fmt.Fprintln(w)
}

func withCurrency(amount, currency string) string {
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}
