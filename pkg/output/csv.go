package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/ccollicutt/ledgerlog/pkg/analyzer"
	"github.com/ccollicutt/ledgerlog/pkg/parser"
)

// Export file names.
const (
	EntriesFile         = "entries.csv"
	TransactionsFile    = "transactions.csv"
	ErrorsFile          = "errors.csv"
	BalanceSyncFile     = "balance_sync_report.csv"
	ErrorsOverTimeFile  = "errors_over_time.csv"
	TopErrorReasonsFile = "top_error_reasons.csv"
	LossByCurrencyFile  = "loss_by_currency.csv"
)

// Absent values are written as empty cells.

type entryRow struct {
	PrimaryTime        string `csv:"primaryTime"`
	Category           string `csv:"category"`
	RequestID          string `csv:"requestId"`
	Version            string `csv:"version"`
	SecondaryTime      string `csv:"secondaryTime"`
	SecondaryRequestID string `csv:"secondaryRequestId"`
	Level              string `csv:"level"`
	Message            string `csv:"message"`
	SourceFile         string `csv:"sourceFile"`
}

type transactionRow struct {
	ID                   string `csv:"id"`
	Type                 string `csv:"type"`
	Source               string `csv:"source"`
	Action               string `csv:"action"`
	UserID               string `csv:"userId"`
	PaymentBalance       string `csv:"paymentBalance"`
	UpdatePaymentBalance string `csv:"updatePaymentBalance"`
	Metadata             string `csv:"metadata"`
	Currency             string `csv:"currency"`
	Amount               string `csv:"amount"`
	VAT                  string `csv:"vat"`
	OldBalance           string `csv:"oldBalance"`
	NewBalance           string `csv:"newBalance"`
	RequestID            string `csv:"requestId"`
	Timestamp            string `csv:"timestamp"`
	SourceFile           string `csv:"sourceFile"`
}

type errorRow struct {
	Time       string `csv:"time"`
	RequestID  string `csv:"requestId"`
	Message    string `csv:"message"`
	SourceFile string `csv:"sourceFile"`
}

type balanceSyncRow struct {
	UserID                 string `csv:"userId"`
	TotalTransactions      int    `csv:"totalTransactions"`
	TotalErrorTransactions int    `csv:"totalErrorTransactions"`
	TotalDebitLoss         string `csv:"totalDebitLoss"`
	TotalCreditLoss        string `csv:"totalCreditLoss"`
	Currency               string `csv:"currency"`
	FirstErrorTime         string `csv:"firstErrorTime"`
}

type monthRow struct {
	Month      string `csv:"month"`
	ErrorCount int    `csv:"errorCount"`
}

type reasonRow struct {
	Action     string `csv:"action"`
	ErrorCount int    `csv:"errorCount"`
}

type currencyRow struct {
	Currency        string `csv:"currency"`
	TotalDebitLoss  string `csv:"totalDebitLoss"`
	TotalCreditLoss string `csv:"totalCreditLoss"`
}

// CSVExporter writes every analysis table as a CSV file.
type CSVExporter struct{}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Export writes the tables into dir, creating it if needed, and returns the
// paths written. Empty tables still get a header row.
func (e *CSVExporter) Export(dir string, result *analyzer.AnalysisResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	tables := []struct {
		name string
		rows interface{}
	}{
		{EntriesFile, entryRows(result.Entries)},
		{TransactionsFile, transactionRows(result.Transactions)},
		{ErrorsFile, errorRows(result.Errors)},
		{BalanceSyncFile, balanceSyncRows(result.BalanceSync)},
		{ErrorsOverTimeFile, monthRows(result.ErrorsByMonth)},
		{TopErrorReasonsFile, reasonRows(result.TopErrorReasons)},
		{LossByCurrencyFile, currencyRows(result.LossByCurrency)},
	}

	written := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(dir, t.name)
		if err := writeCSV(path, t.rows); err != nil {
			return written, fmt.Errorf("writing %s: %w", t.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeCSV(path string, rows interface{}) error {
	f, err := os.Create(path) // #nosec G304 -- output directory is operator supplied
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(rows, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func entryRows(entries []parser.LogEntry) []*entryRow {
	rows := make([]*entryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &entryRow{
			PrimaryTime:        formatTime(e.PrimaryTime),
			Category:           e.Category,
			RequestID:          e.RequestID,
			Version:            e.Version,
			SecondaryTime:      formatTime(e.SecondaryTime),
			SecondaryRequestID: e.SecondaryRequestID,
			Level:              e.Level,
			Message:            e.Message,
			SourceFile:         e.SourceFile,
		})
	}
	return rows
}

func transactionRows(txns []analyzer.TransactionRecord) []*transactionRow {
	rows := make([]*transactionRow, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, &transactionRow{
			ID:                   t.ID,
			Type:                 t.Type.TakeOr(""),
			Source:               t.Source.TakeOr(""),
			Action:               t.Action.TakeOr(""),
			UserID:               t.UserID.TakeOr(""),
			PaymentBalance:       formatInt(t.PaymentBalance),
			UpdatePaymentBalance: formatBool(t.UpdatePaymentBalance),
			Metadata:             t.Metadata.TakeOr(""),
			Currency:             t.Currency.TakeOr(""),
			Amount:               formatDecimal(t.Amount),
			VAT:                  formatDecimal(t.VAT),
			OldBalance:           formatInt(t.OldBalance),
			NewBalance:           formatInt(t.NewBalance),
			RequestID:            t.RequestID,
			Timestamp:            formatTime(t.Timestamp),
			SourceFile:           t.SourceFile,
		})
	}
	return rows
}

func errorRows(errs []analyzer.ErrorRecord) []*errorRow {
	rows := make([]*errorRow, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, &errorRow{
			Time:       formatTime(e.Time),
			RequestID:  e.RequestID,
			Message:    e.Message,
			SourceFile: e.SourceFile,
		})
	}
	return rows
}

func balanceSyncRows(aggs []analyzer.BalanceSyncAggregate) []*balanceSyncRow {
	rows := make([]*balanceSyncRow, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, &balanceSyncRow{
			UserID:                 a.UserID,
			TotalTransactions:      a.TotalTransactions,
			TotalErrorTransactions: a.TotalErrorTransactions,
			TotalDebitLoss:         a.TotalDebitLoss.String(),
			TotalCreditLoss:        a.TotalCreditLoss.String(),
			Currency:               a.Currency,
			FirstErrorTime:         formatTime(a.FirstErrorTime),
		})
	}
	return rows
}

func monthRows(months []analyzer.MonthlyErrorCount) []*monthRow {
	rows := make([]*monthRow, 0, len(months))
	for _, m := range months {
		rows = append(rows, &monthRow{Month: m.Month, ErrorCount: m.ErrorCount})
	}
	return rows
}

func reasonRows(reasons []analyzer.ErrorReason) []*reasonRow {
	rows := make([]*reasonRow, 0, len(reasons))
	for _, r := range reasons {
		rows = append(rows, &reasonRow{Action: r.Action, ErrorCount: r.ErrorCount})
	}
	return rows
}

func currencyRows(losses []analyzer.CurrencyLoss) []*currencyRow {
	rows := make([]*currencyRow, 0, len(losses))
	for _, c := range losses {
		rows = append(rows, &currencyRow{
			Currency:        c.Currency,
			TotalDebitLoss:  c.TotalDebitLoss.String(),
			TotalCreditLoss: c.TotalCreditLoss.String(),
		})
	}
	return rows
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatInt(o optional.Option[int64]) string {
	n, err := o.Take()
	if err != nil {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

func formatBool(o optional.Option[bool]) string {
	b, err := o.Take()
	if err != nil {
		return ""
	}
	return strconv.FormatBool(b)
}

func formatDecimal(o optional.Option[decimal.Decimal]) string {
	d, err := o.Take()
	if err != nil {
		return ""
	}
	return d.String()
}
