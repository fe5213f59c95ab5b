package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/ledgerlog/pkg/analyzer"
	"github.com/ccollicutt/ledgerlog/pkg/parser"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVExporter_Export(t *testing.T) {
	result := createTestResult()
	result.Entries = []parser.LogEntry{{
		PrimaryTime:        baseTime,
		SecondaryRequestID: "r1",
		Level:              "ERROR",
		Message:            "line one\nline two, with comma",
		SourceFile:         "a.gz",
	}}
	result.Transactions = []analyzer.TransactionRecord{{
		ID:                   "tx1",
		Type:                 optional.Some("DEBIT"),
		UserID:               optional.Some("u1"),
		PaymentBalance:       optional.Some(int64(5)),
		UpdatePaymentBalance: optional.Some(false),
		Metadata:             optional.Some(""),
		Amount:               optional.Some(decimal.RequireFromString("19.90")),
		RequestID:            "r1",
		Timestamp:            baseTime,
		SourceFile:           "a.gz",
	}}
	result.Errors = []analyzer.ErrorRecord{{RequestID: "r1", Message: "boom"}}

	dir := filepath.Join(t.TempDir(), "nested", "out")
	paths, err := NewCSVExporter().Export(dir, result)
	require.NoError(t, err)
	require.Len(t, paths, 7)

	entries := readCSV(t, filepath.Join(dir, EntriesFile))
	assert.Equal(t, []string{
		"primaryTime", "category", "requestId", "version", "secondaryTime",
		"secondaryRequestId", "level", "message", "sourceFile",
	}, entries[0])
	assert.Equal(t, []string{
		"2024-01-15T10:00:00Z", "", "", "", "", "r1", "ERROR", "line one\nline two, with comma", "a.gz",
	}, entries[1])

	txns := readCSV(t, filepath.Join(dir, TransactionsFile))
	require.Len(t, txns, 2)
	assert.Equal(t, []string{
		"id", "type", "source", "action", "userId", "paymentBalance", "updatePaymentBalance",
		"metadata", "currency", "amount", "vat", "oldBalance", "newBalance",
		"requestId", "timestamp", "sourceFile",
	}, txns[0])
	assert.Equal(t, []string{
		"tx1", "DEBIT", "", "", "u1", "5", "false", "", "", "19.9", "", "", "",
		"r1", "2024-01-15T10:00:00Z", "a.gz",
	}, txns[1])

	errs := readCSV(t, filepath.Join(dir, ErrorsFile))
	assert.Equal(t, []string{"time", "requestId", "message", "sourceFile"}, errs[0])
	assert.Equal(t, []string{"", "r1", "boom", ""}, errs[1], "untimed error has an empty time cell")

	sync := readCSV(t, filepath.Join(dir, BalanceSyncFile))
	assert.Equal(t, []string{
		"userId", "totalTransactions", "totalErrorTransactions", "totalDebitLoss",
		"totalCreditLoss", "currency", "firstErrorTime",
	}, sync[0])
	assert.Equal(t, []string{"u1", "3", "1", "50", "0", "USD", "2024-01-15T10:00:00Z"}, sync[1])

	assert.Equal(t, [][]string{{"month", "errorCount"}, {"2024-01", "2"}},
		readCSV(t, filepath.Join(dir, ErrorsOverTimeFile)))
	assert.Equal(t, [][]string{{"action", "errorCount"}, {"renew", "2"}},
		readCSV(t, filepath.Join(dir, TopErrorReasonsFile)))
	assert.Equal(t, [][]string{{"currency", "totalDebitLoss", "totalCreditLoss"}, {"USD", "50", "0"}},
		readCSV(t, filepath.Join(dir, LossByCurrencyFile)))
}

func TestCSVExporter_Export_EmptyTablesKeepHeaders(t *testing.T) {
	dir := t.TempDir()
	_, err := NewCSVExporter().Export(dir, &analyzer.AnalysisResult{})
	require.NoError(t, err)

	sync := readCSV(t, filepath.Join(dir, BalanceSyncFile))
	require.Len(t, sync, 1)
	assert.Equal(t, "userId", sync[0][0])

	for _, name := range []string{EntriesFile, TransactionsFile, ErrorsFile, ErrorsOverTimeFile, TopErrorReasonsFile, LossByCurrencyFile} {
		records := readCSV(t, filepath.Join(dir, name))
		assert.Len(t, records, 1, name)
	}
}

func TestCSVExporter_Export_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewCSVExporter().Export(filepath.Join(file, "sub"), &analyzer.AnalysisResult{})
	assert.Error(t, err)
}

func TestFormatTime_Zone(t *testing.T) {
	local := time.Date(2024, 1, 15, 12, 0, 0, 500, time.FixedZone("X", 2*60*60))
	assert.Equal(t, "2024-01-15T10:00:00.0000005Z", formatTime(local))
	assert.Equal(t, "", formatTime(time.Time{}))
}
