// Package analyzer derives errors, transactions and balance-sync findings
// from merged log entries.
package analyzer

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/ccollicutt/ledgerlog/pkg/parser"
)

// Transaction types that contribute to loss totals.
const (
	TypeDebit  = "DEBIT"
	TypeCredit = "CREDIT"
)

// ErrorRecord is a log entry classified as an error.
type ErrorRecord struct {
	// Time is the entry's primary time (zero if absent).
	Time time.Time

	// RequestID is the entry's secondary request id.
	RequestID string

	// Message is the entry's message body.
	Message string

	// SourceFile is the archive the entry came from.
	SourceFile string
}

// TransactionRecord is a payment transaction extracted from an entry message.
// Every field except ID is optional; None means the key was absent or its
// value could not be coerced.
type TransactionRecord struct {
	ID string

	Type                 optional.Option[string]
	Source               optional.Option[string]
	Action               optional.Option[string]
	UserID               optional.Option[string]
	PaymentBalance       optional.Option[int64]
	UpdatePaymentBalance optional.Option[bool]
	Metadata             optional.Option[string]
	Currency             optional.Option[string]
	Amount               optional.Option[decimal.Decimal]
	VAT                  optional.Option[decimal.Decimal]
	OldBalance           optional.Option[int64]
	NewBalance           optional.Option[int64]

	// RequestID is copied from the entry's secondary request id.
	RequestID string

	// Timestamp is copied from the entry's primary time.
	Timestamp time.Time

	// SourceFile is the archive the entry came from.
	SourceFile string
}

// user returns the user id, or "" when absent.
func (t *TransactionRecord) user() string {
	return t.UserID.TakeOr("")
}

// SyncError is an error message reporting a mismatch between the
// subscription and payment balances of a user.
type SyncError struct {
	RequestID           string
	UserID              string
	SubscriptionBalance int64
	PaymentBalance      int64
	Time                time.Time
}

// CorrelatedTransaction is a transaction joined to at least one sync error.
type CorrelatedTransaction struct {
	Transaction TransactionRecord

	// ErrorTime is the earliest time of the sync errors sharing the
	// transaction's (request id, user id) key.
	ErrorTime time.Time
}

// BalanceSyncAggregate is one row per user with at least one correlated
// error.
type BalanceSyncAggregate struct {
	UserID string

	// TotalTransactions counts every transaction of the user, correlated
	// or not.
	TotalTransactions int

	TotalErrorTransactions int
	TotalDebitLoss         decimal.Decimal
	TotalCreditLoss        decimal.Decimal

	// Currency is the first currency observed for the user.
	Currency string

	FirstErrorTime time.Time
}

// MonthlyErrorCount is the number of errors logged in one calendar month.
type MonthlyErrorCount struct {
	// Month is formatted as YYYY-MM in UTC.
	Month      string
	ErrorCount int
}

// ErrorReason counts errors by the action of the transaction they share a
// request id with.
type ErrorReason struct {
	Action     string
	ErrorCount int
}

// CurrencyLoss sums balance-sync losses per currency.
type CurrencyLoss struct {
	Currency        string
	TotalDebitLoss  decimal.Decimal
	TotalCreditLoss decimal.Decimal
}

// AnalysisResult contains the complete analysis output.
type AnalysisResult struct {
	// Entries is the time-ordered entry collection that was analyzed.
	Entries []parser.LogEntry

	Transactions []TransactionRecord
	Errors       []ErrorRecord
	SyncErrors   []SyncError
	Correlated   []CorrelatedTransaction

	// BalanceSync is sorted by user id and never nil.
	BalanceSync []BalanceSyncAggregate

	ErrorsByMonth   []MonthlyErrorCount
	TopErrorReasons []ErrorReason
	LossByCurrency  []CurrencyLoss

	Stats AnalysisStats
}

// AnalysisStats provides context about the analysis run.
type AnalysisStats struct {
	// EntriesProcessed is the number of entries examined after time
	// filtering.
	EntriesProcessed int

	// EntriesFiltered is the number of entries outside the time range.
	EntriesFiltered int

	// Dropped is the number of entries without a transaction id.
	Dropped int

	// TimeRange is the time filter applied, if any.
	TimeRange *TimeRange

	StartTime time.Time
	EndTime   time.Time
}

// HasIssues reports whether any user has correlated balance-sync errors.
func (r *AnalysisResult) HasIssues() bool {
	return len(r.BalanceSync) > 0
}

// TotalLoss returns the debit and credit loss summed over all users.
func (r *AnalysisResult) TotalLoss() (debit, credit decimal.Decimal) {
	for _, row := range r.BalanceSync {
		debit = debit.Add(row.TotalDebitLoss)
		credit = credit.Add(row.TotalCreditLoss)
	}
	return debit, credit
}
