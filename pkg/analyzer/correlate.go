package analyzer

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// syncErrorPattern finds a user id followed by the subscription and payment
// balances, in that order, with any text (line breaks included) between.
var syncErrorPattern = regexp.MustCompile(
	`(?s)userId:\s*'([^']+)'.*?subscriptionBalance:\s*(\d+).*?paymentBalance:\s*(\d+)`)

type syncKey struct {
	requestID string
	userID    string
}

// ParseSyncErrors returns the sync errors found in the error records.
// Records that do not match, or whose balances overflow int64, are skipped.
func ParseSyncErrors(errs []ErrorRecord) []SyncError {
	out := make([]SyncError, 0)
	for _, e := range errs {
		m := syncErrorPattern.FindStringSubmatch(e.Message)
		if m == nil {
			continue
		}
		sub, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		pay, err := strconv.ParseInt(m[3], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, SyncError{
			RequestID:           e.RequestID,
			UserID:              m[1],
			SubscriptionBalance: sub,
			PaymentBalance:      pay,
			Time:                e.Time,
		})
	}
	return out
}

// Correlate inner-joins transactions to sync errors on (request id, user id).
// Each transaction appears at most once, carrying the earliest error time of
// its key. Empty request ids and user ids never join.
func Correlate(txns []TransactionRecord, syncErrs []SyncError) []CorrelatedTransaction {
	firstSeen := make(map[syncKey]time.Time, len(syncErrs))
	for _, s := range syncErrs {
		if s.RequestID == "" || s.UserID == "" {
			continue
		}
		k := syncKey{s.RequestID, s.UserID}
		prev, ok := firstSeen[k]
		if !ok || earlier(s.Time, prev) {
			firstSeen[k] = s.Time
		}
	}

	out := make([]CorrelatedTransaction, 0)
	for _, t := range txns {
		user := t.user()
		if t.RequestID == "" || user == "" {
			continue
		}
		errTime, ok := firstSeen[syncKey{t.RequestID, user}]
		if !ok {
			continue
		}
		out = append(out, CorrelatedTransaction{Transaction: t, ErrorTime: errTime})
	}
	return out
}

// earlier orders times ascending with the zero time last.
func earlier(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	if b.IsZero() {
		return true
	}
	return a.Before(b)
}

type userTotals struct {
	transactions int
	currency     string
}

type userLosses struct {
	errorTransactions int
	debit             decimal.Decimal
	credit            decimal.Decimal
	firstError        time.Time
}

// summarizeUsers groups the full transaction set by user.
func summarizeUsers(txns []TransactionRecord) map[string]*userTotals {
	totals := make(map[string]*userTotals)
	for _, t := range txns {
		user := t.user()
		if user == "" {
			continue
		}
		u, ok := totals[user]
		if !ok {
			u = &userTotals{}
			totals[user] = u
		}
		u.transactions++
		if u.currency == "" {
			u.currency = t.Currency.TakeOr("")
		}
	}
	return totals
}

// summarizeLosses groups the correlated set by user.
func summarizeLosses(correlated []CorrelatedTransaction) map[string]*userLosses {
	losses := make(map[string]*userLosses)
	for _, c := range correlated {
		t := c.Transaction
		user := t.user()
		l, ok := losses[user]
		if !ok {
			l = &userLosses{firstError: c.ErrorTime}
			losses[user] = l
		} else if earlier(c.ErrorTime, l.firstError) {
			l.firstError = c.ErrorTime
		}
		l.errorTransactions++

		amount, err := t.Amount.Take()
		if err != nil {
			continue
		}
		switch t.Type.TakeOr("") {
		case TypeDebit:
			l.debit = l.debit.Add(amount)
		case TypeCredit:
			l.credit = l.credit.Add(amount)
		}
	}
	return losses
}

// Aggregate builds one row per user present in both the full transaction
// summary and the correlated summary, sorted by user id.
func Aggregate(txns []TransactionRecord, correlated []CorrelatedTransaction) []BalanceSyncAggregate {
	totals := summarizeUsers(txns)
	losses := summarizeLosses(correlated)

	rows := make([]BalanceSyncAggregate, 0, len(losses))
	for user, l := range losses {
		t, ok := totals[user]
		if !ok {
			continue
		}
		rows = append(rows, BalanceSyncAggregate{
			UserID:                 user,
			TotalTransactions:      t.transactions,
			TotalErrorTransactions: l.errorTransactions,
			TotalDebitLoss:         l.debit,
			TotalCreditLoss:        l.credit,
			Currency:               t.currency,
			FirstErrorTime:         l.firstError,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].UserID < rows[j].UserID
	})
	return rows
}

// BalanceSyncCorrelator runs the three correlation stages over one set of
// transactions and errors.
type BalanceSyncCorrelator struct{}

// Run returns the parsed sync errors, the correlated transactions and the
// per-user aggregates.
func (BalanceSyncCorrelator) Run(txns []TransactionRecord, errs []ErrorRecord) ([]SyncError, []CorrelatedTransaction, []BalanceSyncAggregate) {
	syncErrs := ParseSyncErrors(errs)
	correlated := Correlate(txns, syncErrs)
	return syncErrs, correlated, Aggregate(txns, correlated)
}
