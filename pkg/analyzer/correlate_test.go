package analyzer

import (
	"fmt"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func txn(id, requestID, user, typ string, amount int64) TransactionRecord {
	r := TransactionRecord{ID: id, RequestID: requestID}
	if user != "" {
		r.UserID = optional.Some(user)
	}
	if typ != "" {
		r.Type = optional.Some(typ)
	}
	if amount >= 0 {
		r.Amount = optional.Some(decimal.NewFromInt(amount))
	}
	return r
}

func syncMessage(user string) string {
	return fmt.Sprintf("Balance mismatch userId: '%s'\n  subscriptionBalance: 10\n  paymentBalance: 5", user)
}

func TestParseSyncErrors(t *testing.T) {
	errs := []ErrorRecord{
		{Time: t0, RequestID: "r1", Message: syncMessage("u1")},
		{Time: t0, RequestID: "r2", Message: "ERROR level but no balances, userId: 'u2'"},
		{Time: t0, RequestID: "r3", Message: "paymentBalance: 1 subscriptionBalance: 2 userId: 'u3'"},
		{Time: t0, RequestID: "r4", Message: "userId: 'u4' subscriptionBalance: 99999999999999999999 paymentBalance: 1"},
		{Time: t0, RequestID: "r5", Message: "userId:'u5' x subscriptionBalance:7 y paymentBalance:   8"},
	}

	got := ParseSyncErrors(errs)
	require.Len(t, got, 2)

	assert.Equal(t, SyncError{RequestID: "r1", UserID: "u1", SubscriptionBalance: 10, PaymentBalance: 5, Time: t0}, got[0])
	assert.Equal(t, "u5", got[1].UserID)
	assert.Equal(t, int64(7), got[1].SubscriptionBalance)
	assert.Equal(t, int64(8), got[1].PaymentBalance)
}

func TestCorrelate_JoinLaw(t *testing.T) {
	txns := []TransactionRecord{
		txn("t1", "r1", "u1", TypeDebit, 10),
		txn("t2", "r1", "u2", TypeDebit, 10), // same request, other user
		txn("t3", "r2", "u1", TypeDebit, 10), // same user, other request
		txn("t4", "", "u1", TypeDebit, 10),   // no request id
		txn("t5", "r3", "", TypeDebit, 10),   // no user
		txn("t6", "r1", "u1", TypeCredit, 4), // second transaction on the key
	}
	syncErrs := []SyncError{
		{RequestID: "r1", UserID: "u1", Time: t0.Add(time.Minute)},
		{RequestID: "r1", UserID: "u1", Time: t0},
		{RequestID: "", UserID: "u1", Time: t0},
		{RequestID: "r3", UserID: "", Time: t0},
	}

	got := Correlate(txns, syncErrs)

	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.Transaction.ID
		assert.Equal(t, t0, c.ErrorTime, "earliest error time for %s", c.Transaction.ID)
	}
	assert.Equal(t, []string{"t1", "t6"}, ids)
}

func TestCorrelate_UntimedErrorsSortLast(t *testing.T) {
	txns := []TransactionRecord{txn("t1", "r1", "u1", TypeDebit, 1)}
	syncErrs := []SyncError{
		{RequestID: "r1", UserID: "u1"},
		{RequestID: "r1", UserID: "u1", Time: t0},
	}

	got := Correlate(txns, syncErrs)
	require.Len(t, got, 1)
	assert.Equal(t, t0, got[0].ErrorTime)
}

func TestAggregate_Totals(t *testing.T) {
	txns := []TransactionRecord{
		txn("a1", "r1", "alice", TypeDebit, 50),
		txn("a2", "r1", "alice", TypeCredit, 20),
		txn("a3", "r2", "alice", TypeDebit, 7),
		txn("a4", "r9", "alice", TypeDebit, 1000), // not correlated
		txn("b1", "r3", "bob", TypeDebit, 5),
		txn("c1", "r4", "carol", TypeDebit, 1),  // no sync error
		txn("n1", "r1", "alice", "", 99),        // no type
		txn("n2", "r2", "alice", TypeDebit, -1), // no amount
	}
	txns[0].Currency = optional.Some("USD")
	txns[1].Currency = optional.Some("EUR")
	txns[4].Currency = optional.Some("GBP")

	syncErrs := []SyncError{
		{RequestID: "r1", UserID: "alice", Time: t0.Add(time.Hour)},
		{RequestID: "r2", UserID: "alice", Time: t0},
		{RequestID: "r3", UserID: "bob", Time: t0.Add(2 * time.Hour)},
	}

	rows := Aggregate(txns, Correlate(txns, syncErrs))
	require.Len(t, rows, 2)

	alice := rows[0]
	assert.Equal(t, "alice", alice.UserID)
	assert.Equal(t, 6, alice.TotalTransactions)
	assert.Equal(t, 5, alice.TotalErrorTransactions)
	assert.True(t, decimal.NewFromInt(57).Equal(alice.TotalDebitLoss), "debit = %s", alice.TotalDebitLoss)
	assert.True(t, decimal.NewFromInt(20).Equal(alice.TotalCreditLoss), "credit = %s", alice.TotalCreditLoss)
	assert.Equal(t, "USD", alice.Currency)
	assert.Equal(t, t0, alice.FirstErrorTime)

	bob := rows[1]
	assert.Equal(t, "bob", bob.UserID)
	assert.Equal(t, 1, bob.TotalTransactions)
	assert.True(t, decimal.NewFromInt(5).Equal(bob.TotalDebitLoss))
	assert.True(t, bob.TotalCreditLoss.IsZero())
	assert.Equal(t, "GBP", bob.Currency)
}

func TestAggregate_DebitLossEqualsSum(t *testing.T) {
	var txns []TransactionRecord
	var syncErrs []SyncError
	want := map[string]int64{}
	for i := 0; i < 40; i++ {
		user := fmt.Sprintf("u%d", i%4)
		req := fmt.Sprintf("r%d", i)
		typ := TypeDebit
		if i%3 == 0 {
			typ = TypeCredit
		}
		txns = append(txns, txn(fmt.Sprintf("t%d", i), req, user, typ, int64(i)))
		if i%2 == 0 {
			syncErrs = append(syncErrs, SyncError{RequestID: req, UserID: user, Time: t0})
			if typ == TypeDebit {
				want[user] += int64(i)
			}
		}
	}

	rows := Aggregate(txns, Correlate(txns, syncErrs))
	for _, r := range rows {
		assert.True(t, decimal.NewFromInt(want[r.UserID]).Equal(r.TotalDebitLoss),
			"user %s: debit %s, want %d", r.UserID, r.TotalDebitLoss, want[r.UserID])
		assert.Equal(t, 10, r.TotalTransactions)
	}
}

func TestAggregate_FirstNonEmptyCurrency(t *testing.T) {
	txns := []TransactionRecord{
		txn("t1", "r1", "u1", TypeDebit, 1),
		txn("t2", "r2", "u1", TypeDebit, 1),
	}
	txns[1].Currency = optional.Some("JPY")

	rows := Aggregate(txns, Correlate(txns, []SyncError{{RequestID: "r1", UserID: "u1", Time: t0}}))
	require.Len(t, rows, 1)
	assert.Equal(t, "JPY", rows[0].Currency)
}

func TestBalanceSyncCorrelator_NoMatchesIsEmptyNotNil(t *testing.T) {
	txns := []TransactionRecord{txn("t1", "r1", "u1", TypeDebit, 1)}
	errs := []ErrorRecord{{Time: t0, RequestID: "r1", Message: "ERROR without balances userId: 'u1'"}}

	syncErrs, correlated, rows := BalanceSyncCorrelator{}.Run(txns, errs)
	assert.Empty(t, syncErrs)
	assert.Empty(t, correlated)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
