package analyzer

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ErrorsByMonth counts error records per UTC calendar month, ascending.
// Errors without a time are not counted.
func ErrorsByMonth(errs []ErrorRecord) []MonthlyErrorCount {
	counts := make(map[string]int)
	for _, e := range errs {
		if e.Time.IsZero() {
			continue
		}
		counts[e.Time.UTC().Format("2006-01")]++
	}

	out := make([]MonthlyErrorCount, 0, len(counts))
	for month, n := range counts {
		out = append(out, MonthlyErrorCount{Month: month, ErrorCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// TopErrorReasons joins each error to the transactions sharing its request
// id and counts the pairs per transaction action. Pairs whose transaction
// has no action are ignored. Results are ordered by count descending, then
// action ascending.
func TopErrorReasons(errs []ErrorRecord, txns []TransactionRecord) []ErrorReason {
	actions := make(map[string][]string)
	for _, t := range txns {
		if t.RequestID == "" {
			continue
		}
		if a, err := t.Action.Take(); err == nil {
			actions[t.RequestID] = append(actions[t.RequestID], a)
		}
	}

	counts := make(map[string]int)
	for _, e := range errs {
		if e.RequestID == "" {
			continue
		}
		for _, a := range actions[e.RequestID] {
			counts[a]++
		}
	}

	out := make([]ErrorReason, 0, len(counts))
	for action, n := range counts {
		out = append(out, ErrorReason{Action: action, ErrorCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ErrorCount != out[j].ErrorCount {
			return out[i].ErrorCount > out[j].ErrorCount
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// LossByCurrency sums balance-sync losses per currency, ascending by
// currency. Rows without a currency are not counted.
func LossByCurrency(rows []BalanceSyncAggregate) []CurrencyLoss {
	byCurrency := make(map[string]*CurrencyLoss)
	for _, r := range rows {
		if r.Currency == "" {
			continue
		}
		c, ok := byCurrency[r.Currency]
		if !ok {
			c = &CurrencyLoss{Currency: r.Currency, TotalDebitLoss: decimal.Zero, TotalCreditLoss: decimal.Zero}
			byCurrency[r.Currency] = c
		}
		c.TotalDebitLoss = c.TotalDebitLoss.Add(r.TotalDebitLoss)
		c.TotalCreditLoss = c.TotalCreditLoss.Add(r.TotalCreditLoss)
	}

	out := make([]CurrencyLoss, 0, len(byCurrency))
	for _, c := range byCurrency {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
