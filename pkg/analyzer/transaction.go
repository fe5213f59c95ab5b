package analyzer

import (
	"regexp"
	"strconv"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/ccollicutt/ledgerlog/pkg/parser"
)

// fieldPattern binds one transaction key to its pattern and typed setter.
// A setter that cannot coerce the captured text leaves the field None.
type fieldPattern struct {
	name    string
	pattern *regexp.Regexp
	set     func(r *TransactionRecord, value string)
}

// Keys are matched at a word boundary and case-sensitively, so "id: '"
// never matches inside "tx_id: '" or "userId: '".
var (
	idPattern = regexp.MustCompile(`\bid: '([^']*)'`)

	transactionFields = []fieldPattern{
		quotedField("type", func(r *TransactionRecord, v optional.Option[string]) { r.Type = v }),
		quotedField("source", func(r *TransactionRecord, v optional.Option[string]) { r.Source = v }),
		quotedField("action", func(r *TransactionRecord, v optional.Option[string]) { r.Action = v }),
		quotedField("userId", func(r *TransactionRecord, v optional.Option[string]) { r.UserID = v }),
		integerField("paymentBalance", func(r *TransactionRecord, v optional.Option[int64]) { r.PaymentBalance = v }),
		{
			name:    "updatePaymentBalance",
			pattern: keyPattern("updatePaymentBalance", `(true|false)`),
			set: func(r *TransactionRecord, v string) {
				r.UpdatePaymentBalance = optional.Some(v == "true")
			},
		},
		quotedField("metadata", func(r *TransactionRecord, v optional.Option[string]) { r.Metadata = v }),
		quotedField("currency", func(r *TransactionRecord, v optional.Option[string]) { r.Currency = v }),
		decimalField("amount", func(r *TransactionRecord, v optional.Option[decimal.Decimal]) { r.Amount = v }),
		decimalField("vat", func(r *TransactionRecord, v optional.Option[decimal.Decimal]) { r.VAT = v }),
		integerField("oldBalance", func(r *TransactionRecord, v optional.Option[int64]) { r.OldBalance = v }),
		integerField("newBalance", func(r *TransactionRecord, v optional.Option[int64]) { r.NewBalance = v }),
	}
)

func keyPattern(key, value string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `: ` + value)
}

func quotedField(key string, assign func(*TransactionRecord, optional.Option[string])) fieldPattern {
	return fieldPattern{
		name:    key,
		pattern: keyPattern(key, `'([^']*)'`),
		set: func(r *TransactionRecord, v string) {
			assign(r, optional.Some(v))
		},
	}
}

func integerField(key string, assign func(*TransactionRecord, optional.Option[int64])) fieldPattern {
	return fieldPattern{
		name:    key,
		pattern: keyPattern(key, `(\d+)`),
		set: func(r *TransactionRecord, v string) {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return
			}
			assign(r, optional.Some(n))
		},
	}
}

func decimalField(key string, assign func(*TransactionRecord, optional.Option[decimal.Decimal])) fieldPattern {
	return fieldPattern{
		name:    key,
		pattern: keyPattern(key, `(\d+\.?\d*)`),
		set: func(r *TransactionRecord, v string) {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return
			}
			assign(r, optional.Some(d))
		},
	}
}

// TransactionExtractor turns entry messages into transaction records. It
// holds only the immutable pattern table and is safe for concurrent use.
type TransactionExtractor struct {
	fields []fieldPattern
}

// NewTransactionExtractor creates an extractor with the standard field table.
func NewTransactionExtractor() *TransactionExtractor {
	return &TransactionExtractor{fields: transactionFields}
}

// fieldNames returns the names of the optional fields in table order.
func (x *TransactionExtractor) fieldNames() []string {
	names := make([]string, len(x.fields))
	for i, f := range x.fields {
		names[i] = f.name
	}
	return names
}

// Extract builds a transaction record from the entry. It returns false when
// the message carries no transaction id.
func (x *TransactionExtractor) Extract(e *parser.LogEntry) (TransactionRecord, bool) {
	m := idPattern.FindStringSubmatch(e.Message)
	if m == nil {
		return TransactionRecord{}, false
	}

	rec := TransactionRecord{
		ID:         m[1],
		RequestID:  e.SecondaryRequestID,
		Timestamp:  e.PrimaryTime,
		SourceFile: e.SourceFile,
	}
	for _, f := range x.fields {
		if fm := f.pattern.FindStringSubmatch(e.Message); fm != nil {
			f.set(&rec, fm[1])
		}
	}
	return rec, true
}

// ExtractAll extracts transactions from every entry in order and returns
// them with the number of entries dropped for lacking an id.
func (x *TransactionExtractor) ExtractAll(entries []parser.LogEntry) ([]TransactionRecord, int) {
	records := make([]TransactionRecord, 0)
	dropped := 0
	for i := range entries {
		rec, ok := x.Extract(&entries[i])
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped
}
