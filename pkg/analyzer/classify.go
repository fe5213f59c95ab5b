package analyzer

import (
	"regexp"
	"strings"

	"github.com/ccollicutt/ledgerlog/pkg/parser"
)

// errorWordPattern matches "error" as a whole word in any case. Identifiers
// such as error_code or errors do not match.
var errorWordPattern = regexp.MustCompile(`(?i)\berror\b`)

// ErrorRules selects the signals that classify an entry as an error. The
// two signals are independent; an entry is an error if any enabled signal
// fires.
type ErrorRules struct {
	// MatchLevel classifies entries whose level is ERROR.
	MatchLevel bool

	// MatchWord classifies entries whose message contains the word "error".
	MatchWord bool
}

// DefaultErrorRules enables both signals.
func DefaultErrorRules() ErrorRules {
	return ErrorRules{MatchLevel: true, MatchWord: true}
}

// IsError reports whether the entry is an error under these rules.
func (r ErrorRules) IsError(e *parser.LogEntry) bool {
	if r.MatchLevel && strings.ToUpper(e.Level) == "ERROR" {
		return true
	}
	return r.MatchWord && errorWordPattern.MatchString(e.Message)
}

// ExtractErrors returns an ErrorRecord for every error entry, in entry order.
func (r ErrorRules) ExtractErrors(entries []parser.LogEntry) []ErrorRecord {
	records := make([]ErrorRecord, 0)
	for i := range entries {
		e := &entries[i]
		if !r.IsError(e) {
			continue
		}
		records = append(records, ErrorRecord{
			Time:       e.PrimaryTime,
			RequestID:  e.SecondaryRequestID,
			Message:    e.Message,
			SourceFile: e.SourceFile,
		})
	}
	return records
}
