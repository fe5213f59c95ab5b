// Package parser reconstructs log entries from raw archive text.
package parser

import "time"

// LogEntry is one reconstructed unit of log text.
//
// Structured header fields that were not present are left as the empty
// string (or the zero time). Header tokens are never empty when matched, so
// the empty value is unambiguous.
type LogEntry struct {
	// PrimaryTime is the leading timestamp of the entry.
	PrimaryTime time.Time

	// Category is the first space-delimited token after the primary time.
	Category string

	// RequestID is the primary request id ("RequestId: <id>").
	RequestID string

	// Version is the "Version: <v>" header value.
	Version string

	// SecondaryTime is the tab-delimited timestamp following the header.
	SecondaryTime time.Time

	// SecondaryRequestID is the tab-delimited request id. Errors and
	// transactions are correlated on this field.
	SecondaryRequestID string

	// Level is the upper-cased severity.
	Level string

	// Message is the unmatched remainder of the first line plus every
	// following line of the entry.
	Message string

	// SourceFile is the archive the entry came from.
	SourceFile string
}

// HasTime reports whether the primary time was parsed.
func (e *LogEntry) HasTime() bool {
	return !e.PrimaryTime.IsZero()
}
