package parser

import (
	"fmt"
	"regexp"
	"time"
)

// timestampExpr is the entry boundary timestamp: 4-digit year, ISO-8601
// date and time, trailing Z.
const timestampExpr = `\d{4}-\d{2}-\d{2}T[0-9:.]+Z`

// boundaryPattern matches an entry-starting timestamp at any line start.
var boundaryPattern = regexp.MustCompile(`(?m)^` + timestampExpr)

// ParseTimestamp parses a header timestamp such as 2024-01-01T10:00:00.123Z.
// The result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return ts.UTC(), nil
}
