package parser

import (
	"regexp"
	"sort"
	"strings"
)

// Segment splits raw log text into entry chunks.
//
// A chunk starts at every line beginning with a timestamp and runs up to the
// next such line or the end of input, line breaks included. Text before the
// first boundary forms its own chunk. Whitespace-only chunks are dropped.
func Segment(text string) []string {
	bounds := boundaryPattern.FindAllStringIndex(text, -1)

	starts := make([]int, 0, len(bounds)+1)
	if len(bounds) == 0 || bounds[0][0] != 0 {
		starts = append(starts, 0)
	}
	for _, b := range bounds {
		starts = append(starts, b[0])
	}

	chunks := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		chunk := text[start:end]
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}

	return chunks
}

// headerStep is one optional element of the header. Steps are tried in
// order against the current position; a step that matches consumes its
// text, a step that does not is skipped.
type headerStep struct {
	pattern *regexp.Regexp

	// needsBoundary requires whitespace or end of line after the match.
	needsBoundary bool

	// reject refuses a captured value that belongs to a later step.
	reject func(value string) bool

	assign func(e *LogEntry, value string)
}

var primaryTimePattern = regexp.MustCompile(`^` + timestampExpr)

var headerSteps = []headerStep{
	{
		pattern:       regexp.MustCompile(`^ +(\S+)`),
		needsBoundary: true,
		reject:        isHeaderKeyword,
		assign:        func(e *LogEntry, v string) { e.Category = v },
	},
	{
		pattern:       regexp.MustCompile(`^ +RequestId: *([\w-]+)`),
		needsBoundary: true,
		assign:        func(e *LogEntry, v string) { e.RequestID = v },
	},
	{
		pattern:       regexp.MustCompile(`^ +Version: *(\S+)`),
		needsBoundary: false,
		assign:        func(e *LogEntry, v string) { e.Version = v },
	},
	{
		pattern:       regexp.MustCompile(`^\t(` + timestampExpr + `)`),
		needsBoundary: true,
		assign: func(e *LogEntry, v string) {
			if ts, err := ParseTimestamp(v); err == nil {
				e.SecondaryTime = ts
			}
		},
	},
	{
		pattern:       regexp.MustCompile(`^\t([\w-]+)`),
		needsBoundary: true,
		assign:        func(e *LogEntry, v string) { e.SecondaryRequestID = v },
	},
	{
		pattern:       regexp.MustCompile(`^\t(\w+)`),
		needsBoundary: true,
		assign:        func(e *LogEntry, v string) { e.Level = strings.ToUpper(v) },
	},
}

// ParseEntry extracts the header fields of one entry chunk.
// A chunk whose first line has no header keeps that line as its message.
func ParseEntry(chunk, source string) LogEntry {
	lines := splitLines(chunk)
	first := lines[0]

	entry := LogEntry{SourceFile: source}

	inline := first
	if loc := primaryTimePattern.FindStringIndex(first); loc != nil {
		if ts, err := ParseTimestamp(first[:loc[1]]); err == nil {
			entry.PrimaryTime = ts
		}
		pos := loc[1]
		for _, step := range headerSteps {
			pos += step.apply(&entry, first[pos:])
		}
		inline = strings.TrimSpace(first[pos:])
	}

	if len(lines) > 1 {
		entry.Message = inline + "\n" + strings.Join(lines[1:], "\n")
	} else {
		entry.Message = inline
	}

	return entry
}

// apply runs the step against rest and returns the number of bytes consumed.
func (s headerStep) apply(e *LogEntry, rest string) int {
	m := s.pattern.FindStringSubmatchIndex(rest)
	if m == nil {
		return 0
	}
	end := m[1]
	if s.needsBoundary && end < len(rest) && !isSpace(rest[end]) {
		return 0
	}
	value := rest[m[2]:m[3]]
	if s.reject != nil && s.reject(value) {
		return 0
	}
	s.assign(e, value)
	return end
}

// isHeaderKeyword reports whether a token opens the RequestId or Version
// header element rather than naming a category.
func isHeaderKeyword(token string) bool {
	return strings.HasPrefix(token, "RequestId:") || strings.HasPrefix(token, "Version:")
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\v' || b == '\f'
}

// splitLines splits a chunk into physical lines. A single trailing line
// terminator does not produce an extra empty line.
func splitLines(chunk string) []string {
	chunk = strings.TrimSuffix(chunk, "\n")
	lines := strings.Split(chunk, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ParseSource segments and parses the text of one archive.
// Entries are returned in arrival order.
func ParseSource(source, text string) []LogEntry {
	chunks := Segment(text)
	entries := make([]LogEntry, 0, len(chunks))
	for _, chunk := range chunks {
		entries = append(entries, ParseEntry(chunk, source))
	}
	return entries
}

// ParseAll parses every source of a provenance-to-text mapping and merges
// the result into one time-ordered collection. Sources are visited in
// sorted provenance order.
func ParseAll(texts map[string]string) []LogEntry {
	names := make([]string, 0, len(texts))
	for name := range texts {
		names = append(names, name)
	}
	sort.Strings(names)

	perSource := make([][]LogEntry, 0, len(names))
	for _, name := range names {
		perSource = append(perSource, ParseSource(name, texts[name]))
	}
	return Merge(perSource...)
}
