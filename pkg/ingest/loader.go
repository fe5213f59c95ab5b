package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/ccollicutt/ledgerlog/pkg/parser"
)

// ErrNoSources is returned when there is nothing to load.
var ErrNoSources = errors.New("no log sources to load")

// SourceFailure records a source that could not be read.
type SourceFailure struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (f SourceFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Source, f.Err)
}

// Unwrap returns the underlying error.
func (f SourceFailure) Unwrap() error {
	return f.Err
}

// SourceStat summarises one successfully parsed source.
type SourceStat struct {
	Source  string
	Entries int
}

// Result is the outcome of loading a set of sources.
type Result struct {
	// Entries holds every parsed entry, ordered by primary time.
	Entries []parser.LogEntry

	// Sources lists the sources that were parsed, in provenance order.
	Sources []SourceStat

	// Failures lists the sources that could not be read.
	Failures []SourceFailure
}

// Loader reads and parses sources concurrently on a bounded worker pool.
type Loader struct {
	workers int
	logger  zerolog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithWorkers sets the number of sources processed in parallel.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the logger used for per-source progress and failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader. The default pool size is the number of CPUs.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		workers: runtime.NumCPU(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every archive path, parses it and merges the entries.
// A source that cannot be read is reported in Result.Failures and does not
// stop the others.
func (l *Loader) Load(ctx context.Context, paths []string) (*Result, error) {
	tasks := make([]task, len(paths))
	for i, path := range paths {
		tasks[i] = task{source: path, read: func() (string, error) { return ReadArchive(path) }}
	}
	return l.run(ctx, tasks)
}

// LoadTexts parses already decompressed text keyed by provenance.
func (l *Loader) LoadTexts(ctx context.Context, texts map[string]string) (*Result, error) {
	names := make([]string, 0, len(texts))
	for name := range texts {
		names = append(names, name)
	}
	sort.Strings(names)

	tasks := make([]task, len(names))
	for i, name := range names {
		text := texts[name]
		tasks[i] = task{source: name, read: func() (string, error) { return text, nil }}
	}
	return l.run(ctx, tasks)
}

// task produces the text of one source.
type task struct {
	source string
	read   func() (string, error)
}

// taskResult holds the per-source outcome, indexed like the task list.
type taskResult struct {
	entries []parser.LogEntry
	err     error
}

func (l *Loader) run(ctx context.Context, tasks []task) (*Result, error) {
	if len(tasks) == 0 {
		return nil, ErrNoSources
	}

	size := l.workers
	if size > len(tasks) {
		size = len(tasks)
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]taskResult, len(tasks))
	var wg sync.WaitGroup

	for i := range tasks {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = l.process(ctx, tasks[i])
		})
		if err != nil {
			wg.Done()
			results[i] = taskResult{err: fmt.Errorf("submitting to worker pool: %w", err)}
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}
	perSource := make([][]parser.LogEntry, 0, len(tasks))
	for i, r := range results {
		if r.err != nil {
			l.logger.Warn().Err(r.err).Str("source", tasks[i].source).Msg("Skipping unreadable source")
			result.Failures = append(result.Failures, SourceFailure{Source: tasks[i].source, Err: r.err})
			continue
		}
		perSource = append(perSource, r.entries)
		result.Sources = append(result.Sources, SourceStat{Source: tasks[i].source, Entries: len(r.entries)})
	}

	result.Entries = parser.Merge(perSource...)

	l.logger.Info().
		Int("sources", len(result.Sources)).
		Int("failed", len(result.Failures)).
		Int("entries", len(result.Entries)).
		Msg("Sources loaded")

	return result, nil
}

// process reads, segments, parses and sorts one source inside a worker.
func (l *Loader) process(ctx context.Context, t task) taskResult {
	if err := ctx.Err(); err != nil {
		return taskResult{err: err}
	}

	start := time.Now()
	text, err := t.read()
	if err != nil {
		return taskResult{err: err}
	}

	entries := parser.ParseSource(t.source, text)
	parser.SortByTime(entries)

	l.logger.Debug().
		Str("source", t.source).
		Int("entries", len(entries)).
		Dur("duration", time.Since(start)).
		Msg("Source parsed")

	return taskResult{entries: entries}
}
