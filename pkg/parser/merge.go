package parser

import (
	"container/heap"
	"sort"
)

// SortByTime stable-sorts entries by primary time, oldest first.
// Entries without a time keep their relative order and go last.
func SortByTime(entries []LogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entryBefore(&entries[i], &entries[j])
	})
}

// entryBefore orders timed entries ascending and untimed entries last.
func entryBefore(a, b *LogEntry) bool {
	switch {
	case !a.HasTime():
		return false
	case !b.HasTime():
		return true
	default:
		return a.PrimaryTime.Before(b.PrimaryTime)
	}
}

// Merge combines per-source entry collections into a single collection
// ordered by primary time. Each source is stable-sorted in place first, so callers
// may pass sources in arrival order. Equal times are broken by source
// position in the argument list, then by position within the source.
func Merge(sources ...[]LogEntry) []LogEntry {
	total := 0
	h := &entryHeap{}
	for i, src := range sources {
		if len(src) == 0 {
			continue
		}
		if !sort.SliceIsSorted(src, func(a, b int) bool { return entryBefore(&src[a], &src[b]) }) {
			SortByTime(src)
		}
		total += len(src)
		*h = append(*h, &heapItem{entries: src, sourceIdx: i})
	}
	heap.Init(h)

	merged := make([]LogEntry, 0, total)
	for h.Len() > 0 {
		item := (*h)[0]
		merged = append(merged, item.entries[item.pos])
		item.pos++
		if item.pos == len(item.entries) {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
	}

	return merged
}

// heapItem is a cursor into one source's sorted entries.
type heapItem struct {
	entries   []LogEntry
	pos       int
	sourceIdx int
}

// entryHeap implements heap.Interface for timestamp-ordered merging.
type entryHeap []*heapItem

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	a := &h[i].entries[h[i].pos]
	b := &h[j].entries[h[j].pos]
	if entryBefore(a, b) {
		return true
	}
	if entryBefore(b, a) {
		return false
	}
	return h[i].sourceIdx < h[j].sourceIdx
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(*heapItem))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}
