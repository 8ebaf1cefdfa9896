// Package remarks tallies occurrenceRemarks values to spot import metadata
// and boilerplate that should be cleaned from exports.
package remarks

import (
	"cmp"
	"slices"
	"sync"

	"github.com/batatlas/batatlas/internal/occurrence"
)

// Entry is one distinct remark and how often it occurs. Null marks the
// entry for records without remarks; its Text is empty.
type Entry struct {
	Text  string `json:"text"`
	Null  bool   `json:"null,omitempty"`
	Count int64  `json:"count"`
}

type remarkKey struct {
	text string
	null bool
}

// Counter tallies remarks. Safe for concurrent use.
type Counter struct {
	mu     sync.Mutex
	counts map[remarkKey]int64
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[remarkKey]int64)}
}

// Add counts the remark of r. Values are counted verbatim.
func (c *Counter) Add(r occurrence.Record) {
	key := remarkKey{null: true}
	if r.OccurrenceRemarks != nil {
		key = remarkKey{text: *r.OccurrenceRemarks}
	}
	c.mu.Lock()
	c.counts[key]++
	c.mu.Unlock()
}

// Distinct returns the number of distinct values seen.
func (c *Counter) Distinct() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counts)
}

// Top returns the n most frequent values, by count descending, the null
// entry first among equal counts, then text ascending. n <= 0 returns all
// values.
func (c *Counter) Top(n int) []Entry {
	c.mu.Lock()
	entries := make([]Entry, 0, len(c.counts))
	for k, count := range c.counts {
		entries = append(entries, Entry{Text: k.text, Null: k.null, Count: count})
	}
	c.mu.Unlock()

	slices.SortFunc(entries, func(a, b Entry) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		if a.Null != b.Null {
			if a.Null {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Text, b.Text)
	})
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
