// Package resultlog holds the crawl's append-only record of successfully
// fetched pages, behind an exclusive write lock with snapshot reads.
package resultlog

import (
	"sync"

	"github.com/corrinfell/politecrawl/model"
)

// Log is a concurrency-safe, append-only list of CrawlResult. Many Workers
// append to the same Log concurrently; the Engine (or any external
// collaborator) reads a point-in-time copy via Snapshot.
type Log struct {
	mu      sync.Mutex
	results []model.CrawlResult
}

// New creates an empty Log.
func New() *Log {
	return &Log{}
}

// Append records one successfully fetched page.
func (l *Log) Append(result model.CrawlResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, result)
}

// Snapshot returns a copy of every result recorded so far. The returned
// slice is safe to range over without further locking.
func (l *Log) Snapshot() []model.CrawlResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.CrawlResult, len(l.results))
	copy(out, l.results)
	return out
}

// Len returns the number of results recorded so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}
