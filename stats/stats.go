// Package stats holds the crawl's live progress counters: total dispatched,
// successful, failed, in-progress, and a running average response time.
package stats

import (
	"sync"
	"time"

	"github.com/corrinfell/politecrawl/model"
)

// Tracker accumulates counters under a single lock, so every Snapshot
// satisfies TotalURLs == Successful+Failed+InProgress.
type Tracker struct {
	mu                sync.Mutex
	totalURLs         int
	successful        int
	failed            int
	inProgress        int
	totalResponseTime float64 // sum of ms, for the running average
	startTime         time.Time
}

// New creates a Tracker with its clock started now.
func New() *Tracker {
	return &Tracker{startTime: time.Now()}
}

// IncrementDispatched records that a URL has been handed to the Scheduler:
// total_urls and in_progress both increase.
func (t *Tracker) IncrementDispatched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalURLs++
	t.inProgress++
}

// RecordSuccess moves one in-progress fetch to successful, folding
// responseTimeMs into the running average.
func (t *Tracker) RecordSuccess(responseTimeMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inProgress--
	t.successful++
	t.totalResponseTime += responseTimeMs
}

// RecordFailure moves one in-progress fetch to failed.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inProgress--
	t.failed++
}

// RecordRejected counts a URL as failed without it ever having been
// dispatched (no matching IncrementDispatched call) — a hostless/unparseable
// URL, or one robots.txt disallows outright. Unlike RecordFailure, it does
// not touch in_progress, since there is nothing in-flight to retire; it
// still advances total_urls so the counters stay consistent.
func (t *Tracker) RecordRejected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalURLs++
	t.failed++
}

// InProgress returns the current in-flight fetch count.
func (t *Tracker) InProgress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inProgress
}

// Snapshot returns a consistent, point-in-time copy of every counter.
func (t *Tracker) Snapshot() model.CrawlStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var avg float64
	if t.successful > 0 {
		avg = t.totalResponseTime / float64(t.successful)
	}

	return model.CrawlStats{
		TotalURLs:             t.totalURLs,
		Successful:            t.successful,
		Failed:                t.failed,
		InProgress:            t.inProgress,
		AverageResponseTimeMs: avg,
		StartTime:             t.startTime,
		ElapsedTime:           time.Since(t.startTime),
	}
}
