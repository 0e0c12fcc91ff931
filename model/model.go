// Package model holds the crawl engine's shared data types: the unit of
// frontier work, a fetched page's result, and the aggregate stats snapshot.
// These types cross package boundaries (frontier, worker, stats, engine)
// so they live here rather than in any one of those packages, avoiding
// import cycles.
package model

import "time"

// URLEntry pairs an absolute URL with its hop distance from the nearest
// seed. The URL is the identity; Depth is bookkeeping for bounding and
// child-depth computation.
type URLEntry struct {
	URL   string
	Depth int
}

// CrawlResult is the record of one successfully fetched URL.
type CrawlResult struct {
	URL             string
	StatusCode      int
	ResponseHeaders map[string]string
	Body            string
	ExtractedLinks  []string
	FetchedAt       time.Time
}

// CrawlStats is a point-in-time snapshot of aggregate crawl progress.
// Invariant: TotalURLs == Successful + Failed + InProgress for every
// snapshot returned by stats.Tracker.Snapshot.
type CrawlStats struct {
	TotalURLs             int
	Successful            int
	Failed                int
	InProgress            int
	AverageResponseTimeMs float64
	StartTime             time.Time
	ElapsedTime           time.Duration
}
