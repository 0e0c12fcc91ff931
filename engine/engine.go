// Package engine is the crawl orchestrator: it pulls URLEntry values off
// the Frontier, consults the PolitenessGate and RobotsCache, dispatches
// admissible fetches to the Scheduler, and folds results back into the
// Frontier and the shared CrawlStats/result log.
package engine

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/corrinfell/politecrawl/crawlconfig"
	"github.com/corrinfell/politecrawl/frontier"
	"github.com/corrinfell/politecrawl/model"
	"github.com/corrinfell/politecrawl/politeness"
	"github.com/corrinfell/politecrawl/resultlog"
	"github.com/corrinfell/politecrawl/robots"
	"github.com/corrinfell/politecrawl/scheduler"
	"github.com/corrinfell/politecrawl/stats"
	"github.com/corrinfell/politecrawl/worker"
)

// idleInterval is the Engine loop's sleep when there is no work to pop but
// fetches are still in progress, or when a pop was deferred.
const idleInterval = 100 * time.Millisecond

// defaultMemoryLimitMB bounds the MemoryWatcher's backpressure threshold.
// A crawl's frontier and result log both grow without bound and nothing
// is persisted, so this is the only valve the Engine has.
const defaultMemoryLimitMB = 1024

// Engine ties the Frontier, PolitenessGate, RobotsCache, Scheduler and
// Worker together under one orchestration loop. Safe for concurrent use
// only via its documented API; it owns its collaborators exclusively.
type Engine struct {
	cfg        crawlconfig.CrawlConfig
	frontier   *frontier.Frontier
	gate       *politeness.Gate
	robots     *robots.Cache
	worker     *worker.Worker
	tracker    *stats.Tracker
	results    *resultlog.Log
	memWatcher *stats.MemoryWatcher
	logger     *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc

	subsMu sync.Mutex
	subs   []chan model.CrawlStats
}

// New validates cfg and wires a ready-to-run Engine. A ConfigError is the
// only error class New returns.
func New(cfg crawlconfig.CrawlConfig) (*Engine, error) {
	validated, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	logger := log.New(os.Stderr, "", 0)
	memWatcher := stats.NewMemoryWatcher(defaultMemoryLimitMB)
	memWatcher.SetThrottleCallback(func(level stats.ThrottleLevel) {
		logger.Printf("[%s] memory throttle level changed to %v",
			time.Now().UTC().Format(time.RFC3339), level)
	})

	return &Engine{
		cfg:        validated,
		frontier:   frontier.New(),
		gate:       politeness.New(validated.Politeness),
		robots:     robots.NewCache(&http.Client{}),
		worker:     worker.New(validated),
		tracker:    stats.New(),
		results:    resultlog.New(),
		memWatcher: memWatcher,
		logger:     logger,
	}, nil
}

// AddSeed enqueues rawURL at depth 0.
func (e *Engine) AddSeed(rawURL string) {
	e.frontier.Add(rawURL, 0)
}

// AddSeeds enqueues every URL in urls at depth 0.
func (e *Engine) AddSeeds(urls []string) {
	for _, u := range urls {
		e.AddSeed(u)
	}
}

// GetStats returns a point-in-time CrawlStats snapshot.
func (e *Engine) GetStats() model.CrawlStats {
	return e.tracker.Snapshot()
}

// GetResults returns a snapshot of every CrawlResult recorded so far.
func (e *Engine) GetResults() []model.CrawlResult {
	return e.results.Snapshot()
}

// Subscribe returns a channel that receives a CrawlStats snapshot after
// every loop iteration that changes progress. The channel is closed when
// Start returns. Sends are non-blocking: a slow subscriber misses
// intermediate snapshots rather than stalling the crawl.
func (e *Engine) Subscribe() <-chan model.CrawlStats {
	ch := make(chan model.CrawlStats, 1)
	e.subsMu.Lock()
	e.subs = append(e.subs, ch)
	e.subsMu.Unlock()
	return ch
}

// Stop aborts the running crawl: outstanding fetches are cancelled via
// context and counted as failed. Calling Stop before Start or more than
// once is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Start runs the crawl to completion: frontier-empty and in_progress==0.
// It returns when the crawl finishes or ctx/Stop cancels it; fetch errors
// never propagate out — only a nil error is ever returned here, since
// configuration errors already surfaced from New.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()
	defer e.closeSubscribers()

	sched := scheduler.New(runCtx, e.cfg.MaxWorkers)

	for {
		select {
		case <-runCtx.Done():
			sched.Shutdown()
			return nil
		default:
		}

		entry, ok := e.frontier.GetNext()
		if !ok {
			if e.tracker.InProgress() == 0 {
				sched.Shutdown()
				return nil
			}
			if !e.idleSleep(runCtx) {
				sched.Shutdown()
				return nil
			}
			continue
		}

		// Speculative entry past the depth bound: discard, not a failure.
		if entry.Depth > e.cfg.MaxDepth {
			continue
		}

		if _, hasHost := hostOf(entry.URL); !hasHost {
			// Unparseable or hostless: can never become admissible, so this
			// is a permanent rejection rather than a politeness deferral.
			e.tracker.RecordRejected()
			continue
		}

		if !e.gate.CanCrawl(entry.URL) {
			e.frontier.AddRequeue(entry.URL, entry.Depth)
			if !e.idleSleep(runCtx) {
				sched.Shutdown()
				return nil
			}
			continue
		}

		if e.cfg.RespectRobotsTxt {
			allowed, err := e.robots.IsAllowed(runCtx, entry.URL, e.cfg.UserAgent)
			if err != nil {
				e.logger.Printf("[%s] robots.txt check failed for %s: %v",
					time.Now().UTC().Format(time.RFC3339), entry.URL, err)
			}
			if !allowed {
				e.tracker.RecordRejected()
				continue
			}
			if host, ok := hostOf(entry.URL); ok {
				if delay, ok := e.robots.CrawlDelay(host, e.cfg.UserAgent); ok {
					e.gate.SetCrawlDelay(host, delay)
				}
			}
		}

		if _, level := e.memWatcher.Check(); level == stats.ThrottleCritical {
			e.frontier.AddRequeue(entry.URL, entry.Depth)
			if !e.idleSleep(runCtx) {
				sched.Shutdown()
				return nil
			}
			continue
		}

		// Record the host access at dispatch, so the next admission for this
		// host is spaced from the start of this fetch rather than its end.
		e.gate.RecordCrawl(entry.URL)
		e.tracker.IncrementDispatched()
		dispatched := entry
		if !sched.Spawn(func(taskCtx context.Context) {
			e.runFetch(taskCtx, dispatched)
		}) {
			// Scheduler is shutting down underneath us: count the dispatch as
			// failed so in_progress drops back and the counters stay consistent
			// on exit.
			e.tracker.RecordFailure()
			continue
		}

		e.broadcast()
	}
}

// runFetch performs one dispatched fetch and folds its outcome back into
// the shared result log, frontier and stats: on success, result-log-append,
// then child frontier additions, and only then the in_progress decrement —
// so a concurrent termination check can never observe in_progress==0 while
// a child link is still unaccounted for. The politeness access was already
// recorded by Start when it dispatched the fetch.
func (e *Engine) runFetch(ctx context.Context, entry model.URLEntry) {
	start := time.Now()
	result, err := e.worker.Crawl(ctx, entry.URL)

	if err != nil {
		e.logger.Printf("[%s] Failed to crawl %s: %v",
			time.Now().UTC().Format(time.RFC3339), entry.URL, err)
		e.tracker.RecordFailure()
		e.broadcast()
		return
	}

	e.results.Append(result)
	for _, link := range result.ExtractedLinks {
		e.frontier.Add(link, entry.Depth+1)
	}
	e.tracker.RecordSuccess(float64(time.Since(start).Milliseconds()))
	e.broadcast()
}

// idleSleep waits idleInterval, returning false early if ctx is done.
func (e *Engine) idleSleep(ctx context.Context) bool {
	select {
	case <-time.After(idleInterval):
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) broadcast() {
	snapshot := e.tracker.Snapshot()
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil
}

func hostOf(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	return parsed.Host, true
}
