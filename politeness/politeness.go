// Package politeness implements the crawl engine's per-host pacing: a
// token bucket plus a minimum inter-request delay, so the engine never
// hammers a single host regardless of how many workers are available.
// Each host gets its own limiter in a lock-free map, so pacing one host
// never blocks admission checks for another.
package politeness

import (
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/corrinfell/politecrawl/crawlconfig"
)

// hostState is the per-host admission state: a token bucket plus the
// instant of the last recorded access. Every field is guarded by mu so
// CanCrawl's read-then-probe and RecordCrawl's write can't interleave
// inconsistently for the same host.
type hostState struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	lastAccess time.Time
	crawlDelay time.Duration // learned from robots.txt Crawl-delay, if any
}

// Gate decides whether a URL may be fetched right now, and separately
// records that a fetch was attempted. Safe for concurrent use by the
// engine loop and by workers.
type Gate struct {
	cfg   crawlconfig.PolitenessConfig
	hosts sync.Map // host string -> *hostState
}

// New creates a Gate from the crawl's politeness configuration.
func New(cfg crawlconfig.PolitenessConfig) *Gate {
	return &Gate{cfg: cfg}
}

// CanCrawl reports whether url may be fetched right now: its host must
// parse, at least DefaultDelayMs (or any longer robots Crawl-delay) must
// have elapsed since the last recorded access to that host, and the
// host's token bucket must have a token available. The token check is a
// non-consuming probe (Reserve then immediately Cancel) so a deferral
// never leaks a token — the Engine may re-queue based on this answer
// without the bucket silently draining.
func (g *Gate) CanCrawl(rawURL string) bool {
	host, ok := hostOf(rawURL)
	if !ok {
		return false
	}

	hs := g.getOrCreate(host)
	hs.mu.Lock()
	defer hs.mu.Unlock()

	delay := time.Duration(g.cfg.DefaultDelayMs) * time.Millisecond
	if hs.crawlDelay > delay {
		delay = hs.crawlDelay
	}
	if !hs.lastAccess.IsZero() && time.Since(hs.lastAccess) < delay {
		return false
	}

	// Reserve and cancel at the same instant: a cancellation dated after
	// the reservation's act time returns nothing to the bucket.
	now := time.Now()
	reservation := hs.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false
	}
	// A reservation that requires waiting is not an admission: cancel it
	// so the token is returned to the bucket untouched.
	if reservation.DelayFrom(now) > 0 {
		reservation.CancelAt(now)
		return false
	}
	reservation.CancelAt(now)
	return true
}

// RecordCrawl marks host as accessed just now and consumes one token from
// its bucket. Called once per attempted fetch, never per retry: retries
// happen inside a single Worker.Crawl call and share the one admission
// that let the fetch start.
func (g *Gate) RecordCrawl(rawURL string) {
	host, ok := hostOf(rawURL)
	if !ok {
		return
	}
	hs := g.getOrCreate(host)
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.lastAccess = time.Now()
	hs.limiter.Allow()
}

// SetCrawlDelay records a host-specific crawl delay, e.g. one learned from
// a robots.txt Crawl-delay directive. CanCrawl honors the longer of this
// and the configured DefaultDelayMs.
func (g *Gate) SetCrawlDelay(host string, delay time.Duration) {
	hs := g.getOrCreate(host)
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.crawlDelay = delay
}

func (g *Gate) getOrCreate(host string) *hostState {
	if v, ok := g.hosts.Load(host); ok {
		return v.(*hostState)
	}
	rps := g.cfg.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 1 // missing or zero rate is clamped to 1/sec
	}
	fresh := &hostState{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
	actual, _ := g.hosts.LoadOrStore(host, fresh)
	return actual.(*hostState)
}

func hostOf(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := parsed.Host
	if host == "" {
		return "", false
	}
	return host, true
}
