package engine_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corrinfell/politecrawl/crawlconfig"
	"github.com/corrinfell/politecrawl/engine"
)

func testConfig() crawlconfig.CrawlConfig {
	cfg, _ := crawlconfig.DefaultConfig().Validate()
	cfg.RespectRobotsTxt = false
	cfg.Politeness.DefaultDelayMs = 0
	cfg.MaxRetries = 1
	cfg.TimeoutMs = 2000
	return cfg
}

func mustNew(t *testing.T, cfg crawlconfig.CrawlConfig) *engine.Engine {
	t.Helper()
	e, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("engine.New() error: %v", err)
	}
	return e
}

func runToCompletion(t *testing.T, e *engine.Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
}

// TestSinglePageCrawl covers a seed with no outgoing links at max_depth=0,
// max_workers=1.
func TestSinglePageCrawl(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>no links here</body></html>`)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.MaxDepth = 0
	cfg.MaxWorkers = 1

	e := mustNew(t, cfg)
	e.AddSeed(ts.URL + "/a")
	runToCompletion(t, e)

	stats := e.GetStats()
	if stats.TotalURLs != 1 || stats.Successful != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want total=1 successful=1 failed=0", stats)
	}
	if stats.InProgress != 0 {
		t.Errorf("InProgress = %d, want 0", stats.InProgress)
	}

	results := e.GetResults()
	if len(results) != 1 || results[0].URL != ts.URL+"/a" {
		t.Errorf("results = %+v, want exactly one result for %s", results, ts.URL+"/a")
	}
}

// TestTwoHopCrawl covers an a -> b -> c chain with max_depth=1. c is
// enqueued (at depth 2) but discarded on pop, never counted toward
// total_urls.
func TestTwoHopCrawl(t *testing.T) {
	mux := http.NewServeMux()
	var tsURL string
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><a href="%s/b">b</a></body></html>`, tsURL)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><a href="%s/c">c</a></body></html>`, tsURL)
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>dead end</body></html>`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	tsURL = ts.URL

	cfg := testConfig()
	cfg.MaxDepth = 1

	e := mustNew(t, cfg)
	e.AddSeed(ts.URL + "/a")
	runToCompletion(t, e)

	stats := e.GetStats()
	if stats.Successful != 2 {
		t.Errorf("Successful = %d, want 2 (a and b only)", stats.Successful)
	}
	if stats.TotalURLs != 2 {
		t.Errorf("TotalURLs = %d, want 2 (c never dispatched)", stats.TotalURLs)
	}
}

// TestDuplicateLinksDeduped covers two links to the same child URL,
// which must only be fetched once.
func TestDuplicateLinksDeduped(t *testing.T) {
	mux := http.NewServeMux()
	var tsURL string
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><a href="%s/b">b1</a><a href="%s/b">b2</a></body></html>`, tsURL, tsURL)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf</body></html>`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	tsURL = ts.URL

	cfg := testConfig()
	cfg.MaxDepth = 5

	e := mustNew(t, cfg)
	e.AddSeed(ts.URL + "/a")
	runToCompletion(t, e)

	stats := e.GetStats()
	if stats.Successful != 2 {
		t.Errorf("Successful = %d, want 2 (b fetched exactly once)", stats.Successful)
	}
}

// TestPolitenessSpacing verifies sibling links to the same host are each
// separated by at least default_delay_ms.
func TestPolitenessSpacing(t *testing.T) {
	const delayMs = 150
	const children = 3

	var fetchTimes [children]atomic.Int64
	var hits atomic.Int64

	mux := http.NewServeMux()
	var tsURL string
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		body := `<html><body>`
		for i := 0; i < children; i++ {
			body += fmt.Sprintf(`<a href="%s/child%d">c</a>`, tsURL, i)
		}
		body += `</body></html>`
		fmt.Fprint(w, body)
	})
	for i := 0; i < children; i++ {
		idx := i
		mux.HandleFunc(fmt.Sprintf("/child%d", idx), func(w http.ResponseWriter, r *http.Request) {
			fetchTimes[idx].Store(time.Now().UnixNano())
			hits.Add(1)
			fmt.Fprint(w, `<html><body>leaf</body></html>`)
		})
	}
	ts := httptest.NewServer(mux)
	defer ts.Close()
	tsURL = ts.URL

	cfg := testConfig()
	cfg.MaxDepth = 1
	cfg.MaxWorkers = 10
	cfg.Politeness.DefaultDelayMs = delayMs
	cfg.Politeness.MaxRequestsPerSecond = 1000 // isolate the delay spacer from the bucket

	e := mustNew(t, cfg)
	e.AddSeed(ts.URL + "/a")
	runToCompletion(t, e)

	if hits.Load() != children {
		t.Fatalf("expected %d child fetches, got %d", children, hits.Load())
	}

	first, last := fetchTimes[0].Load(), fetchTimes[0].Load()
	for i := range fetchTimes {
		v := fetchTimes[i].Load()
		if v < first {
			first = v
		}
		if v > last {
			last = v
		}
	}
	spanMs := (last - first) / int64(time.Millisecond)
	if spanMs < (children-1)*delayMs {
		t.Errorf("child fetch span = %dms, want >= %dms", spanMs, (children-1)*delayMs)
	}
}

// TestTransportRetrySucceedsOnThirdAttempt covers a fetch where the first
// two attempts fail at the transport level and the third succeeds.
func TestTransportRetrySucceedsOnThirdAttempt(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			// Simulate a transport failure by hanging up without a response.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("ResponseWriter does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		fmt.Fprint(w, `<html><body>ok</body></html>`)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.MaxRetries = 3

	e := mustNew(t, cfg)
	e.AddSeed(ts.URL + "/a")
	runToCompletion(t, e)

	stats := e.GetStats()
	if stats.Successful != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want successful=1 failed=0", stats)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

// TestGracefulTermination verifies that after Start returns, in_progress
// is zero and the frontier is drained.
func TestGracefulTermination(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf</body></html>`)
	}))
	defer ts.Close()

	cfg := testConfig()
	e := mustNew(t, cfg)
	e.AddSeed(ts.URL + "/a")
	runToCompletion(t, e)

	stats := e.GetStats()
	if stats.InProgress != 0 {
		t.Errorf("InProgress = %d, want 0 after Start returns", stats.InProgress)
	}
}

// TestHostlessSeedCountsAsFailed verifies a URL without a parseable host
// is dropped and counted as failed, never dispatched, with in_progress
// left consistent.
func TestHostlessSeedCountsAsFailed(t *testing.T) {
	cfg := testConfig()
	e := mustNew(t, cfg)
	e.AddSeed("not-a-url")
	runToCompletion(t, e)

	stats := e.GetStats()
	if stats.TotalURLs != 1 || stats.Failed != 1 || stats.Successful != 0 {
		t.Errorf("stats = %+v, want total=1 failed=1 successful=0", stats)
	}
	if stats.TotalURLs != stats.Successful+stats.Failed+stats.InProgress {
		t.Errorf("counters inconsistent: %+v", stats)
	}
}

// TestSubscribeReceivesSnapshotsAndCloses verifies the Subscribe channel
// both delivers progress and is closed once the crawl ends.
func TestSubscribeReceivesSnapshotsAndCloses(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf</body></html>`)
	}))
	defer ts.Close()

	cfg := testConfig()
	e := mustNew(t, cfg)
	e.AddSeed(ts.URL + "/a")
	ch := e.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		e.Start(ctx)
		close(done)
	}()

	received := false
	for range ch {
		received = true
	}
	<-done

	if !received {
		t.Error("expected at least one CrawlStats snapshot before channel closed")
	}
}

// TestStopCancelsInFlightFetch verifies Engine.Stop cancels an in-flight
// fetch and Start returns promptly rather than hanging.
func TestStopCancelsInFlightFetch(t *testing.T) {
	blockCh := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blockCh
		fmt.Fprint(w, `<html><body>leaf</body></html>`)
	}))
	defer ts.Close()
	defer close(blockCh)

	cfg := testConfig()
	cfg.TimeoutMs = 30_000
	e := mustNew(t, cfg)
	e.AddSeed(ts.URL + "/a")

	done := make(chan struct{})
	go func() {
		e.Start(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	e.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop() (possible goroutine leak)")
	}
}

// TestRobotsCrawlDelayAppliedToPoliteness verifies a robots.txt Crawl-delay
// directive is learned and enforced as a minimum inter-request spacing,
// even though default_delay_ms is zero.
func TestRobotsCrawlDelayAppliedToPoliteness(t *testing.T) {
	const children = 3
	const crawlDelayMs = 1000 // robots.txt Crawl-delay is written in whole seconds below

	var fetchTimes [children]atomic.Int64
	var hits atomic.Int64

	mux := http.NewServeMux()
	var tsURL string
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nCrawl-delay: %d\n", crawlDelayMs/1000)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		body := `<html><body>`
		for i := 0; i < children; i++ {
			body += fmt.Sprintf(`<a href="%s/child%d">c</a>`, tsURL, i)
		}
		body += `</body></html>`
		fmt.Fprint(w, body)
	})
	for i := 0; i < children; i++ {
		idx := i
		mux.HandleFunc(fmt.Sprintf("/child%d", idx), func(w http.ResponseWriter, r *http.Request) {
			fetchTimes[idx].Store(time.Now().UnixNano())
			hits.Add(1)
			fmt.Fprint(w, `<html><body>leaf</body></html>`)
		})
	}
	ts := httptest.NewServer(mux)
	defer ts.Close()
	tsURL = ts.URL

	cfg := testConfig()
	cfg.RespectRobotsTxt = true
	cfg.MaxDepth = 1
	cfg.MaxWorkers = 10
	cfg.Politeness.MaxRequestsPerSecond = 1000

	e := mustNew(t, cfg)
	e.AddSeed(ts.URL + "/a")
	runToCompletion(t, e)

	if hits.Load() != children {
		t.Fatalf("expected %d child fetches, got %d", children, hits.Load())
	}

	first, last := fetchTimes[0].Load(), fetchTimes[0].Load()
	for i := range fetchTimes {
		v := fetchTimes[i].Load()
		if v < first {
			first = v
		}
		if v > last {
			last = v
		}
	}
	spanMs := (last - first) / int64(time.Millisecond)
	if spanMs < (children-1)*crawlDelayMs {
		t.Errorf("child fetch span = %dms, want >= %dms (from robots.txt Crawl-delay)",
			spanMs, (children-1)*crawlDelayMs)
	}
}
