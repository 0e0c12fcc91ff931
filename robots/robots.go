// Package robots fetches, parses and caches robots.txt per host, using
// github.com/temoto/robotstxt for parsing and golang.org/x/sync/singleflight
// to collapse concurrent first-fetches for the same host into one request.
// It also extracts a Crawl-delay directive for the politeness gate.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a single robots.txt GET, independent of the caller's
// context, so a hanging host can never stall the caller beyond this.
const fetchTimeout = 10 * time.Second

// entry stores parsed robots.txt data with the time it was fetched. A nil
// data field means "allow all": either no robots.txt exists, or the host
// failed to serve one, and both cases fail open.
type entry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// Cache fetches and caches robots.txt rules per host, guaranteeing at most
// one in-flight fetch per host even under concurrent callers.
type Cache struct {
	client   *http.Client
	cache    sync.Map // host string -> *entry
	group    singleflight.Group
	cacheTTL time.Duration
}

// NewCache creates a Cache with a one-hour refetch interval.
func NewCache(client *http.Client) *Cache {
	return &Cache{
		client:   client,
		cacheTTL: time.Hour,
	}
}

// IsAllowed reports whether rawURL may be fetched by userAgent according to
// its host's robots.txt. A malformed URL, a missing host, or any fetch/parse
// failure fails open (allow=true) with the error returned for visibility;
// the caller decides whether to log it.
func (c *Cache) IsAllowed(ctx context.Context, rawURL, userAgent string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true, fmt.Errorf("parse URL: %w", err)
	}
	host := parsed.Host
	if host == "" {
		return true, nil
	}

	data, err := c.get(ctx, parsed.Scheme, host)
	if err != nil {
		return true, err
	}
	if data == nil {
		return true, nil
	}
	return data.TestAgent(parsed.Path, userAgent), nil
}

// CrawlDelay returns the Crawl-delay robots.txt directive for host, if one
// was parsed from its most recently cached robots.txt. ok is false if the
// host hasn't been fetched yet, failed to fetch, or declared no delay.
func (c *Cache) CrawlDelay(host, userAgent string) (delay time.Duration, ok bool) {
	v, found := c.cache.Load(host)
	if !found {
		return 0, false
	}
	e := v.(*entry)
	if e.data == nil {
		return 0, false
	}
	group := e.data.FindGroup(userAgent)
	if group == nil || group.CrawlDelay <= 0 {
		return 0, false
	}
	return group.CrawlDelay, true
}

// get returns the cached or freshly fetched robots data for host, collapsing
// concurrent misses for the same host into a single HTTP request.
func (c *Cache) get(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	if v, found := c.cache.Load(host); found {
		e := v.(*entry)
		if time.Since(e.fetchedAt) < c.cacheTTL {
			return e.data, nil
		}
	}

	result, err, _ := c.group.Do(host, func() (any, error) {
		data, fetchErr := c.fetch(ctx, scheme, host)
		c.cache.Store(host, &entry{data: data, fetchedAt: time.Now()})
		return data, fetchErr
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.(*robotstxt.RobotsData), nil
}

// fetch retrieves and parses host's robots.txt. It returns a nil data value
// with no error for a 404 or a 5xx, and a nil data value with a non-nil
// error for a request, read or parse failure; both are allow-all to
// IsAllowed, the error only tells the caller something went wrong.
func (c *Cache) fetch(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots.txt request for %s: %w", host, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt for %s: %w", host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read robots.txt body for %s: %w", host, err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt for %s: %w", host, err)
	}
	return data, nil
}

// Clear removes every cached entry. Used by tests that need a fresh host.
func (c *Cache) Clear() {
	c.cache = sync.Map{}
}
