// Package crawlconfig holds the immutable configuration for a single
// crawl: concurrency, rate limit, user agent, retry policy, and the
// politeness and depth-bounding knobs the crawl engine needs.
package crawlconfig

import "fmt"

// PolitenessConfig controls per-host request pacing.
type PolitenessConfig struct {
	// DefaultDelayMs is the minimum time between requests to the same host.
	DefaultDelayMs int64
	// MaxRequestsPerSecond is the token-bucket refill rate per host.
	// A value <= 0 is clamped to 1/sec.
	MaxRequestsPerSecond float64
	// BackoffMultiplier drives the worker's retry delay: the nth retry
	// waits 100ms * BackoffMultiplier^n.
	BackoffMultiplier float64
}

// CrawlConfig is immutable for the lifetime of a crawl.
type CrawlConfig struct {
	MaxWorkers       int
	MaxDepth         int
	UserAgent        string
	RespectRobotsTxt bool
	Politeness       PolitenessConfig
	TimeoutMs        int64
	MaxRetries       int
}

// ConfigError reports an invalid CrawlConfig at construction time. It is
// the only error class that surfaces from Engine construction.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid crawl config: %s: %s", e.Field, e.Reason)
}

// DefaultConfig returns a CrawlConfig with sensible defaults.
func DefaultConfig() CrawlConfig {
	return CrawlConfig{
		MaxWorkers:       10,
		MaxDepth:         3,
		UserAgent:        "politecrawl/1.0 (+https://github.com/corrinfell/politecrawl)",
		RespectRobotsTxt: true,
		Politeness: PolitenessConfig{
			DefaultDelayMs:       200,
			MaxRequestsPerSecond: 2,
			BackoffMultiplier:    2.0,
		},
		TimeoutMs:  10_000,
		MaxRetries: 3,
	}
}

// Validate checks the config for values that would make a crawl impossible
// to reason about, and clamps the lenient-by-spec cases (zero/missing rate).
// It returns a *ConfigError on the former and mutates-then-returns a copy
// for the latter so callers always get a crawl-ready config back.
func (c CrawlConfig) Validate() (CrawlConfig, error) {
	if c.MaxWorkers < 1 {
		return c, &ConfigError{Field: "max_workers", Reason: "must be >= 1"}
	}
	if c.MaxDepth < 0 {
		return c, &ConfigError{Field: "max_depth", Reason: "must be >= 0"}
	}
	if c.UserAgent == "" {
		return c, &ConfigError{Field: "user_agent", Reason: "must not be empty"}
	}
	if c.TimeoutMs <= 0 {
		return c, &ConfigError{Field: "timeout_ms", Reason: "must be > 0"}
	}
	if c.MaxRetries < 1 {
		return c, &ConfigError{Field: "max_retries", Reason: "must be >= 1"}
	}
	if c.Politeness.MaxRequestsPerSecond <= 0 {
		c.Politeness.MaxRequestsPerSecond = 1
	}
	if c.Politeness.BackoffMultiplier <= 0 {
		c.Politeness.BackoffMultiplier = 2.0
	}
	if c.Politeness.DefaultDelayMs < 0 {
		return c, &ConfigError{Field: "politeness.default_delay_ms", Reason: "must be >= 0"}
	}
	return c, nil
}
