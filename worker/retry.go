package worker

import (
	"math"
	"net/http"
	"time"

	"github.com/PuerkitoBio/rehttp"
)

// newRetryTransport wraps base in a rehttp.Transport that retries only on
// transport-level errors (connect reset, DNS failure, timeout) — never on
// a returned HTTP status; 2xx/4xx/5xx responses are returned as-is on the
// first non-error response, and 5xx retry is intentionally out of scope
// for the transport layer. Delay before retry n (1-indexed) is
// 100ms * backoffMultiplier^n.
func newRetryTransport(base http.RoundTripper, maxRetries int, backoffMultiplier float64) http.RoundTripper {
	return rehttp.NewTransport(base, retryFn(maxRetries), delayFn(backoffMultiplier))
}

func retryFn(maxRetries int) rehttp.RetryFn {
	return func(attempt rehttp.Attempt) bool {
		if attempt.Error == nil {
			return false
		}
		return attempt.Index+1 < maxRetries
	}
}

func delayFn(backoffMultiplier float64) rehttp.DelayFn {
	return func(attempt rehttp.Attempt) time.Duration {
		n := attempt.Index + 1
		ms := 100 * math.Pow(backoffMultiplier, float64(n))
		return time.Duration(ms) * time.Millisecond
	}
}
