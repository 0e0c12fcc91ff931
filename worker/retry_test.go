package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/PuerkitoBio/rehttp"
)

func TestRetryFnOnlyRetriesTransportErrors(t *testing.T) {
	fn := retryFn(3)

	if fn(rehttp.Attempt{Index: 0, Error: nil}) {
		t.Error("retryFn should not retry a returned HTTP response (Error == nil)")
	}
	if !fn(rehttp.Attempt{Index: 0, Error: errors.New("connection reset")}) {
		t.Error("retryFn should retry a transport error below the attempt budget")
	}
}

func TestRetryFnStopsAtMaxRetries(t *testing.T) {
	fn := retryFn(3)
	err := errors.New("connection reset")

	if !fn(rehttp.Attempt{Index: 1, Error: err}) {
		t.Error("attempt index 1 (2nd attempt) of 3 should still retry")
	}
	if fn(rehttp.Attempt{Index: 2, Error: err}) {
		t.Error("attempt index 2 (3rd attempt) of 3 should not retry further")
	}
}

func TestDelayFnMatchesExponentialFormula(t *testing.T) {
	fn := delayFn(2.0)

	cases := []struct {
		index int
		want  time.Duration
	}{
		{0, 200 * time.Millisecond},  // n=1: 100ms * 2^1
		{1, 400 * time.Millisecond},  // n=2: 100ms * 2^2
		{2, 800 * time.Millisecond},  // n=3: 100ms * 2^3
	}

	for _, c := range cases {
		got := fn(rehttp.Attempt{Index: c.index})
		if got != c.want {
			t.Errorf("delayFn(index=%d) = %v, want %v", c.index, got, c.want)
		}
	}
}
