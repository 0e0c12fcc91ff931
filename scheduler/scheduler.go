// Package scheduler bounds how many crawl tasks run concurrently and
// tracks them to a clean shutdown, using golang.org/x/sync/errgroup plus
// a bounding semaphore.
package scheduler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Scheduler runs tasks under a fixed concurrency cap. Tasks are ordinary
// functions taking a context derived from the Scheduler's own lifetime;
// Shutdown cancels that context so in-flight tasks can unwind promptly.
type Scheduler struct {
	sem    chan struct{}
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	active atomic.Int64
}

// New creates a Scheduler bounded to maxWorkers concurrent tasks, deriving
// its own lifetime from parent. maxWorkers <= 0 is clamped to 1.
func New(parent context.Context, maxWorkers int) *Scheduler {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(parent)
	group, groupCtx := errgroup.WithContext(ctx)
	return &Scheduler{
		sem:    make(chan struct{}, maxWorkers),
		group:  group,
		ctx:    groupCtx,
		cancel: cancel,
	}
}

// Spawn runs task under the concurrency cap, blocking until a slot is free
// or the scheduler's context is done. It reports whether the task was
// actually dispatched; false means Shutdown (or the parent context) won the
// race and the caller should stop offering new work.
func (s *Scheduler) Spawn(task func(ctx context.Context)) bool {
	// Checked first: once the context is done, a free slot must not win
	// the select below.
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.sem <- struct{}{}:
	case <-s.ctx.Done():
		return false
	}

	s.active.Add(1)
	s.group.Go(func() error {
		defer func() {
			s.active.Add(-1)
			<-s.sem
		}()
		task(s.ctx)
		return nil
	})
	return true
}

// Shutdown cancels the scheduler's context, signaling every running and
// queued task to stop, then blocks until all of them have returned.
func (s *Scheduler) Shutdown() {
	s.cancel()
	_ = s.group.Wait()
}

// ActiveWorkers returns the number of tasks currently running.
func (s *Scheduler) ActiveWorkers() int {
	return int(s.active.Load())
}
