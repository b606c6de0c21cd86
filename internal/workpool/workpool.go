// Package workpool provides the bounded worker pool, error-coalescing wait
// group, and enqueue-or-run helper that fstree's parallel walker, cache, and
// push/pull pipelines are built on. It wraps sourcegraph/conc's context
// pool and adds a semaphore-gated enqueue-or-run method that conc does not
// provide.
package workpool

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/semaphore"
)

// Pool is a bounded worker pool with an enqueue-or-run escape hatch for
// recursive fan-out: if the pool's concurrency is saturated, the task runs
// inline on the calling goroutine instead of blocking on an enqueue.
type Pool struct {
	p   *pool.ContextPool
	sem *semaphore.Weighted
	n   int

	mu        sync.Mutex
	inlineErr error
}

// New creates a pool with n worker slots. n <= 0 defaults to 1.
func New(ctx context.Context, n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError().WithMaxGoroutines(n)
	return &Pool{
		p:   p,
		sem: semaphore.NewWeighted(int64(n)),
		n:   n,
	}
}

// Go enqueues a task, blocking if the pool is saturated.
func (p *Pool) Go(fn func(ctx context.Context) error) {
	p.p.Go(fn)
}

// EnqueueOrRun attempts to take a semaphore ticket sized to the pool's
// concurrency; if one is free, the task is enqueued and the ticket released
// on completion. If none is free (the pool is saturated, which can happen
// during recursive fan-out), the task runs synchronously on the calling
// goroutine instead of going through the pool at all, preventing a deadlock
// where every worker is itself blocked trying to enqueue more work than the
// pool can ever drain. The inline result is folded into Wait's error.
func (p *Pool) EnqueueOrRun(ctx context.Context, fn func(ctx context.Context) error) {
	if p.sem.TryAcquire(1) {
		p.p.Go(func(ctx context.Context) error {
			defer p.sem.Release(1)
			return fn(ctx)
		})
		return
	}
	if err := fn(ctx); err != nil {
		p.mu.Lock()
		if p.inlineErr == nil {
			p.inlineErr = err
		}
		p.mu.Unlock()
	}
}

// Wait drains the pool and returns the first error encountered, whether from
// an enqueued task or one run inline by EnqueueOrRun.
func (p *Pool) Wait() error {
	err := p.p.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		return err
	}
	return p.inlineErr
}

// Threads returns the pool's configured concurrency.
func (p *Pool) Threads() int { return p.n }
