// Package safecounter is the mutual-exclusion half of the exercise set: a
// shared counter guarded by a mutex. It is the degenerate form of the
// bounded buffer (exclusive access only, no capacity bound), plus one
// condition-variable wait so the counter can also demonstrate blocking on a
// predicate.
package safecounter

import (
	"context"
	"sync"
)

// Counter is a goroutine-safe integer counter.
type Counter struct {
	mu      sync.Mutex
	n       int64
	changed *sync.Cond
}

// New creates a counter starting at zero.
func New() *Counter {
	c := &Counter{}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// Inc adds one.
func (c *Counter) Inc() {
	c.Add(1)
}

// Add adds delta, which may be negative.
func (c *Counter) Add(delta int64) {
	c.mu.Lock()
	c.n += delta
	c.changed.Broadcast()
	c.mu.Unlock()
}

// Value returns a snapshot of the current count.
func (c *Counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// WaitAtLeast blocks until the counter reaches target, then returns the
// value observed at that moment. On cancellation or deadline it returns 0
// and the context error; the counter stays valid for other callers.
func (c *Counter) WaitAtLeast(ctx context.Context, target int64) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	for c.n < target {
		if err := ctx.Err(); err != nil {
			c.changed.Broadcast()
			c.mu.Unlock()
			return 0, err
		}
		c.wait(ctx)
	}
	n := c.n
	c.mu.Unlock()
	return n, nil
}

// wait parks on changed until woken or ctx fires. Same loop-recheck
// contract as the buffer: the caller re-tests its predicate after every
// return.
func (c *Counter) wait(ctx context.Context) {
	if ctx.Done() == nil {
		c.changed.Wait()
		return
	}
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.changed.Broadcast()
			c.mu.Unlock()
		case <-stop:
		}
	}()
	c.changed.Wait()
	close(stop)
}
