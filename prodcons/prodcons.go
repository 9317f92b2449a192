// Package prodcons runs a fixed set of producer and consumer goroutines
// against a bounded buffer. The buffer imposes no policy on its callers;
// this package is one concrete policy: each producer enqueues a fixed
// number of distinct items, consumers drain pre-split quotas, and an
// injectable Observer sees every completed operation in place of console
// output.
package prodcons

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/avinashbhat/concurrency-exercises/boundedbuffer"
)

// ErrInvalidConfig is returned by Run when any Config field is not positive.
var ErrInvalidConfig = errors.New("prodcons: producers, consumers, items per producer and capacity must all be positive")

// Observer receives a callback after each buffer operation completes. The
// callbacks run on the producer/consumer goroutines, outside the buffer's
// lock; implementations must be safe for concurrent use.
type Observer interface {
	Produced(producerID, item int)
	Consumed(consumerID, item int)
}

// NopObserver discards all callbacks.
type NopObserver struct{}

func (NopObserver) Produced(int, int) {}
func (NopObserver) Consumed(int, int) {}

// Config describes one producer-consumer session.
type Config struct {
	Producers        int
	Consumers        int
	ItemsPerProducer int
	Capacity         int
}

// Total returns the number of items the session moves through the buffer.
func (c Config) Total() int {
	return c.Producers * c.ItemsPerProducer
}

func (c Config) valid() bool {
	return c.Producers > 0 && c.Consumers > 0 && c.ItemsPerProducer > 0 && c.Capacity > 0
}

// Report summarizes a completed session. Produced and Consumed map each
// item to the number of times it passed through the corresponding
// operation.
type Report struct {
	Produced map[int]int
	Consumed map[int]int
	Leftover int
}

// Balanced reports whether every produced item was consumed exactly once
// and the buffer ended empty.
func (r *Report) Balanced() bool {
	if r.Leftover != 0 || len(r.Produced) != len(r.Consumed) {
		return false
	}
	for item, n := range r.Produced {
		if n != 1 || r.Consumed[item] != 1 {
			return false
		}
	}
	return true
}

// Run executes the session described by cfg and blocks until every item
// has been produced and consumed, or until the first operation fails. On
// failure (cancellation, deadline) the remaining goroutines are stopped
// and the first error is returned.
//
// Producer p enqueues the items p*ItemsPerProducer .. p*ItemsPerProducer +
// ItemsPerProducer - 1 in order, so item values are distinct across the
// whole session. Consumer quotas are fixed up front and sum to Total, so
// the session needs no termination signal beyond the counts themselves.
func Run(ctx context.Context, cfg Config, obs Observer) (*Report, error) {
	if !cfg.valid() {
		return nil, ErrInvalidConfig
	}
	if obs == nil {
		obs = NopObserver{}
	}

	buffer, err := boundedbuffer.New[int](cfg.Capacity)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		produced = make(map[int]int)
		consumed = make(map[int]int)
	)

	g, ctx := errgroup.WithContext(ctx)

	for p := 0; p < cfg.Producers; p++ {
		p := p
		g.Go(func() error {
			for i := 0; i < cfg.ItemsPerProducer; i++ {
				item := p*cfg.ItemsPerProducer + i
				if err := buffer.Put(ctx, item); err != nil {
					return err
				}
				mu.Lock()
				produced[item]++
				mu.Unlock()
				obs.Produced(p, item)
			}
			return nil
		})
	}

	quota := cfg.Total() / cfg.Consumers
	extra := cfg.Total() % cfg.Consumers
	for c := 0; c < cfg.Consumers; c++ {
		c := c
		n := quota
		if c < extra {
			n++
		}
		g.Go(func() error {
			for i := 0; i < n; i++ {
				item, err := buffer.Take(ctx)
				if err != nil {
					return err
				}
				mu.Lock()
				consumed[item]++
				mu.Unlock()
				obs.Consumed(c, item)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Report{Produced: produced, Consumed: consumed, Leftover: buffer.Size()}, nil
}
