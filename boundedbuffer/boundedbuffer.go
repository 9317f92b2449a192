package boundedbuffer

import (
	"context"
	"errors"
	"sync"
)

// ErrInvalidCapacity is returned by New when capacity is not positive.
var ErrInvalidCapacity = errors.New("boundedbuffer: capacity must be positive")

// The two ways a blocking call can fail. Both leave the buffer valid and
// reusable; retry policy belongs to the caller.
var (
	// ErrCanceled is returned when the caller's context is canceled while
	// Put or Take is waiting.
	ErrCanceled = context.Canceled
	// ErrTimedOut is returned when the caller's context deadline elapses
	// while Put or Take is waiting.
	ErrTimedOut = context.DeadlineExceeded
)

// BoundedBuffer is a fixed-capacity FIFO shared by producer and consumer
// goroutines. Put blocks while the buffer is full and Take blocks while it
// is empty; neither ever busy-waits. All methods are safe for concurrent
// use by any number of goroutines.
type BoundedBuffer[T any] struct {
	buf      []T
	capacity int
	size     int
	head     int
	tail     int
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
}

// New creates a buffer that holds at most capacity items.
func New[T any](capacity int) (*BoundedBuffer[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	b := &BoundedBuffer[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
	}
	b.notFull = sync.NewCond(&b.mu)
	b.notEmpty = sync.NewCond(&b.mu)
	return b, nil
}

// Put appends item to the tail, blocking while the buffer is full. It
// returns nil only after the item is enqueued and waiting consumers have
// been woken. If ctx is canceled or its deadline passes while Put is
// waiting for space, the item is not enqueued and the context error is
// returned. A nil ctx waits indefinitely.
func (b *BoundedBuffer[T]) Put(ctx context.Context, item T) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b.mu.Lock()
	for b.size == b.capacity {
		if err := ctx.Err(); err != nil {
			// A departing waiter must not swallow a wakeup another
			// producer is still waiting for.
			b.notFull.Broadcast()
			b.mu.Unlock()
			return err
		}
		b.wait(ctx, b.notFull)
	}
	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.size++
	b.notEmpty.Broadcast()
	b.mu.Unlock()
	return nil
}

// Take removes and returns the head item, blocking while the buffer is
// empty. On cancellation or deadline it returns the zero value of T and
// the context error; no item is consumed.
func (b *BoundedBuffer[T]) Take(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	b.mu.Lock()
	for b.size == 0 {
		if err := ctx.Err(); err != nil {
			b.notEmpty.Broadcast()
			b.mu.Unlock()
			var zero T
			return zero, err
		}
		b.wait(ctx, b.notEmpty)
	}
	item := b.take()
	b.notFull.Broadcast()
	b.mu.Unlock()
	return item, nil
}

// TryPut enqueues item without blocking. It returns false when the buffer
// is full.
func (b *BoundedBuffer[T]) TryPut(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == b.capacity {
		return false
	}
	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.size++
	b.notEmpty.Broadcast()
	return true
}

// TryTake dequeues without blocking. ok is false when the buffer is empty.
func (b *BoundedBuffer[T]) TryTake() (item T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == 0 {
		return item, false
	}
	item = b.take()
	b.notFull.Broadcast()
	return item, true
}

// take removes the head slot. Caller must hold b.mu and have checked
// b.size > 0.
func (b *BoundedBuffer[T]) take() T {
	item := b.buf[b.head]
	var zero T
	b.buf[b.head] = zero // drop the slot's reference so it can be collected
	b.head = (b.head + 1) % b.capacity
	b.size--
	return item
}

// Size returns the current number of buffered items. The value is a
// snapshot and may be stale by the time the caller looks at it; use it for
// diagnostics, not flow control.
func (b *BoundedBuffer[T]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the buffer's fixed capacity.
func (b *BoundedBuffer[T]) Cap() int {
	return b.capacity
}

// wait suspends on cond until woken or until ctx is done. It must be
// called with b.mu held and returns with b.mu held. A return proves
// nothing by itself: the caller re-checks its predicate and ctx in a loop.
func (b *BoundedBuffer[T]) wait(ctx context.Context, cond *sync.Cond) {
	if ctx.Done() == nil {
		cond.Wait()
		return
	}
	// sync.Cond cannot select on a channel, so a short-lived watcher wakes
	// every waiter on this cond when ctx fires. Each woken waiter re-tests
	// its own predicate and its own ctx, so extra wakeups are harmless.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			cond.Broadcast()
			b.mu.Unlock()
		case <-stop:
		}
	}()
	cond.Wait()
	close(stop)
}
