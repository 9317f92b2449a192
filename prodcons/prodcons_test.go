package prodcons

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/avinashbhat/concurrency-exercises/boundedbuffer"
)

// recordingObserver mirrors the session into its own maps so tests can
// check that the observer sees exactly what the report says happened.
type recordingObserver struct {
	mu       sync.Mutex
	produced map[int]int
	consumed map[int]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		produced: make(map[int]int),
		consumed: make(map[int]int),
	}
}

func (o *recordingObserver) Produced(_, item int) {
	o.mu.Lock()
	o.produced[item]++
	o.mu.Unlock()
}

func (o *recordingObserver) Consumed(_, item int) {
	o.mu.Lock()
	o.consumed[item]++
	o.mu.Unlock()
}

func TestRunBalanced(t *testing.T) {
	cfg := Config{Producers: 4, Consumers: 3, ItemsPerProducer: 25, Capacity: 10}
	report, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !report.Balanced() {
		t.Error("Expected a balanced report")
	}
	if len(report.Produced) != cfg.Total() {
		t.Errorf("Expected %d distinct produced items, got %d", cfg.Total(), len(report.Produced))
	}
	if report.Leftover != 0 {
		t.Errorf("Expected empty buffer at end, got %d leftover", report.Leftover)
	}
}

func TestRunObserverSeesEveryOperation(t *testing.T) {
	cfg := Config{Producers: 3, Consumers: 2, ItemsPerProducer: 10, Capacity: 4}
	obs := newRecordingObserver()
	report, err := Run(context.Background(), cfg, obs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if diff := cmp.Diff(report.Produced, obs.produced); diff != "" {
		t.Errorf("observer produced mismatch (-report +observer):\n%s", diff)
	}
	if diff := cmp.Diff(report.Consumed, obs.consumed); diff != "" {
		t.Errorf("observer consumed mismatch (-report +observer):\n%s", diff)
	}
}

func TestRunSingleSlot(t *testing.T) {
	cfg := Config{Producers: 2, Consumers: 2, ItemsPerProducer: 50, Capacity: 1}
	report, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Balanced() {
		t.Error("Expected a balanced report through a single-slot buffer")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	bad := []Config{
		{Producers: 0, Consumers: 1, ItemsPerProducer: 1, Capacity: 1},
		{Producers: 1, Consumers: 0, ItemsPerProducer: 1, Capacity: 1},
		{Producers: 1, Consumers: 1, ItemsPerProducer: 0, Capacity: 1},
		{Producers: 1, Consumers: 1, ItemsPerProducer: 1, Capacity: -1},
	}
	for _, cfg := range bad {
		if _, err := Run(context.Background(), cfg, nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Run(%+v): expected ErrInvalidConfig, got %v", cfg, err)
		}
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A single-slot buffer with thousands of items forces blocking on both
	// sides, so the canceled context is observed early.
	cfg := Config{Producers: 2, Consumers: 2, ItemsPerProducer: 5000, Capacity: 1}
	if _, err := Run(ctx, cfg, nil); !errors.Is(err, boundedbuffer.ErrCanceled) {
		t.Errorf("Expected ErrCanceled, got %v", err)
	}
}

func TestRunDeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Hour))
	defer cancel()

	cfg := Config{Producers: 2, Consumers: 2, ItemsPerProducer: 5000, Capacity: 1}
	if _, err := Run(ctx, cfg, nil); !errors.Is(err, boundedbuffer.ErrTimedOut) {
		t.Errorf("Expected ErrTimedOut, got %v", err)
	}
}

func TestReportBalanced(t *testing.T) {
	balanced := &Report{
		Produced: map[int]int{1: 1, 2: 1},
		Consumed: map[int]int{1: 1, 2: 1},
	}
	if !balanced.Balanced() {
		t.Error("Expected balanced")
	}

	cases := map[string]*Report{
		"leftover": {
			Produced: map[int]int{1: 1},
			Consumed: map[int]int{1: 1},
			Leftover: 1,
		},
		"missing consume": {
			Produced: map[int]int{1: 1, 2: 1},
			Consumed: map[int]int{1: 1},
		},
		"duplicate consume": {
			Produced: map[int]int{1: 1, 2: 1},
			Consumed: map[int]int{1: 2, 2: 1},
		},
	}
	for name, r := range cases {
		if r.Balanced() {
			t.Errorf("%s: expected unbalanced", name)
		}
	}
}
