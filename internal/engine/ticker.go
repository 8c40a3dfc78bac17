package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTickInterval is how often the ticker checks for expired snoozes.
// Tick is deadline-driven, so the interval only bounds wake LATENCY, never
// correctness: a replica that stops ticking wakes everything due the next
// time any tick runs.
const DefaultTickInterval = time.Second

// Ticker drives Engine.TickNow at a fixed cadence while the replica is
// visible. One-shot surfaces skip the ticker entirely and call TickNow once
// on load; only long-running surfaces (watch mode) keep one going.
type Ticker struct {
	engine   *Engine
	interval time.Duration
	mu       sync.Mutex
	running  bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewTicker creates a ticker for e. A non-positive interval falls back to
// DefaultTickInterval.
func NewTicker(e *Engine, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{engine: e, interval: interval}
}

// Start begins ticking until ctx is canceled or Stop is called.
// Returns an error if the ticker is already running.
func (t *Ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("ticker already running")
	}
	t.running = true
	t.done = make(chan struct{})

	t.wg.Add(1)
	go t.run(ctx, t.done)
	return nil
}

// Stop halts ticking and blocks until the tick goroutine has exited.
// Safe to call when not running.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	done := t.done
	t.mu.Unlock()

	close(done)
	t.wg.Wait()
}

// IsRunning reports whether the ticker is currently running.
func (t *Ticker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Ticker) run(ctx context.Context, done chan struct{}) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			t.engine.TickNow()
		}
	}
}
