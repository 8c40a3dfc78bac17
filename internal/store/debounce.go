package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/focal/internal/state"
)

// DefaultDebounce is the write coalescing window. Long enough to fold a
// burst of operations into one disk write, short enough that an abrupt exit
// rarely loses more than a keystroke's worth of work.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer sits between the engine and the Store: every installed document
// is handed to Write, and only the latest one reaches disk once the window
// goes quiet. Storage failures are logged and swallowed; the in-memory
// document stays authoritative and only durability degrades.
type Debouncer struct {
	store  *Store
	delay  time.Duration
	logger *slog.Logger

	mu        sync.Mutex
	timer     *time.Timer
	pending   *state.State
	suspended bool
}

// NewDebouncer wraps store with a write coalescing window of delay.
// A nil logger falls back to slog.Default().
func NewDebouncer(s *Store, delay time.Duration, logger *slog.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Debouncer{store: s, delay: delay, logger: logger}
}

// Write schedules st for persistence, replacing any not-yet-written
// document. While suspended the document is only stashed; Resume re-arms
// the window.
func (d *Debouncer) Write(st *state.State) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = st
	if d.suspended {
		return
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.timerFlush)
	} else {
		d.timer.Reset(d.delay)
	}
}

// FlushNow persists the pending document immediately, if there is one.
// On failure the document stays pending, so a later flush retries it.
func (d *Debouncer) FlushNow(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	return d.flushLocked(ctx)
}

// Suspend flushes whatever is pending and holds all further writes. Called
// before an external document replacement: the user's last edits must be on
// disk before the document's provenance changes.
func (d *Debouncer) Suspend() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.suspended = true
	if d.timer != nil {
		d.timer.Stop()
	}
	if err := d.flushLocked(context.Background()); err != nil {
		d.logger.Error("flush on suspend failed, document stays in memory", "error", err)
	}
}

// Resume lifts a suspension. A document stashed while suspended gets a
// fresh debounce window.
func (d *Debouncer) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.suspended = false
	if d.pending == nil {
		return
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.timerFlush)
	} else {
		d.timer.Reset(d.delay)
	}
}

// Close stops the timer and performs a final flush.
func (d *Debouncer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	return d.flushLocked(context.Background())
}

func (d *Debouncer) timerFlush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.suspended {
		return
	}
	if err := d.flushLocked(context.Background()); err != nil {
		d.logger.Error("debounced write failed, document stays in memory", "error", err)
	}
}

func (d *Debouncer) flushLocked(ctx context.Context) error {
	if d.pending == nil {
		return nil
	}
	if err := d.store.Save(ctx, d.pending); err != nil {
		return err
	}
	d.pending = nil
	return nil
}
