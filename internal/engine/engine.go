package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/focal/internal/clock"
	"github.com/roach88/focal/internal/journal"
	"github.com/roach88/focal/internal/state"
)

// ChangeHook observes every document the engine installs, locally mutated
// or externally adopted. Hooks run synchronously under the engine lock:
// they must return quickly and MUST NOT call back into the Engine.
type ChangeHook func(*state.State)

// AdoptHook observes only externally originated installs (AdoptExternal),
// after the journal reset. Surfaces that keep history outside the engine
// reset it here, so their history honors the same provenance boundary the
// journal does. Same rules as ChangeHook: quick, no engine calls.
type AdoptHook func(st *state.State, origin string)

// Engine serializes all mutation of one replica's document.
//
// The pure transition functions in this package do the actual work; the
// engine adds the single-writer lock, the undo journal, and the change
// fan-out. Documents handed out by State() are snapshots by convention:
// every transition clones before editing, so holders can read without
// locks and without surprises.
type Engine struct {
	mu         sync.Mutex
	st         *state.State
	clk        *clock.Clock
	jrnl       *journal.Journal
	ids        IDGenerator
	logger     *slog.Logger
	hooks      []ChangeHook
	adoptHooks []AdoptHook
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIDGenerator sets the task id source. Default: UUIDv7Generator.
// Tests pass FixedIDGenerator for byte-identical documents.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithJournal replaces the default journal, e.g. to change its capacity.
func WithJournal(j *journal.Journal) Option {
	return func(e *Engine) { e.jrnl = j }
}

// WithChangeHook registers a hook invoked with every installed document.
// Hooks run in registration order.
func WithChangeHook(h ChangeHook) Option {
	return func(e *Engine) { e.hooks = append(e.hooks, h) }
}

// WithAdoptHook registers a hook invoked after every external adoption.
func WithAdoptHook(h AdoptHook) Option {
	return func(e *Engine) { e.adoptHooks = append(e.adoptHooks, h) }
}

// New creates an engine owning st, stamping mutations from clk.
func New(st *state.State, clk *clock.Clock, opts ...Option) *Engine {
	e := &Engine{
		st:     st,
		clk:    clk,
		jrnl:   journal.New(),
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current document. Treat it as immutable.
func (e *Engine) State() *state.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st
}

// Clock returns the engine's write-metadata clock. The syncer uses it to
// observe remote revisions and to stamp reconciled documents.
func (e *Engine) Clock() *clock.Clock {
	return e.clk
}

// apply installs the result of a pure transition. A same-pointer result is
// a no-op: no journal entry, no hooks, no log line.
func (e *Engine) apply(op string, fn func(*state.State) *state.State) *state.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.st
	next := fn(prev)
	if next == prev {
		return prev
	}
	e.st = next
	e.jrnl.Push(prev)
	e.logger.Debug("operation applied", "op", op, "rev", next.Rev, "updated_at", next.UpdatedAt)
	e.notifyLocked(next)
	return next
}

func (e *Engine) notifyLocked(st *state.State) {
	for _, h := range e.hooks {
		h(st)
	}
}

// Add creates a task and focuses it.
func (e *Engine) Add(title string) *state.State {
	return e.apply("add", func(s *state.State) *state.State {
		return AddTask(s, e.clk, e.ids, title)
	})
}

// CompleteCurrent completes the task in focus.
func (e *Engine) CompleteCurrent() *state.State {
	return e.apply("complete_current", func(s *state.State) *state.State {
		return CompleteCurrent(s, e.clk)
	})
}

// Complete completes id wherever it lives.
func (e *Engine) Complete(id string) *state.State {
	return e.apply("complete", func(s *state.State) *state.State {
		return CompleteTask(s, e.clk, id)
	})
}

// Snooze parks the current task; nil d is a quick defer.
func (e *Engine) Snooze(d *time.Duration) *state.State {
	return e.apply("snooze", func(s *state.State) *state.State {
		return SnoozeCurrent(s, e.clk, d)
	})
}

// TickNow wakes every due snooze immediately and returns the woken count.
func (e *Engine) TickNow() (*state.State, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.st
	next, woken := Tick(prev, e.clk)
	if next == prev {
		return prev, 0
	}
	e.st = next
	e.jrnl.Push(prev)
	e.logger.Debug("snoozes expired", "woken", woken, "rev", next.Rev)
	e.notifyLocked(next)
	return next, woken
}

// MoveToWake transfers id to the wake tail.
func (e *Engine) MoveToWake(id string) *state.State {
	return e.apply("move_to_wake", func(s *state.State) *state.State {
		return MoveToWake(s, e.clk, id)
	})
}

// MoveToReady transfers id to the ready tail.
func (e *Engine) MoveToReady(id string) *state.State {
	return e.apply("move_to_ready", func(s *state.State) *state.State {
		return MoveToReady(s, e.clk, id)
	})
}

// MoveToReadyHead transfers id to the ready head.
func (e *Engine) MoveToReadyHead(id string) *state.State {
	return e.apply("move_to_ready_head", func(s *state.State) *state.State {
		return MoveToReadyHead(s, e.clk, id)
	})
}

// Focus makes id current; the displaced task resumes next.
func (e *Engine) Focus(id string) *state.State {
	return e.apply("focus", func(s *state.State) *state.State {
		return Focus(s, e.clk, id)
	})
}

// FocusFromQueue makes id current; the displaced task waits at the wake
// tail.
func (e *Engine) FocusFromQueue(id string) *state.State {
	return e.apply("focus_from_queue", func(s *state.State) *state.State {
		return FocusFromQueue(s, e.clk, id)
	})
}

// DemoteToReadyHead steps back from the current task.
func (e *Engine) DemoteToReadyHead() *state.State {
	return e.apply("demote", func(s *state.State) *state.State {
		return DemoteCurrentToReadyHead(s, e.clk)
	})
}

// SwapWithWakeHead exchanges focus with the wake head.
func (e *Engine) SwapWithWakeHead() *state.State {
	return e.apply("swap", func(s *state.State) *state.State {
		return SwapCurrentWithWakeHead(s, e.clk)
	})
}

// DeleteCurrent tombstones the task in focus.
func (e *Engine) DeleteCurrent() *state.State {
	return e.apply("delete_current", func(s *state.State) *state.State {
		return DeleteCurrent(s, e.clk)
	})
}

// Restore brings a completed task back to the ready tail.
func (e *Engine) Restore(id string) *state.State {
	return e.apply("restore", func(s *state.State) *state.State {
		return RestoreTask(s, e.clk, id)
	})
}

// ClearHistory tombstones completed tasks and empties the history lane.
func (e *Engine) ClearHistory() *state.State {
	return e.apply("clear_history", func(s *state.State) *state.State {
		return ClearHistory(s, e.clk)
	})
}

// ReorderWoken rearranges the wake queue to follow the hint.
func (e *Engine) ReorderWoken(order []string) *state.State {
	return e.apply("reorder_woken", func(s *state.State) *state.State {
		return ReorderWoken(s, e.clk, order)
	})
}

// ReorderReady rearranges the ready queue to follow the hint.
func (e *Engine) ReorderReady(order []string) *state.State {
	return e.apply("reorder_ready", func(s *state.State) *state.State {
		return ReorderReady(s, e.clk, order)
	})
}

// Undo steps the document back one journal level. Undo is not itself a
// journaled mutation; it moves along history instead of extending it.
// Returns the installed document and whether anything happened.
func (e *Engine) Undo() (*state.State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.jrnl.Undo(e.st)
	if !ok {
		return e.st, false
	}
	e.st = prev
	e.logger.Debug("undo", "rev", prev.Rev)
	e.notifyLocked(prev)
	return prev, true
}

// Redo steps forward over the newest undone change.
func (e *Engine) Redo() (*state.State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, ok := e.jrnl.Redo(e.st)
	if !ok {
		return e.st, false
	}
	e.st = next
	e.logger.Debug("redo", "rev", next.Rev)
	e.notifyLocked(next)
	return next, true
}

// CanUndo reports whether an undo level exists.
func (e *Engine) CanUndo() bool { return e.jrnl.CanUndo() }

// CanRedo reports whether a redo level exists.
func (e *Engine) CanRedo() bool { return e.jrnl.CanRedo() }

// AdoptExternal installs a document that did not come from this replica's
// edit flow: a remote download, a replica broadcast, an import, or a
// reconciliation fold. The journal is reset across the boundary; undoing
// over someone else's merge would silently throw their work away. The
// adopted revision is observed so the next local write outranks it.
func (e *Engine) AdoptExternal(st *state.State, origin string) *state.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.jrnl.Suspend()
	e.st = st
	e.clk.ObserveRev(st.Rev)
	e.jrnl.Reset()
	e.jrnl.Resume()

	e.logger.Info("document adopted",
		"origin", origin,
		"rev", st.Rev,
		"updated_at", st.UpdatedAt,
		"tasks", len(st.Tasks),
	)
	e.notifyLocked(st)
	for _, h := range e.adoptHooks {
		h(st, origin)
	}
	return st
}
