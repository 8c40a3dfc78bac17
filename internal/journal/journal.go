// Package journal keeps the bounded undo/redo history for one replica.
//
// The journal stores whole-document snapshots, not deltas. Documents are
// cloned on every mutation and never edited in place, so holding references
// is safe and an undo is a pointer swap, not a replay.
package journal

import (
	"sync"

	"github.com/roach88/focal/internal/state"
)

// DefaultCapacity is how many undo levels survive before the oldest falls
// off. Bounded so a long session cannot grow memory without limit.
const DefaultCapacity = 50

// Journal is the undo/redo stack pair.
//
// The engine owns the present document; the journal only holds what came
// before (past) and what undo stepped back over (future). Capture can be
// suspended around wholesale external replaces, and Reset empties both
// stacks when a foreign document takes over: undoing across someone else's
// merge would silently throw their work away.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, though the engine's single-writer rule means calls are normally
// serialized anyway.
type Journal struct {
	mu        sync.Mutex
	past      []*state.State
	future    []*state.State
	capacity  int
	suspended bool
}

// New creates a journal with DefaultCapacity undo levels.
func New() *Journal {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity creates a journal bounded to capacity undo levels.
// Capacity below 1 is treated as 1.
func NewWithCapacity(capacity int) *Journal {
	if capacity < 1 {
		capacity = 1
	}
	return &Journal{capacity: capacity}
}

// Push records prev as the newest undo level and clears the redo stack:
// a fresh edit forks history and the previously undone branch is gone.
// While suspended, Push does nothing.
//
// Callers pass the document that was CURRENT BEFORE the mutation; the
// engine skips the call entirely when an operation returned the same
// pointer, so no-ops never pollute the history.
func (j *Journal) Push(prev *state.State) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.suspended || prev == nil {
		return
	}
	j.past = append(j.past, prev)
	if len(j.past) > j.capacity {
		// Drop the oldest level; shift rather than reslice so the backing
		// array does not pin dropped documents.
		copy(j.past, j.past[1:])
		j.past[len(j.past)-1] = nil
		j.past = j.past[:len(j.past)-1]
	}
	clear(j.future)
	j.future = j.future[:0]
}

// Undo steps back one level: cur moves onto the redo stack and the newest
// past document comes back. Returns (nil, false) when there is nothing to
// undo.
func (j *Journal) Undo(cur *state.State) (*state.State, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.past) == 0 {
		return nil, false
	}
	prev := j.past[len(j.past)-1]
	j.past[len(j.past)-1] = nil
	j.past = j.past[:len(j.past)-1]
	j.future = append(j.future, cur)
	return prev, true
}

// Redo steps forward over the newest undone document. Returns (nil, false)
// when there is nothing to redo.
func (j *Journal) Redo(cur *state.State) (*state.State, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.future) == 0 {
		return nil, false
	}
	next := j.future[len(j.future)-1]
	j.future[len(j.future)-1] = nil
	j.future = j.future[:len(j.future)-1]
	j.past = append(j.past, cur)
	return next, true
}

// CanUndo reports whether an undo level exists.
func (j *Journal) CanUndo() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.past) > 0
}

// CanRedo reports whether a redo level exists.
func (j *Journal) CanRedo() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.future) > 0
}

// Depth returns the current (undo, redo) stack depths.
func (j *Journal) Depth() (int, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.past), len(j.future)
}

// Suspend stops capture until Resume. Used around operations that replace
// the document from outside the local edit flow.
func (j *Journal) Suspend() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.suspended = true
}

// Resume re-enables capture.
func (j *Journal) Resume() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.suspended = false
}

// Reset drops both stacks. Called after a wholesale external replace;
// history recorded against the old document must not apply to the new one.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.past = nil
	j.future = nil
}
