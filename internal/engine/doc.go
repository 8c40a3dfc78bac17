// Package engine implements the focus discipline: one current task, a wake
// queue that outranks the ready queue, snoozes that expire into wakes, and
// the transitions between them.
//
// ARCHITECTURE:
//
// Pure Transitions:
// Every transition is a total function from document to document. Undefined
// input (unknown id, empty focus slot, nothing due) returns the SAME *State
// pointer; defined input returns a freshly cloned document stamped with new
// write metadata. Callers detect no-ops by pointer identity, which is what
// keeps the undo journal and the persistence debouncer quiet when nothing
// happened.
//
// Single Writer:
// The Engine type serializes transitions for one replica under a mutex and
// fans the resulting documents out to the journal and the change hooks. All
// mutation goes through the engine's single apply path; nothing else writes
// the document. Replicas never share an Engine.
//
// Wake Priority:
// Whenever the focus slot refills, takeNext pops the head of the wake queue
// before it ever looks at the ready queue. A task that slept through its
// deadline cut the line; that is the point of snoozing.
//
// Clock Discipline:
// All timestamps come from the injected clock, never from time.Now. The
// ticker only decides WHEN Tick runs; Tick itself re-reads the clock, so
// correctness never depends on tick frequency.
package engine
