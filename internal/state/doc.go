// Package state defines the focal document model: task records, the five
// structural lanes, tombstones, and the write metadata that orders replicas.
//
// This package contains the data model and its structural rules only. All
// other internal packages import state; state imports nothing internal, which
// keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - All timestamps are logical epoch milliseconds (int64) allocated by the
//     write-metadata clock; nothing in this package reads the wall clock
//   - Optional per-task facts (doneAt, restoredAt, snoozeUntil, snoozeSeq) are
//     pointers; absence is meaningful and survives JSON round-trips
//   - Completion is derived, never stored as a flag: doneAt outranking
//     restoredAt IS the completion marker
//   - Mutations happen on deep clones; a no-op returns the same *State so
//     callers detect it by pointer identity
package state
