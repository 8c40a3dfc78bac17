// Package store provides SQLite-backed durable storage for the focal
// document.
//
// The model is deliberately primitive: one row holding the whole canonical
// JSON document, replaced wholesale on every write, plus an append-only
// audit log of write headers. Reconciliation works on whole snapshots, so
// anything finer-grained here would just invent conflicts the merge layer
// cannot see.
//
// Writes normally arrive through the Debouncer, which collapses bursts of
// engine mutations into one disk write and absorbs storage failures: the
// in-memory document stays authoritative and only durability degrades.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
