package state

import (
	"bytes"
	"encoding/json"
)

// Task is a single unit of work. A record is never edited in place across
// replicas: the monotonic facts (doneAt, restoredAt) only ever grow, and the
// whole record rides along as the unit of last-writer-wins for everything
// else (title, payload).
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`

	// DoneAt and RestoredAt together encode completion. Neither is ever
	// cleared once set; see Completed.
	DoneAt     *int64 `json:"doneAt,omitempty"`
	RestoredAt *int64 `json:"restoredAt,omitempty"`

	// SnoozeUntil is the absolute wake deadline. SnoozeSeq breaks ties
	// between deadlines landing on the same millisecond. Both are set
	// together and cleared together.
	SnoozeUntil *int64 `json:"snoozeUntil,omitempty"`
	SnoozeSeq   *int64 `json:"snoozeSeq,omitempty"`

	// Payload carries everything the scheduler does not interpret (notes,
	// subtasks, attachments). It is opaque: replicas exchange it verbatim
	// and the newer record wins wholesale.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Completed reports whether the completion marker is live: doneAt is set and
// outranks any restore. Restoring never clears doneAt; it records a strictly
// greater restoredAt so this comparison flips.
func (t *Task) Completed() bool {
	if t.DoneAt == nil {
		return false
	}
	restored := int64(-1)
	if t.RestoredAt != nil {
		restored = *t.RestoredAt
	}
	return *t.DoneAt > restored
}

// Snoozed reports whether the task carries a live snooze deadline.
// A completed task is never snoozed, whatever its snooze fields say.
func (t *Task) Snoozed() bool {
	return t.SnoozeUntil != nil && !t.Completed()
}

// Clone returns a deep copy. The payload bytes are copied so the clone never
// aliases the original's buffer.
func (t *Task) Clone() *Task {
	c := *t
	c.DoneAt = cloneInt64(t.DoneAt)
	c.RestoredAt = cloneInt64(t.RestoredAt)
	c.SnoozeUntil = cloneInt64(t.SnoozeUntil)
	c.SnoozeSeq = cloneInt64(t.SnoozeSeq)
	if t.Payload != nil {
		c.Payload = bytes.Clone(t.Payload)
	}
	return &c
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// I64 returns a pointer to v. Convenience constructor for the optional
// int64 fields (timestamps and snooze sequence numbers).
func I64(v int64) *int64 {
	return &v
}
