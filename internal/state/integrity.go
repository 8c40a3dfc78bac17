package state

import (
	"fmt"
	"sort"
)

// Violation describes one structural rule the document breaks.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// Check verifies every structural rule the document must satisfy after any
// operation or merge. Returns all violations found (does not fail-fast):
//
//  1. Each task id appears in exactly one lane; no lane contains duplicates.
//  2. Every lane entry resolves to a task record and vice versa.
//  3. CompletedIDs is exactly the set of tasks whose completion marker is live.
//  4. SnoozedIDs is exactly the set of live-snoozed tasks, ordered by
//     (snoozeUntil, snoozeSeq); snooze fields travel in pairs.
//  5. Tombstoned ids appear nowhere else; DeletedIDs is sorted and unique.
//  6. NextSnoozeSeq outranks every assigned snoozeSeq.
func Check(s *State) []Violation {
	var errs []Violation

	seen := map[string]string{}
	note := func(field, id string) {
		if prev, ok := seen[id]; ok {
			errs = append(errs, Violation{
				Field:   field,
				Message: fmt.Sprintf("task %q already held by %s", id, prev),
			})
			return
		}
		seen[id] = field
	}

	if s.CurrentID != "" {
		note("currentId", s.CurrentID)
	}
	lanes := []struct {
		field string
		ids   []string
	}{
		{"wokenQueue", s.WokenQueue},
		{"readyQueue", s.ReadyQueue},
		{"snoozedIds", s.SnoozedIDs},
		{"completedIds", s.CompletedIDs},
	}
	for _, lane := range lanes {
		for i, id := range lane.ids {
			note(fmt.Sprintf("%s[%d]", lane.field, i), id)
		}
	}

	// Every lane entry must resolve to a record.
	for id, field := range seen {
		if s.Tasks[id] == nil {
			errs = append(errs, Violation{
				Field:   field,
				Message: fmt.Sprintf("task %q has no record", id),
			})
		}
	}
	for id, t := range s.Tasks {
		if t == nil {
			errs = append(errs, Violation{
				Field:   "tasks." + id,
				Message: "nil record",
			})
			continue
		}
		if t.ID != id {
			errs = append(errs, Violation{
				Field:   "tasks." + id,
				Message: fmt.Sprintf("record id %q does not match key", t.ID),
			})
		}
		if _, held := seen[id]; !held {
			errs = append(errs, Violation{
				Field:   "tasks." + id,
				Message: "record is not held by any lane",
			})
		}
		// Snooze fields travel in pairs.
		if (t.SnoozeUntil == nil) != (t.SnoozeSeq == nil) {
			errs = append(errs, Violation{
				Field:   "tasks." + id,
				Message: "snoozeUntil and snoozeSeq must be set together",
			})
		}
		if t.SnoozeSeq != nil && *t.SnoozeSeq >= s.NextSnoozeSeq {
			errs = append(errs, Violation{
				Field:   "nextSnoozeSeq",
				Message: fmt.Sprintf("task %q holds snoozeSeq %d >= counter %d", id, *t.SnoozeSeq, s.NextSnoozeSeq),
			})
		}
	}

	errs = append(errs, checkDerivedLane(s, "completedIds", s.CompletedIDs, (*Task).Completed)...)
	errs = append(errs, checkDerivedLane(s, "snoozedIds", s.SnoozedIDs, (*Task).Snoozed)...)

	// Snoozed order: (snoozeUntil, snoozeSeq) ascending.
	if !sort.SliceIsSorted(s.SnoozedIDs, func(i, j int) bool {
		return snoozeLess(s.Tasks[s.SnoozedIDs[i]], s.Tasks[s.SnoozedIDs[j]])
	}) {
		errs = append(errs, Violation{
			Field:   "snoozedIds",
			Message: "not ordered by (snoozeUntil, snoozeSeq)",
		})
	}

	// Current task must be runnable, not sleeping or finished.
	if cur := s.Tasks[s.CurrentID]; cur != nil {
		if cur.Completed() {
			errs = append(errs, Violation{Field: "currentId", Message: "current task is completed"})
		}
		if cur.Snoozed() {
			errs = append(errs, Violation{Field: "currentId", Message: "current task is snoozed"})
		}
	}

	if !sort.StringsAreSorted(s.DeletedIDs) {
		errs = append(errs, Violation{Field: "deletedIds", Message: "not sorted ascending"})
	}
	for i := 1; i < len(s.DeletedIDs); i++ {
		if s.DeletedIDs[i] == s.DeletedIDs[i-1] {
			errs = append(errs, Violation{
				Field:   "deletedIds",
				Message: fmt.Sprintf("duplicate tombstone %q", s.DeletedIDs[i]),
			})
		}
	}
	for _, id := range s.DeletedIDs {
		if s.Tasks[id] != nil {
			errs = append(errs, Violation{
				Field:   "deletedIds",
				Message: fmt.Sprintf("tombstoned task %q still has a record", id),
			})
		}
		if field, held := seen[id]; held {
			errs = append(errs, Violation{
				Field:   field,
				Message: fmt.Sprintf("tombstoned task %q held by a lane", id),
			})
		}
	}

	return errs
}

// checkDerivedLane verifies a materialized lane matches the set derived from
// task facts, in both directions.
func checkDerivedLane(s *State, field string, ids []string, pred func(*Task) bool) []Violation {
	var errs []Violation
	member := map[string]bool{}
	for _, id := range ids {
		member[id] = true
		if t := s.Tasks[id]; t != nil && !pred(t) {
			errs = append(errs, Violation{
				Field:   field,
				Message: fmt.Sprintf("task %q does not satisfy the lane's derivation", id),
			})
		}
	}
	for id, t := range s.Tasks {
		if t != nil && pred(t) && !member[id] {
			errs = append(errs, Violation{
				Field:   field,
				Message: fmt.Sprintf("task %q satisfies the derivation but is missing", id),
			})
		}
	}
	return errs
}

// snoozeLess orders two snoozed tasks by (snoozeUntil, snoozeSeq) ascending.
// Tasks with missing fields sort last so Check flags them elsewhere without
// also panicking here.
func snoozeLess(a, b *Task) bool {
	if a == nil || b == nil || a.SnoozeUntil == nil || b.SnoozeUntil == nil {
		return false
	}
	if *a.SnoozeUntil != *b.SnoozeUntil {
		return *a.SnoozeUntil < *b.SnoozeUntil
	}
	as, bs := int64(0), int64(0)
	if a.SnoozeSeq != nil {
		as = *a.SnoozeSeq
	}
	if b.SnoozeSeq != nil {
		bs = *b.SnoozeSeq
	}
	return as < bs
}
