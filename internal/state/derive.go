package state

import (
	"slices"
	"sort"
)

// The completed and snoozed lanes are derived data: the per-task facts are
// authoritative and the stored arrays are never trusted across a merge,
// import, or normalization. These helpers rebuild them.

// DeriveCompletedIDs rebuilds the completed lane from task facts: every
// completed record, most recently finished first, id as the tie-break.
// Always returns a non-nil slice.
func DeriveCompletedIDs(tasks map[string]*Task) []string {
	ids := []string{}
	for id, t := range tasks {
		if t.Completed() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := tasks[ids[i]], tasks[ids[j]]
		if *a.DoneAt != *b.DoneAt {
			return *a.DoneAt > *b.DoneAt
		}
		return ids[i] < ids[j]
	})
	return ids
}

// DeriveSnoozedIDs rebuilds the snoozed lane from task facts, ascending by
// (deadline, sequence, id). Any record carrying a deadline without its
// sequence number is assigned one past the highest assigned so far, in
// (deadline, id) order so equal inputs allocate equally; the assignment
// writes through to the record. Completed records are repaired too, since
// a restore can revive their pending snooze, but only live-snoozed tasks
// enter the lane. Always returns a non-nil slice.
func DeriveSnoozedIDs(tasks map[string]*Task) []string {
	ids := []string{}
	var missing []string
	for id, t := range tasks {
		if t.SnoozeUntil != nil && t.SnoozeSeq == nil {
			missing = append(missing, id)
		}
		if t.Snoozed() {
			ids = append(ids, id)
		}
	}

	sort.Slice(missing, func(i, j int) bool {
		a, b := tasks[missing[i]], tasks[missing[j]]
		if *a.SnoozeUntil != *b.SnoozeUntil {
			return *a.SnoozeUntil < *b.SnoozeUntil
		}
		return missing[i] < missing[j]
	})
	maxSeq := HighestSnoozeSeq(tasks)
	for _, id := range missing {
		maxSeq++
		tasks[id].SnoozeSeq = I64(maxSeq)
	}

	sort.Slice(ids, func(i, j int) bool {
		a, b := tasks[ids[i]], tasks[ids[j]]
		if *a.SnoozeUntil != *b.SnoozeUntil {
			return *a.SnoozeUntil < *b.SnoozeUntil
		}
		if *a.SnoozeSeq != *b.SnoozeSeq {
			return *a.SnoozeSeq < *b.SnoozeSeq
		}
		return ids[i] < ids[j]
	})
	return ids
}

// HighestSnoozeSeq scans every record, completed ones included, for the
// largest snooze sequence number ever assigned.
func HighestSnoozeSeq(tasks map[string]*Task) int64 {
	var maxSeq int64
	for _, t := range tasks {
		if t.SnoozeSeq != nil && *t.SnoozeSeq > maxSeq {
			maxSeq = *t.SnoozeSeq
		}
	}
	return maxSeq
}

// Refill fills an empty focus slot from the queues, wake before ready.
// An occupied slot is left alone.
func Refill(s *State) {
	if s.CurrentID != "" {
		return
	}
	if len(s.WokenQueue) > 0 {
		s.CurrentID = s.WokenQueue[0]
		s.WokenQueue = slices.Delete(s.WokenQueue, 0, 1)
		return
	}
	if len(s.ReadyQueue) > 0 {
		s.CurrentID = s.ReadyQueue[0]
		s.ReadyQueue = slices.Delete(s.ReadyQueue, 0, 1)
	}
}
