package snapshot

import (
	"cmp"
	"maps"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/focal/internal/state"
)

// Normalize repairs a structurally valid document into a well-formed one.
// Task facts are the source of truth: the derivable lanes are rebuilt from
// them, the structural lanes are filtered down to tasks that actually belong
// there, and anything left homeless joins the ready tail oldest-first.
//
// If the document is already well formed, the same pointer comes back
// unchanged.
func Normalize(s *state.State) *state.State {
	c := s.Clone()

	if c.Rev < 0 {
		c.Rev = 0
	}
	if c.UpdatedAt < 0 {
		c.UpdatedAt = 0
	}

	// Tombstones first: a tombstoned id never keeps a record, whatever the
	// rest of the document says.
	slices.Sort(c.DeletedIDs)
	c.DeletedIDs = slices.Compact(c.DeletedIDs)
	for _, id := range c.DeletedIDs {
		delete(c.Tasks, id)
	}

	for _, id := range slices.Sorted(maps.Keys(c.Tasks)) {
		t := c.Tasks[id]
		if t == nil {
			delete(c.Tasks, id)
			continue
		}
		// The map key is authoritative.
		t.ID = id
		t.Title = strings.TrimSpace(norm.NFC.String(t.Title))
		t.CreatedAt = max(t.CreatedAt, 0)
		t.UpdatedAt = max(t.UpdatedAt, 0)
		t.DoneAt = clampStamp(t.DoneAt)
		t.RestoredAt = clampStamp(t.RestoredAt)
		t.SnoozeUntil = clampStamp(t.SnoozeUntil)
		if t.SnoozeSeq != nil && *t.SnoozeSeq <= 0 {
			t.SnoozeSeq = nil
		}
		// Snooze fields travel in pairs; a stray sequence number is dropped
		// and a missing one is reallocated below.
		if t.SnoozeUntil == nil {
			t.SnoozeSeq = nil
		}
	}

	c.CompletedIDs = state.DeriveCompletedIDs(c.Tasks)
	c.SnoozedIDs = state.DeriveSnoozedIDs(c.Tasks)

	active := func(id string) bool {
		t := c.Tasks[id]
		return t != nil && !t.Completed() && !t.Snoozed()
	}

	seen := map[string]bool{}
	if c.CurrentID != "" {
		if active(c.CurrentID) {
			seen[c.CurrentID] = true
		} else {
			c.CurrentID = ""
		}
	}

	keep := func(stored []string) []string {
		kept := []string{}
		for _, id := range stored {
			if !active(id) || seen[id] {
				continue
			}
			seen[id] = true
			kept = append(kept, id)
		}
		return kept
	}
	c.WokenQueue = keep(c.WokenQueue)
	c.ReadyQueue = keep(c.ReadyQueue)

	// Active tasks no lane claims join the ready tail, oldest first.
	var homeless []string
	for id := range c.Tasks {
		if active(id) && !seen[id] {
			homeless = append(homeless, id)
		}
	}
	slices.SortFunc(homeless, func(a, b string) int {
		if n := cmp.Compare(c.Tasks[a].CreatedAt, c.Tasks[b].CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a, b)
	})
	c.ReadyQueue = append(c.ReadyQueue, homeless...)

	c.NextSnoozeSeq = max(c.NextSnoozeSeq, state.HighestSnoozeSeq(c.Tasks)+1, 1)
	state.Refill(c)

	if reflect.DeepEqual(s, c) {
		return s
	}
	return c
}

// clampStamp raises a present negative timestamp to zero. Absent stays
// absent; the facts themselves are never dropped.
func clampStamp(p *int64) *int64 {
	if p != nil && *p < 0 {
		return state.I64(0)
	}
	return p
}
