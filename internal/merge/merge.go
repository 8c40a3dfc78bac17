// Package merge reconciles divergent copies of the task document.
//
// Two replicas never share memory; they exchange whole snapshots through a
// file, a broadcast, or a remote document, and each one folds what it sees
// into what it has. Both algorithms here are pure functions over two
// snapshots, and both rebuild the completed and snoozed lanes from per-task
// facts instead of trusting either input's own bookkeeping. The facts are
// monotonic (doneAt, restoredAt, tombstones only ever advance), which is
// what lets arbitrary interleavings of merges settle on the same answer.
//
// Merge is symmetric: one winner by document freshness supplies the
// structure, facts flow in from both sides. Reconcile is asymmetric: the
// local document keeps its structure untouched and only absorbs facts,
// which protects an in-progress local session from a remote snapshot that
// is merely newer by revision.
package merge

import (
	"github.com/roach88/focal/internal/state"
)

// Newer reports whether a supersedes b, by descending (updatedAt, rev,
// clientId). The client id tie-break is arbitrary but total, so two replicas
// comparing the same pair always agree on the winner.
func Newer(a, b *state.State) bool {
	if a.UpdatedAt != b.UpdatedAt {
		return a.UpdatedAt > b.UpdatedAt
	}
	if a.Rev != b.Rev {
		return a.Rev > b.Rev
	}
	return a.ClientID > b.ClientID
}

// Merge folds two snapshots of the same account into one.
//
// The newer snapshot supplies the structure: queue order, the focus slot,
// per-task descriptive fields. Monotonic facts flow in from both sides:
// tombstones union, doneAt/restoredAt take their maxima, createdAt its
// minimum. The completed and snoozed lanes are rebuilt from the folded
// records, active tasks surface in the newer side's queue order with the
// older side's queues filling in what the newer one never placed, and
// anything still unplaced joins the ready tail oldest-first.
//
// Merge allocates no write metadata; rev and updatedAt are the maxima of
// the inputs. Callers that need the result to propagate stamp it afterward.
func Merge(a, b *state.State) *state.State {
	newer, older := a, b
	if !Newer(a, b) {
		newer, older = b, a
	}

	c := state.New(newer.ClientID)
	c.Rev = max(a.Rev, b.Rev)
	c.UpdatedAt = max(a.UpdatedAt, b.UpdatedAt)
	c.Version = max(a.Version, b.Version)

	// Tombstones are permanent and win unconditionally: an id in the union
	// stays out of the merged record set even if one side still holds it.
	c.DeletedIDs = unionTombstones(a.DeletedIDs, b.DeletedIDs)
	dead := make(map[string]bool, len(c.DeletedIDs))
	for _, id := range c.DeletedIDs {
		dead[id] = true
	}

	for id, t := range newer.Tasks {
		if dead[id] {
			continue
		}
		c.Tasks[id] = mergeRecord(t, older.Tasks[id])
	}
	for id, t := range older.Tasks {
		if dead[id] {
			continue
		}
		if _, ok := c.Tasks[id]; !ok {
			c.Tasks[id] = t.Clone()
		}
	}

	c.CompletedIDs = state.DeriveCompletedIDs(c.Tasks)
	c.SnoozedIDs = state.DeriveSnoozedIDs(c.Tasks)

	// The focus slot follows the newer side if its pick is still active;
	// a pick that was completed, snoozed, or deleted in the meantime is
	// cleared and refilled after the queues are rebuilt.
	c.CurrentID = ""
	if active(c.Tasks[newer.CurrentID]) {
		c.CurrentID = newer.CurrentID
	}

	seen := make(map[string]bool, len(c.Tasks))
	if c.CurrentID != "" {
		seen[c.CurrentID] = true
	}
	place := func(src []string, dst *[]string) {
		for _, id := range src {
			if seen[id] || !active(c.Tasks[id]) {
				continue
			}
			seen[id] = true
			*dst = append(*dst, id)
		}
	}
	place(newer.WokenQueue, &c.WokenQueue)
	place(newer.ReadyQueue, &c.ReadyQueue)
	place(older.WokenQueue, &c.WokenQueue)
	place(older.ReadyQueue, &c.ReadyQueue)

	// Active tasks neither side ever queued (newly surfaced by the union)
	// join the ready tail, oldest first.
	var unplaced []string
	for id, t := range c.Tasks {
		if active(t) && !seen[id] {
			unplaced = append(unplaced, id)
		}
	}
	byCreation(c.Tasks, unplaced)
	c.ReadyQueue = append(c.ReadyQueue, unplaced...)

	state.Refill(c)

	c.NextSnoozeSeq = max(a.NextSnoozeSeq, b.NextSnoozeSeq, state.HighestSnoozeSeq(c.Tasks)+1)
	return c
}
