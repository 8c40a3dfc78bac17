package merge

import (
	"reflect"
	"slices"

	"github.com/roach88/focal/internal/state"
)

// Reconcile folds the monotonic facts of a remote snapshot into the local
// document without disturbing the local structure.
//
// Tombstones, doneAt, restoredAt, and the derived completed/snoozed lanes
// are recomputed exactly as Merge computes them. Everything structural —
// the focus slot, both queue orders, rev, updatedAt, clientId, version —
// stays local: a remote snapshot that is merely newer by revision must not
// overwrite an in-progress local session. Two consequences keep the result
// coherent:
//
//   - A local task the folded facts mark completed, snoozed, or deleted
//     leaves the queues (and, if deleted, the record set); a focus slot
//     this empties refills, wake before ready.
//   - A task only the remote knows joins the record set, because the next
//     upload replaces the remote document wholesale and dropping it here
//     would destroy remote data. If it is active it joins the ready tail,
//     oldest first, alongside any local task the fold reactivated.
//
// The one scalar that does look at the remote is nextSnoozeSeq, a
// monotonic counter that can only ratchet up.
//
// If nothing observable changes, Reconcile returns the identical local
// pointer; callers detect the no-op the same way they do for queue
// operations.
func Reconcile(local, remote *state.State) *state.State {
	next := local.Clone()

	deleted := unionTombstones(local.DeletedIDs, remote.DeletedIDs)
	if !slices.Equal(deleted, next.DeletedIDs) {
		next.DeletedIDs = deleted
	}
	dead := make(map[string]bool, len(deleted))
	for _, id := range deleted {
		dead[id] = true
		delete(next.Tasks, id)
	}

	// Fold remote facts record by record. On an equal updatedAt the local
	// copy supplies the base, keeping an in-flight local edit intact.
	for id, rt := range remote.Tasks {
		if dead[id] {
			continue
		}
		if lt, ok := next.Tasks[id]; ok {
			next.Tasks[id] = mergeRecord(lt, rt)
		} else {
			next.Tasks[id] = rt.Clone()
		}
	}

	if derived := state.DeriveCompletedIDs(next.Tasks); !slices.Equal(derived, next.CompletedIDs) {
		next.CompletedIDs = derived
	}
	if derived := state.DeriveSnoozedIDs(next.Tasks); !slices.Equal(derived, next.SnoozedIDs) {
		next.SnoozedIDs = derived
	}

	// Local queue order survives; only entries the fold deactivated drop
	// out. A duplicate entry collapses to its first position while we are
	// here.
	seen := make(map[string]bool, len(next.Tasks))
	if active(next.Tasks[next.CurrentID]) {
		seen[next.CurrentID] = true
	} else {
		next.CurrentID = ""
	}
	filter := func(lane []string) []string {
		kept := make([]string, 0, len(lane))
		for _, id := range lane {
			if seen[id] || !active(next.Tasks[id]) {
				continue
			}
			seen[id] = true
			kept = append(kept, id)
		}
		return kept
	}
	if kept := filter(next.WokenQueue); !slices.Equal(kept, next.WokenQueue) {
		next.WokenQueue = kept
	}
	if kept := filter(next.ReadyQueue); !slices.Equal(kept, next.ReadyQueue) {
		next.ReadyQueue = kept
	}

	// Remote-only actives and locally reactivated tasks have no queue
	// position; they join the ready tail, oldest first.
	var unplaced []string
	for id, t := range next.Tasks {
		if active(t) && !seen[id] {
			unplaced = append(unplaced, id)
		}
	}
	if len(unplaced) > 0 {
		byCreation(next.Tasks, unplaced)
		next.ReadyQueue = append(next.ReadyQueue, unplaced...)
	}

	if seq := max(local.NextSnoozeSeq, remote.NextSnoozeSeq, state.HighestSnoozeSeq(next.Tasks)+1); seq != next.NextSnoozeSeq {
		next.NextSnoozeSeq = seq
	}

	state.Refill(next)

	if reflect.DeepEqual(local, next) {
		return local
	}
	return next
}
