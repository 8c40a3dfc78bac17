package merge

import (
	"slices"
	"sort"

	"github.com/roach88/focal/internal/state"
)

// active reports whether a task competes for the focus slot and the queues:
// present, not completed, not snoozed.
func active(t *state.Task) bool {
	return t != nil && !t.Completed() && !t.Snoozed()
}

// mergeRecord folds two copies of the same task into one. n is the copy from
// the snapshot that won the document-level comparison; on an equal updatedAt
// it supplies the base. The base contributes every descriptive field (title,
// payload, snooze pair) untouched, while the monotonic facts are recomputed
// across both copies so a completion or restore recorded on either side
// survives. updatedAt is pulled forward over the folded facts so a later
// merge sees this record as at least as fresh as what it absorbed.
func mergeRecord(n, o *state.Task) *state.Task {
	if o == nil {
		return n.Clone()
	}
	base := n
	if o.UpdatedAt > n.UpdatedAt {
		base = o
	}

	t := base.Clone()
	t.CreatedAt = min(n.CreatedAt, o.CreatedAt)
	t.DoneAt = maxOptional(n.DoneAt, o.DoneAt)
	t.RestoredAt = maxOptional(n.RestoredAt, o.RestoredAt)

	u := t.UpdatedAt
	if t.DoneAt != nil && *t.DoneAt > u {
		u = *t.DoneAt
	}
	if t.RestoredAt != nil && *t.RestoredAt > u {
		u = *t.RestoredAt
	}
	t.UpdatedAt = u
	return t
}

// maxOptional returns a fresh pointer to the greater of two optional stamps,
// or nil when neither is set. An absent stamp never outranks a present one.
func maxOptional(a, b *int64) *int64 {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return state.I64(*b)
	case b == nil:
		return state.I64(*a)
	case *a >= *b:
		return state.I64(*a)
	default:
		return state.I64(*b)
	}
}

// unionTombstones merges two tombstone lists into one sorted, deduplicated
// list. Neither input is trusted to be in normal form.
func unionTombstones(a, b []string) []string {
	out := append([]string{}, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// byCreation orders ids for a ready-tail append: oldest task first, id as
// the tie-break.
func byCreation(tasks map[string]*state.Task, ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := tasks[ids[i]], tasks[ids[j]]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return ids[i] < ids[j]
	})
}
