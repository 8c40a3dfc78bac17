package engine

import (
	"slices"
	"sort"
	"time"

	"github.com/roach88/focal/internal/clock"
	"github.com/roach88/focal/internal/state"
)

// QuickDeferFallback is how long a quick defer parks the current task when
// it is the only runnable one. Without it, "not now" on a singleton would
// hand the same task straight back. The window is part of the behavioral
// contract, not a tunable.
const QuickDeferFallback = 60 * time.Second

// SnoozeCurrent parks the task in focus.
//
// With a duration, the task sleeps until now+d and the slot refills.
//
// Without one (quick defer) the behavior depends on what else is runnable:
// if the wake or ready queue holds anything, the current task rotates to the
// ready tail and the slot refills (wake still beats ready, so the rotated
// task is not necessarily replaced by a ready one). If nothing else is
// runnable, the task auto-snoozes for QuickDeferFallback and the slot goes
// empty.
//
// No current task: no-op.
func SnoozeCurrent(s *state.State, c *clock.Clock, d *time.Duration) *state.State {
	if s.CurrentID == "" {
		return s
	}

	if d == nil {
		if len(s.WokenQueue) == 0 && len(s.ReadyQueue) == 0 {
			return snoozeFor(s, c, QuickDeferFallback)
		}
		next, _ := begin(s, c)
		next.ReadyQueue = append(next.ReadyQueue, next.CurrentID)
		next.CurrentID = ""
		takeNext(next)
		return next
	}
	return snoozeFor(s, c, *d)
}

func snoozeFor(s *state.State, c *clock.Clock, d time.Duration) *state.State {
	next, meta := begin(s, c)
	id := next.CurrentID

	t := next.Tasks[id]
	t.SnoozeUntil = state.I64(c.Now() + d.Milliseconds())
	t.SnoozeSeq = state.I64(next.NextSnoozeSeq)
	t.UpdatedAt = meta.UpdatedAt
	next.NextSnoozeSeq++

	next.CurrentID = ""
	insertSnoozed(next, id)
	takeNext(next)
	return next
}

// insertSnoozed places id into the snoozed lane keeping the
// (snoozeUntil, snoozeSeq) ascending order. Entries with equal deadlines
// keep allocation order because snoozeSeq is unique.
func insertSnoozed(s *state.State, id string) {
	t := s.Tasks[id]
	i := sort.Search(len(s.SnoozedIDs), func(i int) bool {
		return !snoozeBefore(s.Tasks[s.SnoozedIDs[i]], t)
	})
	s.SnoozedIDs = slices.Insert(s.SnoozedIDs, i, id)
}

func snoozeBefore(a, b *state.Task) bool {
	au, bu := snoozeKey(a), snoozeKey(b)
	if au.until != bu.until {
		return au.until < bu.until
	}
	return au.seq < bu.seq
}

type snoozeOrder struct{ until, seq int64 }

func snoozeKey(t *state.Task) snoozeOrder {
	var k snoozeOrder
	if t == nil {
		return k
	}
	if t.SnoozeUntil != nil {
		k.until = *t.SnoozeUntil
	}
	if t.SnoozeSeq != nil {
		k.seq = *t.SnoozeSeq
	}
	return k
}

// Tick wakes every snoozed task whose deadline has passed, in
// (snoozeUntil, snoozeSeq, original position) order, onto the wake tail.
// The focus slot refills only if it was empty. Returns the woken count;
// nothing due returns the same document and 0.
//
// Tick is idempotent between deadline crossings: however often the ticker
// fires, a deadline wakes its task exactly once.
func Tick(s *state.State, c *clock.Clock) (*state.State, int) {
	now := c.Now()

	type due struct {
		id  string
		key snoozeOrder
		idx int
	}
	var dues []due
	for i, id := range s.SnoozedIDs {
		t := s.Task(id)
		if t != nil && t.SnoozeUntil != nil && *t.SnoozeUntil <= now {
			dues = append(dues, due{id: id, key: snoozeKey(t), idx: i})
		}
	}
	if len(dues) == 0 {
		return s, 0
	}

	// The lane is kept sorted, but the wake order is re-derived rather than
	// trusted: imports and merges hand us lanes we did not build.
	sort.Slice(dues, func(i, j int) bool {
		a, b := dues[i], dues[j]
		if a.key.until != b.key.until {
			return a.key.until < b.key.until
		}
		if a.key.seq != b.key.seq {
			return a.key.seq < b.key.seq
		}
		return a.idx < b.idx
	})

	next, meta := begin(s, c)
	for _, d := range dues {
		if i := slices.Index(next.SnoozedIDs, d.id); i >= 0 {
			next.SnoozedIDs = slices.Delete(next.SnoozedIDs, i, i+1)
		}
		clearSnooze(next.Tasks[d.id], meta.UpdatedAt)
		next.WokenQueue = append(next.WokenQueue, d.id)
	}
	if next.CurrentID == "" {
		takeNext(next)
	}
	return next, len(dues)
}
