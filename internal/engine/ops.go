package engine

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/focal/internal/clock"
	"github.com/roach88/focal/internal/state"
)

// takeNext refills the focus slot: head of the wake queue if any, else head
// of the ready queue, else the slot stays empty. Wake ALWAYS beats ready.
func takeNext(s *state.State) {
	if len(s.WokenQueue) > 0 {
		s.CurrentID = s.WokenQueue[0]
		s.WokenQueue = slices.Delete(s.WokenQueue, 0, 1)
		return
	}
	if len(s.ReadyQueue) > 0 {
		s.CurrentID = s.ReadyQueue[0]
		s.ReadyQueue = slices.Delete(s.ReadyQueue, 0, 1)
		return
	}
	s.CurrentID = ""
}

// stripLanes removes id from every list lane. The focus slot is the caller's
// responsibility.
func stripLanes(s *state.State, id string) {
	for _, lane := range []*[]string{&s.WokenQueue, &s.ReadyQueue, &s.SnoozedIDs, &s.CompletedIDs} {
		if i := slices.Index(*lane, id); i >= 0 {
			*lane = slices.Delete(*lane, i, i+1)
		}
	}
}

// clearSnooze drops a task's snooze pair and bumps its record stamp if the
// pair was set. Returns true if the record changed.
func clearSnooze(t *state.Task, updatedAt int64) bool {
	if t.SnoozeUntil == nil && t.SnoozeSeq == nil {
		return false
	}
	t.SnoozeUntil = nil
	t.SnoozeSeq = nil
	t.UpdatedAt = updatedAt
	return true
}

// begin clones s and stamps the clone with freshly allocated write metadata.
// Call only after every no-op check has passed.
func begin(s *state.State, c *clock.Clock) (*state.State, state.WriteMeta) {
	meta := c.NextWriteMeta(s.Meta())
	next := s.Clone()
	next.Stamp(meta)
	return next, meta
}

// AddTask creates a task and puts it straight into focus. The displaced
// current task, if any, goes to the ready tail: new work interrupts, old
// work waits its turn. An empty or whitespace title is a no-op; interactive
// surfaces reject those before they get here.
func AddTask(s *state.State, c *clock.Clock, gen IDGenerator, title string) *state.State {
	title = strings.TrimSpace(norm.NFC.String(title))
	if title == "" {
		return s
	}

	next, meta := begin(s, c)
	id := gen.NewID()
	next.Tasks[id] = &state.Task{
		ID:        id,
		Title:     title,
		CreatedAt: meta.UpdatedAt,
		UpdatedAt: meta.UpdatedAt,
	}
	if next.CurrentID != "" {
		next.ReadyQueue = append(next.ReadyQueue, next.CurrentID)
	}
	next.CurrentID = id
	return next
}

// CompleteCurrent completes the task in focus and refills the slot.
// No current task: no-op.
func CompleteCurrent(s *state.State, c *clock.Clock) *state.State {
	if s.CurrentID == "" {
		return s
	}
	return complete(s, c, s.CurrentID)
}

// CompleteTask completes id wherever it lives, snoozed included. Unknown or
// already-completed ids are a no-op. The focus slot refills only if id held
// it.
func CompleteTask(s *state.State, c *clock.Clock, id string) *state.State {
	t := s.Task(id)
	if t == nil || t.Completed() {
		return s
	}
	return complete(s, c, id)
}

func complete(s *state.State, c *clock.Clock, id string) *state.State {
	next, meta := begin(s, c)

	wasCurrent := next.CurrentID == id
	if wasCurrent {
		next.CurrentID = ""
	}
	stripLanes(next, id)

	t := next.Tasks[id]
	// Completion must outrank any earlier restore, even one folded in from
	// another replica ahead of this document's own clock.
	done := meta.UpdatedAt
	if t.RestoredAt != nil && *t.RestoredAt >= done {
		done = *t.RestoredAt + 1
	}
	t.DoneAt = state.I64(done)
	t.SnoozeUntil = nil
	t.SnoozeSeq = nil
	t.UpdatedAt = meta.UpdatedAt

	next.CompletedIDs = slices.Insert(next.CompletedIDs, 0, id)
	if wasCurrent {
		takeNext(next)
	}
	return next
}

// DeleteCurrent removes the task in focus permanently: the record goes away,
// the id joins the tombstones, and the slot refills. No current task: no-op.
// There is deliberately no delete-by-id; deletion requires looking at the
// task first.
func DeleteCurrent(s *state.State, c *clock.Clock) *state.State {
	if s.CurrentID == "" {
		return s
	}

	next, _ := begin(s, c)
	id := next.CurrentID
	delete(next.Tasks, id)
	next.AddTombstone(id)
	stripLanes(next, id)
	next.CurrentID = ""
	takeNext(next)
	return next
}

// RestoreTask brings a completed task back: restoredAt gets a tick strictly
// greater than doneAt so the completion marker flips, and the task rejoins
// the ready tail. Only completed ids restore; everything else is a no-op.
func RestoreTask(s *state.State, c *clock.Clock, id string) *state.State {
	t := s.Task(id)
	if t == nil || !t.Completed() {
		return s
	}

	next, meta := begin(s, c)
	t = next.Tasks[id]
	restored := meta.UpdatedAt
	if t.DoneAt != nil && *t.DoneAt >= restored {
		restored = *t.DoneAt + 1
	}
	t.RestoredAt = state.I64(restored)
	// Any snooze pair still on the record predates the completion; it does
	// not survive the trip back.
	t.SnoozeUntil = nil
	t.SnoozeSeq = nil
	t.UpdatedAt = meta.UpdatedAt

	stripLanes(next, id)
	next.ReadyQueue = append(next.ReadyQueue, id)
	if next.CurrentID == "" {
		takeNext(next)
	}
	return next
}

// ClearHistory tombstones every completed task and drops its record. A
// completed id that some lane still references (a shape external merges can
// produce) is preserved. Nothing to purge: no-op.
func ClearHistory(s *state.State, c *clock.Clock) *state.State {
	if len(s.CompletedIDs) == 0 {
		return s
	}

	referenced := map[string]bool{}
	if s.CurrentID != "" {
		referenced[s.CurrentID] = true
	}
	for _, lane := range [][]string{s.WokenQueue, s.ReadyQueue, s.SnoozedIDs} {
		for _, id := range lane {
			referenced[id] = true
		}
	}

	var purge, keep []string
	for _, id := range s.CompletedIDs {
		if referenced[id] {
			keep = append(keep, id)
		} else {
			purge = append(purge, id)
		}
	}
	if len(purge) == 0 {
		return s
	}

	next, _ := begin(s, c)
	for _, id := range purge {
		delete(next.Tasks, id)
		next.AddTombstone(id)
	}
	next.CompletedIDs = append([]string{}, keep...)
	return next
}
