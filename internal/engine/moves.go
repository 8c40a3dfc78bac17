package engine

import (
	"slices"

	"github.com/roach88/focal/internal/clock"
	"github.com/roach88/focal/internal/state"
)

// destination is where a manual lane transfer lands.
type destination int

const (
	destWokenTail destination = iota
	destReadyTail
	destReadyHead
)

// MoveToWake sends a queued or snoozed task to the wake tail. A snoozed
// task loses its deadline on the way. If the focus slot was empty it refills
// immediately, so moving the only runnable task to wake focuses it.
func MoveToWake(s *state.State, c *clock.Clock, id string) *state.State {
	return move(s, c, id, destWokenTail)
}

// MoveToReady sends a queued or snoozed task to the ready tail.
func MoveToReady(s *state.State, c *clock.Clock, id string) *state.State {
	return move(s, c, id, destReadyTail)
}

// MoveToReadyHead sends a queued or snoozed task to the ready head, in line
// to be the next pick once the wake queue drains.
func MoveToReadyHead(s *state.State, c *clock.Clock, id string) *state.State {
	return move(s, c, id, destReadyHead)
}

func move(s *state.State, c *clock.Clock, id string, dest destination) *state.State {
	t := s.Task(id)
	if t == nil || t.Completed() || id == s.CurrentID {
		return s
	}
	lane := s.LaneOf(id)
	if lane != state.LaneWoken && lane != state.LaneReady && lane != state.LaneSnoozed {
		return s
	}
	// A transfer that reproduces the existing arrangement is a no-op.
	switch dest {
	case destWokenTail:
		if lane == state.LaneWoken && s.WokenQueue[len(s.WokenQueue)-1] == id {
			return s
		}
	case destReadyTail:
		if lane == state.LaneReady && s.ReadyQueue[len(s.ReadyQueue)-1] == id {
			return s
		}
	case destReadyHead:
		if lane == state.LaneReady && s.ReadyQueue[0] == id {
			return s
		}
	}

	next, meta := begin(s, c)
	stripLanes(next, id)
	clearSnooze(next.Tasks[id], meta.UpdatedAt)
	switch dest {
	case destWokenTail:
		next.WokenQueue = append(next.WokenQueue, id)
	case destReadyTail:
		next.ReadyQueue = append(next.ReadyQueue, id)
	case destReadyHead:
		next.ReadyQueue = slices.Insert(next.ReadyQueue, 0, id)
	}
	if next.CurrentID == "" {
		takeNext(next)
	}
	return next
}

// Focus makes id current immediately. The displaced task goes to the wake
// HEAD: it was in progress, and it resumes as soon as the new focus ends.
func Focus(s *state.State, c *clock.Clock, id string) *state.State {
	return focus(s, c, id, true)
}

// FocusFromQueue makes id current immediately but sends the displaced task
// to the wake TAIL: the user reached into a queue, which reads as "the old
// focus can wait".
func FocusFromQueue(s *state.State, c *clock.Clock, id string) *state.State {
	return focus(s, c, id, false)
}

func focus(s *state.State, c *clock.Clock, id string, resumeSoon bool) *state.State {
	t := s.Task(id)
	if t == nil || t.Completed() || id == s.CurrentID {
		return s
	}
	lane := s.LaneOf(id)
	if lane != state.LaneWoken && lane != state.LaneReady && lane != state.LaneSnoozed {
		return s
	}

	next, meta := begin(s, c)
	stripLanes(next, id)
	clearSnooze(next.Tasks[id], meta.UpdatedAt)
	if prev := next.CurrentID; prev != "" {
		if resumeSoon {
			next.WokenQueue = slices.Insert(next.WokenQueue, 0, prev)
		} else {
			next.WokenQueue = append(next.WokenQueue, prev)
		}
	}
	next.CurrentID = id
	return next
}

// DemoteCurrentToReadyHead steps back from the current task without parking
// it far: the replacement is popped first (wake beats ready), then the old
// focus lands at the ready head. With nothing else runnable there is no
// replacement to promote, so the call is a no-op rather than a rotation of
// one.
func DemoteCurrentToReadyHead(s *state.State, c *clock.Clock) *state.State {
	if s.CurrentID == "" {
		return s
	}
	if len(s.WokenQueue) == 0 && len(s.ReadyQueue) == 0 {
		return s
	}

	next, _ := begin(s, c)
	prev := next.CurrentID
	takeNext(next)
	next.ReadyQueue = slices.Insert(next.ReadyQueue, 0, prev)
	return next
}

// SwapCurrentWithWakeHead exchanges the focus slot with the wake head in
// place: the woken task takes focus and the old focus takes its queue
// position. No current task or an empty wake queue: no-op.
func SwapCurrentWithWakeHead(s *state.State, c *clock.Clock) *state.State {
	if s.CurrentID == "" || len(s.WokenQueue) == 0 {
		return s
	}

	next, _ := begin(s, c)
	next.CurrentID, next.WokenQueue[0] = next.WokenQueue[0], next.CurrentID
	return next
}

// ReorderWoken rearranges the wake queue to follow order. The hint is
// advisory: ids that are not wake members are dropped, duplicates keep
// their first position, and members the hint omits append in their existing
// relative order. A hint that reproduces the current order is a no-op.
func ReorderWoken(s *state.State, c *clock.Clock, order []string) *state.State {
	return reorder(s, c, order, func(st *state.State) *[]string { return &st.WokenQueue })
}

// ReorderReady rearranges the ready queue; same hint rules as ReorderWoken.
func ReorderReady(s *state.State, c *clock.Clock, order []string) *state.State {
	return reorder(s, c, order, func(st *state.State) *[]string { return &st.ReadyQueue })
}

func reorder(s *state.State, c *clock.Clock, order []string, lane func(*state.State) *[]string) *state.State {
	existing := *lane(s)

	member := make(map[string]bool, len(existing))
	for _, id := range existing {
		member[id] = true
	}

	result := make([]string, 0, len(existing))
	taken := make(map[string]bool, len(existing))
	for _, id := range order {
		if member[id] && !taken[id] {
			result = append(result, id)
			taken[id] = true
		}
	}
	for _, id := range existing {
		if !taken[id] {
			result = append(result, id)
		}
	}

	if slices.Equal(result, existing) {
		return s
	}

	next, _ := begin(s, c)
	*lane(next) = result
	return next
}
