package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/focal/internal/state"
)

// queueFixture builds a document with every lane populated:
// current=cur, woken=[w1 w2], ready=[r1 r2], snoozed=[z1], completed=[d].
func queueFixture() *state.State {
	s := state.New("client-test")
	for _, id := range []string{"cur", "w1", "w2", "r1", "r2", "z1", "d"} {
		s.Tasks[id] = &state.Task{ID: id, Title: id, CreatedAt: 1, UpdatedAt: 1}
	}
	s.Tasks["z1"].SnoozeUntil = state.I64(5_000_000)
	s.Tasks["z1"].SnoozeSeq = state.I64(1)
	s.Tasks["d"].DoneAt = state.I64(2)
	s.CurrentID = "cur"
	s.WokenQueue = []string{"w1", "w2"}
	s.ReadyQueue = []string{"r1", "r2"}
	s.SnoozedIDs = []string{"z1"}
	s.CompletedIDs = []string{"d"}
	s.NextSnoozeSeq = 2
	return s
}

func TestMoveToWake_FromReady(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	s2 := MoveToWake(s, c, "r2")
	assert.Equal(t, []string{"w1", "w2", "r2"}, s2.WokenQueue)
	assert.Equal(t, []string{"r1"}, s2.ReadyQueue)
	assert.Equal(t, "cur", s2.CurrentID)
	checkClean(t, s2)
}

func TestMoveToWake_FromSnoozedDropsDeadline(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	s2 := MoveToWake(s, c, "z1")
	assert.Equal(t, []string{"w1", "w2", "z1"}, s2.WokenQueue)
	assert.Empty(t, s2.SnoozedIDs)
	assert.Nil(t, s2.Task("z1").SnoozeUntil, "a manual move cancels the snooze")
	assert.Nil(t, s2.Task("z1").SnoozeSeq)
	checkClean(t, s2)
}

func TestMoveToWake_OnlyRunnableTaskFocuses(t *testing.T) {
	c, _ := newTestClock()

	s := state.New("client-test")
	s.Tasks["z1"] = &state.Task{
		ID: "z1", Title: "z1", CreatedAt: 1, UpdatedAt: 1,
		SnoozeUntil: state.I64(5_000_000), SnoozeSeq: state.I64(1),
	}
	s.SnoozedIDs = []string{"z1"}
	s.NextSnoozeSeq = 2

	s2 := MoveToWake(s, c, "z1")
	assert.Equal(t, "z1", s2.CurrentID, "empty slot refills immediately")
	assert.Empty(t, s2.WokenQueue)
	checkClean(t, s2)
}

func TestMove_Noops(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	assert.Same(t, s, MoveToWake(s, c, "cur"), "current task does not move")
	assert.Same(t, s, MoveToWake(s, c, "d"), "completed task does not move")
	assert.Same(t, s, MoveToWake(s, c, "ghost"), "unknown id")
	assert.Same(t, s, MoveToWake(s, c, "w2"), "already at the wake tail")
	assert.Same(t, s, MoveToReady(s, c, "r2"), "already at the ready tail")
	assert.Same(t, s, MoveToReadyHead(s, c, "r1"), "already at the ready head")
}

func TestMoveToReady_FromWoken(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	s2 := MoveToReady(s, c, "w1")
	assert.Equal(t, []string{"w2"}, s2.WokenQueue)
	assert.Equal(t, []string{"r1", "r2", "w1"}, s2.ReadyQueue)
	checkClean(t, s2)
}

func TestMoveToReadyHead_CutsTheLine(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	s2 := MoveToReadyHead(s, c, "w2")
	assert.Equal(t, []string{"w1"}, s2.WokenQueue)
	assert.Equal(t, []string{"w2", "r1", "r2"}, s2.ReadyQueue)
	checkClean(t, s2)
}

func TestFocus_DisplacedResumesSoon(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	s2 := Focus(s, c, "r2")
	assert.Equal(t, "r2", s2.CurrentID)
	assert.Equal(t, []string{"cur", "w1", "w2"}, s2.WokenQueue, "old focus resumes next")
	assert.Equal(t, []string{"r1"}, s2.ReadyQueue)
	checkClean(t, s2)
}

func TestFocusFromQueue_DisplacedWaits(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	s2 := FocusFromQueue(s, c, "r2")
	assert.Equal(t, "r2", s2.CurrentID)
	assert.Equal(t, []string{"w1", "w2", "cur"}, s2.WokenQueue, "old focus joins the tail")
	checkClean(t, s2)
}

func TestFocus_FromSnoozedClearsPair(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	s2 := Focus(s, c, "z1")
	assert.Equal(t, "z1", s2.CurrentID)
	assert.Empty(t, s2.SnoozedIDs)
	assert.Nil(t, s2.Task("z1").SnoozeUntil)
	checkClean(t, s2)
}

func TestFocus_EmptySlotNoDisplacement(t *testing.T) {
	c, _ := newTestClock()

	s := state.New("client-test")
	for _, id := range []string{"r1", "r2"} {
		s.Tasks[id] = &state.Task{ID: id, Title: id, CreatedAt: 1, UpdatedAt: 1}
	}
	s.ReadyQueue = []string{"r1", "r2"}

	s2 := Focus(s, c, "r2")
	assert.Equal(t, "r2", s2.CurrentID)
	assert.Empty(t, s2.WokenQueue, "nothing was displaced")
	assert.Equal(t, []string{"r1"}, s2.ReadyQueue)
	checkClean(t, s2)
}

func TestFocus_Noops(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	assert.Same(t, s, Focus(s, c, "cur"), "already current")
	assert.Same(t, s, Focus(s, c, "d"), "completed")
	assert.Same(t, s, FocusFromQueue(s, c, "ghost"), "unknown id")
}

func TestDemoteCurrentToReadyHead(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	s2 := DemoteCurrentToReadyHead(s, c)
	assert.Equal(t, "w1", s2.CurrentID, "replacement pops before the old focus lands")
	assert.Equal(t, []string{"w2"}, s2.WokenQueue)
	assert.Equal(t, []string{"cur", "r1", "r2"}, s2.ReadyQueue)
	checkClean(t, s2)
}

func TestDemoteCurrentToReadyHead_ReadyOnly(t *testing.T) {
	c, _ := newTestClock()

	s := state.New("client-test")
	for _, id := range []string{"cur", "r1"} {
		s.Tasks[id] = &state.Task{ID: id, Title: id, CreatedAt: 1, UpdatedAt: 1}
	}
	s.CurrentID = "cur"
	s.ReadyQueue = []string{"r1"}

	s2 := DemoteCurrentToReadyHead(s, c)
	assert.Equal(t, "r1", s2.CurrentID)
	assert.Equal(t, []string{"cur"}, s2.ReadyQueue)
	checkClean(t, s2)
}

func TestDemoteCurrentToReadyHead_Noops(t *testing.T) {
	c, _ := newTestClock()
	gen := NewFixedIDGenerator("a")

	empty := state.New("client-test")
	assert.Same(t, empty, DemoteCurrentToReadyHead(empty, c), "no current")

	alone := AddTask(empty, c, gen, "only")
	assert.Same(t, alone, DemoteCurrentToReadyHead(alone, c), "no replacement to promote")
}

func TestSwapCurrentWithWakeHead(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	s2 := SwapCurrentWithWakeHead(s, c)
	assert.Equal(t, "w1", s2.CurrentID)
	assert.Equal(t, []string{"cur", "w2"}, s2.WokenQueue, "old focus takes the vacated spot")
	assert.Equal(t, []string{"r1", "r2"}, s2.ReadyQueue, "ready untouched")
	checkClean(t, s2)
}

func TestSwapCurrentWithWakeHead_Noops(t *testing.T) {
	c, _ := newTestClock()
	gen := NewFixedIDGenerator("a")

	empty := state.New("client-test")
	assert.Same(t, empty, SwapCurrentWithWakeHead(empty, c), "no current")

	s := AddTask(empty, c, gen, "only")
	assert.Same(t, s, SwapCurrentWithWakeHead(s, c), "empty wake queue")
}

func TestReorderWoken(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	s2 := ReorderWoken(s, c, []string{"w2", "w1"})
	assert.Equal(t, []string{"w2", "w1"}, s2.WokenQueue)
	assert.Equal(t, []string{"r1", "r2"}, s2.ReadyQueue)
	checkClean(t, s2)
}

func TestReorder_HintIsAdvisory(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	// Non-members drop, duplicates collapse to first position, omitted
	// members append in their existing order.
	s2 := ReorderReady(s, c, []string{"ghost", "r2", "r2", "cur"})
	assert.Equal(t, []string{"r2", "r1"}, s2.ReadyQueue)
	checkClean(t, s2)
}

func TestReorder_IdentityIsNoop(t *testing.T) {
	c, _ := newTestClock()
	s := queueFixture()

	assert.Same(t, s, ReorderWoken(s, c, []string{"w1", "w2"}))
	assert.Same(t, s, ReorderWoken(s, c, nil), "empty hint keeps existing order")
	assert.Same(t, s, ReorderReady(s, c, []string{"ghost"}))
}
