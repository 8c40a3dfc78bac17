package harness

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
	"github.com/roach88/focal/internal/testutil"
)

// fixtureHarness builds a harness whose main replica holds a document with
// every lane populated: B focused, C snoozed, A completed.
func fixtureHarness(t *testing.T) *Harness {
	t.Helper()
	h := &Harness{
		clock:    testutil.NewClock(DefaultStartMs),
		replicas: map[string]*engine.Engine{},
		adds:     map[string][]string{"main": {"A", "B", "C"}},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	eng := h.replica("main")
	eng.Add("Water the plants")
	eng.Add("Call the vendor")
	eng.Add("Review the patch")
	d := 10 * time.Minute
	eng.Snooze(&d)        // C sleeps, A takes focus
	eng.CompleteCurrent() // A done, B takes focus
	return h
}

func fixtureState(t *testing.T) *state.State {
	t.Helper()
	return fixtureHarness(t).replicas["main"].State()
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	h := fixtureHarness(t)

	errs := EvaluateAssertions(h, []Assertion{
		{Type: AssertLanes, Current: ptr("B"), Snoozed: ptr([]string{"C"}), Completed: ptr([]string{"A"})},
		{Type: AssertTask, ID: "A", Done: ptr(true)},
		{Type: AssertTask, ID: "C", Snoozing: ptr(true), SnoozeUntil: ptr(int64(1_600_000))},
		{Type: AssertHistory, CanUndo: ptr(true), CanRedo: ptr(false)},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_ReportsFailuresWithContext(t *testing.T) {
	h := fixtureHarness(t)

	errs := EvaluateAssertions(h, []Assertion{
		{Type: AssertLanes, Current: ptr("A")},       // B holds focus
		{Type: AssertTask, ID: "B", Done: ptr(true)}, // B is active
		{Type: AssertTask, ID: "A", Done: ptr(true)}, // passes
		{Type: AssertHistory, CanRedo: ptr(true)},    // nothing undone
	})
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "assertion 0 (lanes, replica main):")
	assert.Contains(t, errs[0], `current: want "A", got "B"`)
	assert.Contains(t, errs[1], "assertion 1 (task, replica main):")
	assert.Contains(t, errs[2], "assertion 3 (history, replica main):")
}

func TestEvaluate_UnknownReplica(t *testing.T) {
	h := fixtureHarness(t)

	errs := EvaluateAssertions(h, []Assertion{
		{Type: AssertLanes, Replica: "ghost", Current: ptr("")},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `replica "ghost" never appeared in the flow`)
}

func TestAssertLanes_Pass(t *testing.T) {
	st := fixtureState(t)

	err := assertLanes(st, Assertion{
		Current:   ptr("B"),
		Woken:     ptr([]string{}),
		Ready:     ptr([]string{}),
		Snoozed:   ptr([]string{"C"}),
		Completed: ptr([]string{"A"}),
		Deleted:   ptr([]string{}),
	})
	assert.NoError(t, err)
}

func TestAssertLanes_OmittedLanesNotChecked(t *testing.T) {
	st := fixtureState(t)

	// Only the focus slot is pinned; the populated snoozed and completed
	// lanes must not trip the check.
	assert.NoError(t, assertLanes(st, Assertion{Current: ptr("B")}))
}

func TestAssertLanes_CurrentMismatch(t *testing.T) {
	st := fixtureState(t)

	err := assertLanes(st, Assertion{Current: ptr("C")})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "current", ae.Field)
	assert.Contains(t, err.Error(), `current: want "C", got "B"`)
}

func TestAssertLanes_LaneMismatch(t *testing.T) {
	st := fixtureState(t)

	err := assertLanes(st, Assertion{Snoozed: ptr([]string{"C", "X"})})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "snoozed", ae.Field)
}

func TestAssertLanes_EmptyMeansEmpty(t *testing.T) {
	st := fixtureState(t)

	// An explicit empty list is a real expectation, not "skip".
	err := assertLanes(st, Assertion{Snoozed: ptr([]string{})})
	require.Error(t, err)
}

func TestAssertTask_Facts(t *testing.T) {
	st := fixtureState(t)

	assert.NoError(t, assertTask(st, Assertion{ID: "B", Title: ptr("Call the vendor"), Done: ptr(false)}))
	assert.NoError(t, assertTask(st, Assertion{ID: "C", Snoozing: ptr(true), SnoozeUntil: ptr(int64(1_600_000))}))

	err := assertTask(st, Assertion{ID: "B", Title: ptr("Call the plumber")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tasks[B].title")

	err = assertTask(st, Assertion{ID: "C", SnoozeUntil: ptr(int64(1))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tasks[C].snoozeUntil")
	assert.Contains(t, err.Error(), "got 1600000")
}

func TestAssertTask_Exists(t *testing.T) {
	st := fixtureState(t)

	assert.NoError(t, assertTask(st, Assertion{ID: "A", Exists: ptr(true)}))
	assert.NoError(t, assertTask(st, Assertion{ID: "Z", Exists: ptr(false)}))

	err := assertTask(st, Assertion{ID: "Z", Exists: ptr(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want present, got absent")
}

func TestAssertTask_FactOnMissingRecord(t *testing.T) {
	st := fixtureState(t)

	// Checking a fact on a record that does not exist is a failure, not a
	// silent pass.
	err := assertTask(st, Assertion{ID: "Z", Done: ptr(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want a record, got absent")
}

func TestAssertHistory(t *testing.T) {
	h := fixtureHarness(t)
	eng := h.replicas["main"]

	assert.NoError(t, assertHistory(eng, Assertion{CanUndo: ptr(true), CanRedo: ptr(false)}))

	err := assertHistory(eng, Assertion{CanRedo: ptr(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canRedo: want true, got false")

	// One undo opens the redo side.
	_, ok := eng.Undo()
	require.True(t, ok)
	assert.NoError(t, assertHistory(eng, Assertion{CanUndo: ptr(true), CanRedo: ptr(true)}))
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{Field: "ready", Expected: "[A]", Actual: "[B]"}
	assert.Equal(t, "ready: want [A], got [B]", err.Error())
}
