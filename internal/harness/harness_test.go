package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/focal/internal/state"
)

func ptr[T any](v T) *T { return &v }

// TestScenarios runs every YAML scenario under testdata/scenarios and
// compares its trace against the golden file of the same name. Regenerate
// goldens with: go test ./internal/harness -update
func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarioDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			RunWithGolden(t, sc)
		})
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "A single add takes focus",
		Steps: []Step{
			{Op: OpAdd, ID: "A", Title: "Water the plants"},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Current: ptr("A")},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 1)
	ev := result.Trace[0]
	assert.Equal(t, OpAdd, ev.Op)
	assert.Equal(t, DefaultReplica, ev.Replica)
	assert.False(t, ev.NoOp)
	require.NotNil(t, ev.Doc)
	assert.Equal(t, int64(1), ev.Doc.Rev)
	assert.Equal(t, int64(DefaultStartMs), ev.Doc.UpdatedAt)
	assert.Equal(t, "A", ev.Doc.Current)
	assert.Empty(t, ev.Doc.Ready)
}

func TestRun_StartMsSetsClockOrigin(t *testing.T) {
	scenario := &Scenario{
		Name:        "custom_origin",
		Description: "start_ms positions the scripted clock",
		StartMs:     5_000_000,
		Steps: []Step{
			{Op: OpAdd, ID: "A", Title: "Water the plants"},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Current: ptr("A")},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, int64(5_000_000), result.Trace[0].Doc.UpdatedAt)
}

func TestRun_NoopStepTraced(t *testing.T) {
	// Completing with no focus changes nothing; the trace must say so.
	scenario := &Scenario{
		Name:        "noop",
		Description: "Complete with an empty focus slot",
		Steps: []Step{
			{Op: OpComplete},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Current: ptr("")},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)

	require.Len(t, result.Trace, 1)
	assert.True(t, result.Trace[0].NoOp)
	assert.Equal(t, int64(0), result.Trace[0].Doc.Rev)
}

func TestRun_AdvanceEventCarriesNoDocument(t *testing.T) {
	scenario := &Scenario{
		Name:        "advance",
		Description: "Advance moves the clock and touches no replica",
		Steps: []Step{
			{Op: OpAdd, ID: "A", Title: "Water the plants"},
			{Op: OpAdvance, Ms: 1500},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Current: ptr("A")},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)

	require.Len(t, result.Trace, 2)
	ev := result.Trace[1]
	assert.Equal(t, OpAdvance, ev.Op)
	assert.Empty(t, ev.Replica)
	assert.Nil(t, ev.Doc)
	assert.Equal(t, int64(1500), ev.Args["ms"])
}

func TestRun_ExpectWokenMismatch(t *testing.T) {
	// Nothing is snoozed, so a tick expecting one wake must fail the result
	// without failing the run.
	scenario := &Scenario{
		Name:        "woken_mismatch",
		Description: "Tick that wakes fewer tasks than expected",
		Steps: []Step{
			{Op: OpAdd, ID: "A", Title: "Water the plants"},
			{Op: OpTick, ExpectWoken: ptr(1)},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Current: ptr("A")},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "woke 0, want 1")
}

func TestRun_ExpectNoopViolation(t *testing.T) {
	scenario := &Scenario{
		Name:        "noop_violation",
		Description: "A step marked expect_noop that changes the document",
		Steps: []Step{
			{Op: OpAdd, ID: "A", Title: "Water the plants", ExpectNoop: true},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Current: ptr("A")},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected a no-op")
}

func TestRun_UnknownOpFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_op",
		Description: "An op the flow cannot dispatch is a harness fault",
		Steps: []Step{
			{Op: "explode"},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Current: ptr("")},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown op "explode"`)
	assert.Contains(t, err.Error(), "step 0")
}

func TestRun_BadDurationFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_duration",
		Description: "A snooze duration the flow cannot parse",
		Steps: []Step{
			{Op: OpAdd, ID: "A", Title: "Water the plants"},
			{Op: OpSnooze, Duration: "soonish"},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Current: ptr("A")},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse duration")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "determinism",
		Description: "Two runs of the same flow produce identical traces",
		Steps: []Step{
			{Op: OpAdd, ID: "A", Title: "Water the plants"},
			{Op: OpAdd, ID: "B", Title: "Call the vendor"},
			{Op: OpSnooze, Duration: "10m"},
			{Op: OpAdvance, Ms: 600_000},
			{Op: OpTick, ExpectWoken: ptr(1)},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Woken: ptr([]string{"B"})},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, first.Pass)
	assert.True(t, second.Pass)

	a, err := state.CanonicalizeJSON(first.Trace)
	require.NoError(t, err)
	b, err := state.CanonicalizeJSON(second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ReplicasAreIndependent(t *testing.T) {
	scenario := &Scenario{
		Name:        "independence",
		Description: "Replicas share the clock but nothing else",
		Steps: []Step{
			{Op: OpAdd, Replica: "r1", ID: "A", Title: "Water the plants"},
			{Op: OpAdd, Replica: "r2", ID: "B", Title: "Call the vendor"},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Replica: "r1", Current: ptr("A"), Ready: ptr([]string{})},
			{Type: AssertLanes, Replica: "r2", Current: ptr("B"), Ready: ptr([]string{})},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	// Each replica's first write is rev 1 of its own document.
	assert.Equal(t, int64(1), result.Trace[0].Doc.Rev)
	assert.Equal(t, int64(1), result.Trace[1].Doc.Rev)
}

func TestRun_ReconcileWithQuietRemoteIsNoop(t *testing.T) {
	// A remote that brings no new facts must not disturb the local session,
	// and in particular must not reset its undo history.
	scenario := &Scenario{
		Name:        "quiet_remote",
		Description: "Reconcile against an untouched replica",
		Steps: []Step{
			{Op: OpAdd, ID: "A", Title: "Water the plants"},
			{Op: OpReconcile, With: "other", ExpectNoop: true},
		},
		Assertions: []Assertion{
			{Type: AssertLanes, Current: ptr("A")},
			{Type: AssertHistory, CanUndo: ptr(true), CanRedo: ptr(false)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 2)
	assert.True(t, result.Trace[1].NoOp)
}

func TestRun_FullWorkflow(t *testing.T) {
	// One sitting, most of the surface: capture, snooze, wake, swap, focus
	// steal, demote, restore, delete. Every intermediate document passes the
	// integrity check or the run reports it.
	scenario := &Scenario{
		Name:        "full_workflow",
		Description: "A realistic session across the whole operation surface",
		Steps: []Step{
			{Op: OpAdd, ID: "A", Title: "Reply to the auditor"},
			{Op: OpAdd, ID: "B", Title: "Rotate the API keys"},
			{Op: OpAdd, ID: "C", Title: "Draft the postmortem"},
			{Op: OpSnooze, Duration: "15m"},
			{Op: OpAdvance, Ms: 900_000},
			{Op: OpTick, ExpectWoken: ptr(1)},
			{Op: OpSwap},
			{Op: OpComplete},
			{Op: OpFocus, ID: "B"},
			{Op: OpDemote},
			{Op: OpRestore, ID: "C"},
			{Op: OpDelete},
		},
		Assertions: []Assertion{
			{
				Type:      AssertLanes,
				Current:   ptr("B"),
				Woken:     ptr([]string{}),
				Ready:     ptr([]string{"C"}),
				Snoozed:   ptr([]string{}),
				Completed: ptr([]string{}),
				Deleted:   ptr([]string{"A"}),
			},
			{Type: AssertTask, ID: "C", Exists: ptr(true), Done: ptr(false), Snoozing: ptr(false)},
			{Type: AssertTask, ID: "A", Exists: ptr(false)},
			{Type: AssertHistory, CanUndo: ptr(true), CanRedo: ptr(false)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 12)

	// Snoozing the focused task refills the slot from the ready head.
	afterSnooze := result.Trace[3].Doc
	assert.Equal(t, "A", afterSnooze.Current)
	assert.Equal(t, []string{"C"}, afterSnooze.Snoozed)

	// The expired snooze joined the wake queue without stealing focus.
	afterTick := result.Trace[5].Doc
	assert.Equal(t, "A", afterTick.Current)
	assert.Equal(t, []string{"C"}, afterTick.Woken)
	assert.Equal(t, 1, result.Trace[5].Woken)

	// Deleting the focus refilled the slot and left a tombstone behind.
	final := result.Trace[11].Doc
	assert.Equal(t, "B", final.Current)
	assert.Equal(t, []string{"A"}, final.Deleted)
	assert.Equal(t, int64(11), final.Rev)
}

func TestResult_AddError(t *testing.T) {
	result := NewResult()
	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)

	result.AddError("first failure")
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "first failure", result.Errors[0])

	result.AddError("second failure")
	assert.Len(t, result.Errors, 2)
}
