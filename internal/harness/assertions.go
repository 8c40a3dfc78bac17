package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/state"
)

// AssertionError reports one failed expectation against a final document.
type AssertionError struct {
	Field    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: want %s, got %s", e.Field, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against the final documents and
// returns one message per failure.
func EvaluateAssertions(h *Harness, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.evaluate(a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s, replica %s): %v", i, a.Type, replicaName(a.Replica), err))
		}
	}
	return errs
}

func (h *Harness) evaluate(a Assertion) error {
	name := replicaName(a.Replica)
	eng, ok := h.replicas[name]
	if !ok {
		return fmt.Errorf("replica %q never appeared in the flow", name)
	}

	switch a.Type {
	case AssertLanes:
		return assertLanes(eng.State(), a)
	case AssertTask:
		return assertTask(eng.State(), a)
	case AssertHistory:
		return assertHistory(eng, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertLanes(st *state.State, a Assertion) error {
	if a.Current != nil && st.CurrentID != *a.Current {
		return &AssertionError{
			Field:    "current",
			Expected: fmt.Sprintf("%q", *a.Current),
			Actual:   fmt.Sprintf("%q", st.CurrentID),
		}
	}

	lanes := []struct {
		field string
		want  *[]string
		got   []string
	}{
		{"woken", a.Woken, st.WokenQueue},
		{"ready", a.Ready, st.ReadyQueue},
		{"snoozed", a.Snoozed, st.SnoozedIDs},
		{"completed", a.Completed, st.CompletedIDs},
		{"deleted", a.Deleted, st.DeletedIDs},
	}
	for _, lane := range lanes {
		if lane.want == nil {
			continue
		}
		if !slices.Equal(*lane.want, lane.got) {
			return &AssertionError{
				Field:    lane.field,
				Expected: fmt.Sprintf("%v", *lane.want),
				Actual:   fmt.Sprintf("%v", lane.got),
			}
		}
	}
	return nil
}

func assertTask(st *state.State, a Assertion) error {
	t := st.Task(a.ID)
	field := func(name string) string { return fmt.Sprintf("tasks[%s].%s", a.ID, name) }

	if a.Exists != nil && (t != nil) != *a.Exists {
		return &AssertionError{
			Field:    fmt.Sprintf("tasks[%s]", a.ID),
			Expected: existsWord(*a.Exists),
			Actual:   existsWord(t != nil),
		}
	}
	if t == nil {
		if a.Title != nil || a.Done != nil || a.Snoozing != nil || a.SnoozeUntil != nil {
			return &AssertionError{
				Field:    fmt.Sprintf("tasks[%s]", a.ID),
				Expected: "a record",
				Actual:   "absent",
			}
		}
		return nil
	}

	if a.Title != nil && t.Title != *a.Title {
		return &AssertionError{
			Field:    field("title"),
			Expected: fmt.Sprintf("%q", *a.Title),
			Actual:   fmt.Sprintf("%q", t.Title),
		}
	}
	if a.Done != nil && t.Completed() != *a.Done {
		return &AssertionError{
			Field:    field("done"),
			Expected: fmt.Sprintf("%t", *a.Done),
			Actual:   fmt.Sprintf("%t", t.Completed()),
		}
	}
	if a.Snoozing != nil && t.Snoozed() != *a.Snoozing {
		return &AssertionError{
			Field:    field("snoozing"),
			Expected: fmt.Sprintf("%t", *a.Snoozing),
			Actual:   fmt.Sprintf("%t", t.Snoozed()),
		}
	}
	if a.SnoozeUntil != nil {
		got := "unset"
		if t.SnoozeUntil != nil {
			got = fmt.Sprintf("%d", *t.SnoozeUntil)
		}
		if t.SnoozeUntil == nil || *t.SnoozeUntil != *a.SnoozeUntil {
			return &AssertionError{
				Field:    field("snoozeUntil"),
				Expected: fmt.Sprintf("%d", *a.SnoozeUntil),
				Actual:   got,
			}
		}
	}
	return nil
}

func assertHistory(eng *engine.Engine, a Assertion) error {
	if a.CanUndo != nil && eng.CanUndo() != *a.CanUndo {
		return &AssertionError{
			Field:    "canUndo",
			Expected: fmt.Sprintf("%t", *a.CanUndo),
			Actual:   fmt.Sprintf("%t", eng.CanUndo()),
		}
	}
	if a.CanRedo != nil && eng.CanRedo() != *a.CanRedo {
		return &AssertionError{
			Field:    "canRedo",
			Expected: fmt.Sprintf("%t", *a.CanRedo),
			Actual:   fmt.Sprintf("%t", eng.CanRedo()),
		}
	}
	return nil
}

func existsWord(exists bool) string {
	if exists {
		return "present"
	}
	return "absent"
}
