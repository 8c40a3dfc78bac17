package harness

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/focal/internal/clock"
	"github.com/roach88/focal/internal/engine"
	"github.com/roach88/focal/internal/merge"
	"github.com/roach88/focal/internal/state"
	"github.com/roach88/focal/internal/testutil"
)

// Harness executes one scenario: a shared scripted clock, one engine per
// replica, and a trace of every step's observable outcome. Replicas share
// the clock but stamp with their own client ids, so cross-replica ordering
// in a scenario is exactly as scripted.
type Harness struct {
	clock    *testutil.Clock
	replicas map[string]*engine.Engine
	adds     map[string][]string
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Every replica starts from an empty document. Steps drive the real engine
// code paths; merge and reconcile steps fold real documents through the
// production algorithms and adopt the result. After every step the touched
// document is re-checked against the structural invariants, so a violation
// is pinned to the exact step that introduced it.
//
// The returned error covers harness faults only (an op the flow cannot
// dispatch); expectation and integrity failures land in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{
		clock:    testutil.NewClock(startMs(scenario)),
		replicas: map[string]*engine.Engine{},
		adds:     scriptedAdds(scenario),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	for _, msg := range EvaluateAssertions(h, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func startMs(scenario *Scenario) int64 {
	if scenario.StartMs > 0 {
		return scenario.StartMs
	}
	return DefaultStartMs
}

// scriptedAdds collects, per replica, the task ids add steps will mint, in
// flow order. Each replica's engine gets a fixed generator over exactly
// that list; an add the scenario never declared panics instead of inventing
// an id the golden file has never seen.
func scriptedAdds(scenario *Scenario) map[string][]string {
	adds := map[string][]string{}
	for _, step := range scenario.Steps {
		if step.Op == OpAdd {
			name := replicaName(step.Replica)
			adds[name] = append(adds[name], step.ID)
		}
	}
	return adds
}

// replica returns the engine for name, creating it on first use.
func (h *Harness) replica(name string) *engine.Engine {
	if eng, ok := h.replicas[name]; ok {
		return eng
	}
	eng := engine.New(
		state.New(name),
		clock.NewAt(name, h.clock.Now),
		engine.WithIDGenerator(engine.NewFixedIDGenerator(h.adds[name]...)),
		engine.WithLogger(h.logger),
	)
	h.replicas[name] = eng
	return eng
}

func (h *Harness) executeStep(index int, step Step, result *Result) error {
	if step.Op == OpAdvance {
		h.clock.AdvanceMs(step.Ms)
		result.AddAdvanceTrace(step.Ms)
		return nil
	}

	name := replicaName(step.Replica)
	eng := h.replica(name)
	prev := eng.State()

	var next *state.State
	woken := 0
	switch step.Op {
	case OpAdd:
		next = eng.Add(step.Title)
	case OpComplete:
		if step.ID == "" {
			next = eng.CompleteCurrent()
		} else {
			next = eng.Complete(step.ID)
		}
	case OpSnooze:
		if step.Duration == "" {
			next = eng.Snooze(nil)
		} else {
			d, err := time.ParseDuration(step.Duration)
			if err != nil {
				return fmt.Errorf("parse duration %q: %w", step.Duration, err)
			}
			next = eng.Snooze(&d)
		}
	case OpTick:
		next, woken = eng.TickNow()
	case OpMove:
		switch step.To {
		case MoveWake:
			next = eng.MoveToWake(step.ID)
		case MoveReady:
			next = eng.MoveToReady(step.ID)
		case MoveReadyHead:
			next = eng.MoveToReadyHead(step.ID)
		default:
			return fmt.Errorf("unknown destination %q", step.To)
		}
	case OpFocus:
		if step.FromQueue {
			next = eng.FocusFromQueue(step.ID)
		} else {
			next = eng.Focus(step.ID)
		}
	case OpDemote:
		next = eng.DemoteToReadyHead()
	case OpSwap:
		next = eng.SwapWithWakeHead()
	case OpDelete:
		next = eng.DeleteCurrent()
	case OpRestore:
		next = eng.Restore(step.ID)
	case OpClearHistory:
		next = eng.ClearHistory()
	case OpReorderWoken:
		next = eng.ReorderWoken(step.Order)
	case OpReorderReady:
		next = eng.ReorderReady(step.Order)
	case OpUndo:
		next, _ = eng.Undo()
	case OpRedo:
		next, _ = eng.Redo()
	case OpMerge:
		merged := merge.Merge(prev, h.replica(replicaName(step.With)).State())
		next = eng.AdoptExternal(merged, "merge")
	case OpReconcile:
		rec := merge.Reconcile(prev, h.replica(replicaName(step.With)).State())
		next = rec
		if rec != prev {
			next = eng.AdoptExternal(rec, "reconcile")
		}
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	noop := next == prev
	if step.ExpectNoop && !noop {
		result.AddError(fmt.Sprintf("step %d (%s): expected a no-op, document changed", index, step.Op))
	}
	if step.ExpectWoken != nil && woken != *step.ExpectWoken {
		result.AddError(fmt.Sprintf("step %d (tick): woke %d, want %d", index, woken, *step.ExpectWoken))
	}
	for _, v := range state.Check(next) {
		result.AddError(fmt.Sprintf("step %d (%s): integrity: %v", index, step.Op, v))
	}

	result.AddStepTrace(step, name, next, woken, noop)
	return nil
}
