package harness

import "github.com/roach88/focal/internal/state"

// DocView is a document's observable arrangement at one trace point: the
// write metadata header and every lane's exact contents. Task records are
// deliberately not snapshotted; lane membership plus the per-step integrity
// check pins them down without bloating the golden files.
type DocView struct {
	Rev       int64    `json:"rev"`
	UpdatedAt int64    `json:"updatedAt"`
	Current   string   `json:"current"`
	Woken     []string `json:"woken"`
	Ready     []string `json:"ready"`
	Snoozed   []string `json:"snoozed"`
	Completed []string `json:"completed"`
	Deleted   []string `json:"deleted"`
}

// TraceEvent records one step's observable outcome. Advance steps carry no
// document view; every other step snapshots the replica it touched.
type TraceEvent struct {
	Op      string         `json:"op"`
	Replica string         `json:"replica,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	NoOp    bool           `json:"noOp,omitempty"`
	Woken   int            `json:"woken,omitempty"`
	Doc     *DocView       `json:"doc,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true while no expectation, assertion, or integrity check has
	// failed.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in flow order. Golden comparison
	// serializes exactly this.
	Trace []TraceEvent `json:"trace"`

	// Errors collects every failure message. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure message and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddAdvanceTrace records a clock advance.
func (r *Result) AddAdvanceTrace(ms int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Op:   OpAdvance,
		Args: map[string]any{"ms": ms},
	})
}

// AddStepTrace records an operation step and the document it produced.
func (r *Result) AddStepTrace(step Step, replica string, st *state.State, woken int, noop bool) {
	r.Trace = append(r.Trace, TraceEvent{
		Op:      step.Op,
		Replica: replica,
		Args:    stepArgs(step),
		NoOp:    noop,
		Woken:   woken,
		Doc:     docView(st),
	})
}

// stepArgs extracts the arguments a step actually used, keeping trace events
// minimal and byte-stable.
func stepArgs(step Step) map[string]any {
	args := map[string]any{}
	if step.ID != "" {
		args["id"] = step.ID
	}
	if step.Title != "" {
		args["title"] = step.Title
	}
	if step.Duration != "" {
		args["duration"] = step.Duration
	}
	if step.To != "" {
		args["to"] = step.To
	}
	if step.FromQueue {
		args["fromQueue"] = true
	}
	if step.With != "" {
		args["with"] = replicaName(step.With)
	}
	if len(step.Order) > 0 {
		args["order"] = step.Order
	}
	if len(args) == 0 {
		return nil
	}
	return args
}

// docView snapshots a document's lanes and header. Lane slices are copied
// so every event is self-contained, and empty lanes serialize as [] rather
// than null.
func docView(st *state.State) *DocView {
	return &DocView{
		Rev:       st.Rev,
		UpdatedAt: st.UpdatedAt,
		Current:   st.CurrentID,
		Woken:     append([]string{}, st.WokenQueue...),
		Ready:     append([]string{}, st.ReadyQueue...),
		Snoozed:   append([]string{}, st.SnoozedIDs...),
		Completed: append([]string{}, st.CompletedIDs...),
		Deleted:   append([]string{}, st.DeletedIDs...),
	}
}
