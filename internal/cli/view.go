package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/roach88/focal/internal/state"
)

// TaskView is the JSON shape of one task in command output.
type TaskView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Lane        string `json:"lane"`
	SnoozeUntil *int64 `json:"snoozeUntil,omitempty"`
	DoneAt      *int64 `json:"doneAt,omitempty"`
}

// StatusView is the JSON shape of the focus slot plus queue depths.
type StatusView struct {
	Current   *TaskView `json:"current,omitempty"`
	Woken     int       `json:"woken"`
	Ready     int       `json:"ready"`
	Snoozed   int       `json:"snoozed"`
	Completed int       `json:"completed"`
	Rev       int64     `json:"rev"`
}

// laneWord is the user-facing name of a lane, shorter than the document
// field names Lane.String returns.
func laneWord(l state.Lane) string {
	switch l {
	case state.LaneCurrent:
		return "current"
	case state.LaneWoken:
		return "woken"
	case state.LaneReady:
		return "ready"
	case state.LaneSnoozed:
		return "snoozed"
	case state.LaneCompleted:
		return "completed"
	default:
		return "none"
	}
}

func taskView(st *state.State, id string) *TaskView {
	t := st.Task(id)
	if t == nil {
		return nil
	}
	v := &TaskView{ID: t.ID, Title: t.Title, Lane: laneWord(st.LaneOf(id))}
	if t.Snoozed() {
		v.SnoozeUntil = t.SnoozeUntil
	}
	if t.Completed() {
		v.DoneAt = t.DoneAt
	}
	return v
}

func statusView(st *state.State) *StatusView {
	return &StatusView{
		Current:   taskView(st, st.CurrentID),
		Woken:     len(st.WokenQueue),
		Ready:     len(st.ReadyQueue),
		Snoozed:   len(st.SnoozedIDs),
		Completed: len(st.CompletedIDs),
		Rev:       st.Rev,
	}
}

// renderStatus prints the focus line and queue depths.
func renderStatus(w io.Writer, st *state.State) {
	if st.CurrentID == "" {
		fmt.Fprintln(w, "Nothing in focus.")
	} else {
		t := st.Task(st.CurrentID)
		fmt.Fprintf(w, "Focus: %s  %s\n", shortID(t.ID), t.Title)
	}
	fmt.Fprintf(w, "Queues: %d woken, %d ready, %d snoozed, %d done\n",
		len(st.WokenQueue), len(st.ReadyQueue), len(st.SnoozedIDs), len(st.CompletedIDs))
}

// renderTaskLine prints one queue member, with its wake deadline when it has
// one.
func renderTaskLine(w io.Writer, st *state.State, id string) {
	t := st.Task(id)
	if t == nil {
		fmt.Fprintf(w, "  %s  (missing record)\n", shortID(id))
		return
	}
	if t.Snoozed() {
		fmt.Fprintf(w, "  %s  %s  (wakes %s)\n", shortID(id), t.Title, formatWhen(*t.SnoozeUntil))
		return
	}
	fmt.Fprintf(w, "  %s  %s\n", shortID(id), t.Title)
}

// shortID abbreviates a task id for display. Commands accept any unambiguous
// prefix back, so the abbreviation stays usable.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatWhen renders an epoch-millisecond deadline in local time.
func formatWhen(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
