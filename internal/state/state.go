package state

import "slices"

// SchemaVersion is the document schema this build reads and writes. Imports
// carrying any other version are rejected before normalization.
const SchemaVersion = 1

// WriteMeta is the header stamped onto a document by every mutation:
// a logical-millisecond timestamp, a revision counter, and the id of the
// replica that wrote it. (UpdatedAt, Rev, ClientID) descending is the total
// order reconciliation uses to pick the newer of two documents.
type WriteMeta struct {
	Rev       int64
	UpdatedAt int64
	ClientID  string
}

// State is the whole focal document: every replica holds one, persists one,
// and exchanges one. Each task id lives in exactly one structural lane at a
// time; CompletedIDs and SnoozedIDs are derivable from task facts and are
// kept materialized for ordering only.
type State struct {
	Rev       int64  `json:"rev"`
	UpdatedAt int64  `json:"updatedAt"`
	ClientID  string `json:"clientId"`
	Version   int    `json:"version"`

	// CurrentID is the single task in focus; empty means nothing is.
	CurrentID string `json:"currentId,omitempty"`

	// WokenQueue holds tasks whose snooze expired, in wake order. It always
	// outranks ReadyQueue when the focus slot refills.
	WokenQueue []string `json:"wokenQueue"`

	// ReadyQueue holds runnable tasks in user-arranged order.
	ReadyQueue []string `json:"readyQueue"`

	// SnoozedIDs holds sleeping tasks ordered by (snoozeUntil, snoozeSeq).
	SnoozedIDs []string `json:"snoozedIds"`

	// CompletedIDs holds completed tasks, most recently completed first.
	CompletedIDs []string `json:"completedIds"`

	// DeletedIDs holds tombstones, sorted ascending. A tombstoned id never
	// returns, whatever any other replica still carries for it.
	DeletedIDs []string `json:"deletedIds"`

	Tasks map[string]*Task `json:"tasks"`

	// NextSnoozeSeq is the next tie-breaker to hand out. Monotonic: merges
	// take the max across replicas so a sequence number is never reissued.
	NextSnoozeSeq int64 `json:"nextSnoozeSeq"`
}

// New returns an empty document owned by clientID. Lanes are non-nil empty
// slices so the JSON form always carries arrays, never null.
func New(clientID string) *State {
	return &State{
		ClientID:      clientID,
		Version:       SchemaVersion,
		WokenQueue:    []string{},
		ReadyQueue:    []string{},
		SnoozedIDs:    []string{},
		CompletedIDs:  []string{},
		DeletedIDs:    []string{},
		Tasks:         map[string]*Task{},
		NextSnoozeSeq: 1,
	}
}

// Stamp applies freshly allocated write metadata to the document header.
func (s *State) Stamp(m WriteMeta) {
	s.Rev = m.Rev
	s.UpdatedAt = m.UpdatedAt
	s.ClientID = m.ClientID
}

// Meta returns the document's current write metadata.
func (s *State) Meta() WriteMeta {
	return WriteMeta{Rev: s.Rev, UpdatedAt: s.UpdatedAt, ClientID: s.ClientID}
}

// Task returns the record for id, or nil if the document has none.
func (s *State) Task(id string) *Task {
	return s.Tasks[id]
}

// Tombstoned reports whether id has been permanently deleted.
func (s *State) Tombstoned(id string) bool {
	_, ok := slices.BinarySearch(s.DeletedIDs, id)
	return ok
}

// AddTombstone records id as permanently deleted, keeping DeletedIDs sorted
// and duplicate-free.
func (s *State) AddTombstone(id string) {
	i, ok := slices.BinarySearch(s.DeletedIDs, id)
	if ok {
		return
	}
	s.DeletedIDs = slices.Insert(s.DeletedIDs, i, id)
}

// Lane identifies which structural lane holds a task id.
type Lane int

const (
	LaneNone Lane = iota
	LaneCurrent
	LaneWoken
	LaneReady
	LaneSnoozed
	LaneCompleted
)

// String returns the lane name as it appears in the document.
func (l Lane) String() string {
	switch l {
	case LaneCurrent:
		return "current"
	case LaneWoken:
		return "wokenQueue"
	case LaneReady:
		return "readyQueue"
	case LaneSnoozed:
		return "snoozedIds"
	case LaneCompleted:
		return "completedIds"
	default:
		return "none"
	}
}

// LaneOf returns the structural lane holding id, or LaneNone.
func (s *State) LaneOf(id string) Lane {
	switch {
	case id == "":
		return LaneNone
	case id == s.CurrentID:
		return LaneCurrent
	case slices.Contains(s.WokenQueue, id):
		return LaneWoken
	case slices.Contains(s.ReadyQueue, id):
		return LaneReady
	case slices.Contains(s.SnoozedIDs, id):
		return LaneSnoozed
	case slices.Contains(s.CompletedIDs, id):
		return LaneCompleted
	default:
		return LaneNone
	}
}
