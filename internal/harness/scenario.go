package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultReplica is the replica a step acts on when it names none.
const DefaultReplica = "main"

// DefaultStartMs is the scripted clock origin when a scenario names none.
const DefaultStartMs = 1_000_000

// Scenario defines a conformance scenario: a scripted clock, a flow of
// operations across one or more replicas, and assertions on the final
// documents. Scenarios run against the real engine and merge code paths;
// nothing is stubbed.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains the behavioral rule this scenario validates.
	Description string `yaml:"description"`

	// StartMs is the scripted clock origin in epoch milliseconds.
	// Defaults to DefaultStartMs. The clock only moves on advance steps.
	StartMs int64 `yaml:"start_ms,omitempty"`

	// Steps is the operation flow, run in order. Replicas come into being
	// on first mention; each is an engine over an empty document whose
	// client id is the replica name.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final documents after the flow completes.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation in a scenario flow.
type Step struct {
	// Op names the operation; see the Op constants.
	Op string `yaml:"op"`

	// Replica names the document the step acts on. Empty means DefaultReplica.
	Replica string `yaml:"replica,omitempty"`

	// ID is the task id the step targets. For add it is the id the new task
	// receives; scripted ids keep traces byte-stable across runs.
	ID string `yaml:"id,omitempty"`

	// Title is the new task's title (add only).
	Title string `yaml:"title,omitempty"`

	// Duration is the snooze duration as a Go duration string ("25m").
	// Empty means quick defer.
	Duration string `yaml:"duration,omitempty"`

	// To is the move destination: "wake", "ready", or "ready-head".
	To string `yaml:"to,omitempty"`

	// FromQueue selects the queue-reach focus variant: the displaced task
	// waits at the wake tail instead of resuming from the head.
	FromQueue bool `yaml:"from_queue,omitempty"`

	// Ms is how far an advance step moves the scripted clock.
	Ms int64 `yaml:"ms,omitempty"`

	// With names the other replica for merge and reconcile.
	With string `yaml:"with,omitempty"`

	// Order is the arrangement hint for reorder_woken and reorder_ready.
	Order []string `yaml:"order,omitempty"`

	// ExpectWoken asserts how many tasks a tick woke.
	ExpectWoken *int `yaml:"expect_woken,omitempty"`

	// ExpectNoop asserts the step left the document untouched.
	ExpectNoop bool `yaml:"expect_noop,omitempty"`
}

// Step operations.
const (
	OpAdd          = "add"
	OpComplete     = "complete"
	OpSnooze       = "snooze"
	OpTick         = "tick"
	OpAdvance      = "advance"
	OpMove         = "move"
	OpFocus        = "focus"
	OpDemote       = "demote"
	OpSwap         = "swap"
	OpDelete       = "delete"
	OpRestore      = "restore"
	OpClearHistory = "clear_history"
	OpReorderWoken = "reorder_woken"
	OpReorderReady = "reorder_ready"
	OpUndo         = "undo"
	OpRedo         = "redo"
	OpMerge        = "merge"
	OpReconcile    = "reconcile"
)

// Move destinations.
const (
	MoveWake      = "wake"
	MoveReady     = "ready"
	MoveReadyHead = "ready-head"
)

// Assertion validates one aspect of a final document.
type Assertion struct {
	// Type is "lanes", "task", or "history".
	Type string `yaml:"type"`

	// Replica names the document under assertion. Empty means DefaultReplica.
	Replica string `yaml:"replica,omitempty"`

	// Lane expectations ("lanes"). Omitted lanes are not checked; an empty
	// list checks for emptiness. Current is a pointer so "expect no focus"
	// (current: "") and "don't check" stay distinct.
	Current   *string   `yaml:"current,omitempty"`
	Woken     *[]string `yaml:"woken,omitempty"`
	Ready     *[]string `yaml:"ready,omitempty"`
	Snoozed   *[]string `yaml:"snoozed,omitempty"`
	Completed *[]string `yaml:"completed,omitempty"`
	Deleted   *[]string `yaml:"deleted,omitempty"`

	// Task expectations ("task"): ID selects the record, the pointers below
	// check individual facts. Subset match; omitted facts are not checked.
	ID          string  `yaml:"id,omitempty"`
	Exists      *bool   `yaml:"exists,omitempty"`
	Title       *string `yaml:"title,omitempty"`
	Done        *bool   `yaml:"done,omitempty"`
	Snoozing    *bool   `yaml:"snoozing,omitempty"`
	SnoozeUntil *int64  `yaml:"snooze_until,omitempty"`

	// History expectations ("history").
	CanUndo *bool `yaml:"can_undo,omitempty"`
	CanRedo *bool `yaml:"can_redo,omitempty"`
}

// Assertion type constants.
const (
	AssertLanes   = "lanes"
	AssertTask    = "task"
	AssertHistory = "history"
)

// LoadScenario reads and parses a scenario YAML file. Returns an error if
// the file is missing, malformed, contains unknown fields (typos), or fails
// structural validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarioDir loads every .yaml/.yml scenario under dir, sorted by file
// name so suite order is stable.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// replicaName resolves an optional replica reference to its effective name.
func replicaName(name string) string {
	if name == "" {
		return DefaultReplica
	}
	return name
}

// validateScenario checks the required fields and per-op argument shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.StartMs < 0 {
		return fmt.Errorf("start_ms must not be negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	// Ids handed to add are scripted per replica; a duplicate within one
	// replica would silently overwrite the first record.
	added := map[string]map[string]bool{}
	for i, step := range s.Steps {
		if err := validateStep(i, &step, added); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step, added map[string]map[string]bool) error {
	if step.ExpectWoken != nil && step.Op != OpTick {
		return fmt.Errorf("steps[%d]: expect_woken only applies to tick", index)
	}

	switch step.Op {
	case OpAdd:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: add requires an id", index)
		}
		if strings.TrimSpace(step.Title) == "" {
			return fmt.Errorf("steps[%d]: add requires a title", index)
		}
		replica := replicaName(step.Replica)
		if added[replica] == nil {
			added[replica] = map[string]bool{}
		}
		if added[replica][step.ID] {
			return fmt.Errorf("steps[%d]: duplicate add id %q on replica %q", index, step.ID, replica)
		}
		added[replica][step.ID] = true
	case OpComplete, OpDemote, OpSwap, OpDelete, OpClearHistory, OpTick, OpUndo, OpRedo:
		// No required arguments.
	case OpSnooze:
		if step.Duration != "" {
			if _, err := time.ParseDuration(step.Duration); err != nil {
				return fmt.Errorf("steps[%d]: bad duration %q: %w", index, step.Duration, err)
			}
		}
	case OpAdvance:
		if step.Ms <= 0 {
			return fmt.Errorf("steps[%d]: advance requires ms > 0", index)
		}
	case OpMove:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: move requires an id", index)
		}
		switch step.To {
		case MoveWake, MoveReady, MoveReadyHead:
		default:
			return fmt.Errorf("steps[%d]: move destination must be %q, %q, or %q", index, MoveWake, MoveReady, MoveReadyHead)
		}
	case OpFocus, OpRestore:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: %s requires an id", index, step.Op)
		}
	case OpReorderWoken, OpReorderReady:
		if len(step.Order) == 0 {
			return fmt.Errorf("steps[%d]: %s requires an order hint", index, step.Op)
		}
	case OpMerge, OpReconcile:
		if step.With == "" {
			return fmt.Errorf("steps[%d]: %s requires a with replica", index, step.Op)
		}
		if replicaName(step.With) == replicaName(step.Replica) {
			return fmt.Errorf("steps[%d]: %s cannot target the step's own replica", index, step.Op)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertLanes:
		if a.Current == nil && a.Woken == nil && a.Ready == nil &&
			a.Snoozed == nil && a.Completed == nil && a.Deleted == nil {
			return fmt.Errorf("assertions[%d]: lanes assertion checks nothing", index)
		}
	case AssertTask:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: task assertion requires an id", index)
		}
		if a.Exists == nil && a.Title == nil && a.Done == nil &&
			a.Snoozing == nil && a.SnoozeUntil == nil {
			return fmt.Errorf("assertions[%d]: task assertion checks nothing", index)
		}
	case AssertHistory:
		if a.CanUndo == nil && a.CanRedo == nil {
			return fmt.Errorf("assertions[%d]: history assertion checks nothing", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
