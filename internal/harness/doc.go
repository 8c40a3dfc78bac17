// Package harness provides conformance testing for the focal scheduler.
//
// The harness loads YAML scenarios, drives the real engine through each
// step, and validates behavioral rules as executable contract tests. No
// part of the flow is stubbed: steps run the production transitions, merge
// and reconcile fold real documents, and the structural invariants are
// re-checked after every step so a violation is pinned to the step that
// introduced it.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario-name
//	description: "The behavioral rule this scenario validates"
//	start_ms: 1000000
//	steps:
//	  - op: add
//	    id: A
//	    title: "Draft the brief"
//	  - op: snooze
//	    duration: 5m
//	  - op: advance
//	    ms: 300000
//	  - op: tick
//	    expect_woken: 1
//	  - op: merge
//	    replica: r1
//	    with: r2
//	assertions:
//	  - type: lanes
//	    current: "A"
//	    ready: []
//	  - type: task
//	    id: A
//	    done: true
//
// Steps name a replica (default "main"); replicas come into being on first
// mention, each an engine over an empty document whose client id is the
// replica name. Add steps script the id the new task receives.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - lanes: verifies exact lane contents of a final document
//   - task: verifies per-task facts (title, completion, snooze)
//   - history: verifies undo/redo availability
//
// # Deterministic Testing
//
// All scenarios execute with a scripted clock (testutil.Clock) shared by
// every replica and fixed task id generators prescanned from the add steps.
// The same scenario produces byte-identical traces on every run, which is
// what makes golden comparison meaningful: the trace is canonicalized with
// the same RFC 8785 serialization documents use for digests.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/tick-wakes-due-snooze.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//
// Or, in a test, compare the trace against its golden file:
//
//	harness.RunWithGolden(t, scenario)
package harness
