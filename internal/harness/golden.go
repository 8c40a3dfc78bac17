package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/focal/internal/state"
)

// TraceSnapshot is the canonical-JSON form of one scenario execution,
// compared byte-for-byte against its golden file.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenarioName"`
	Trace        []TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario, reports every expectation and
// integrity failure on t, and compares the canonical trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The trace uses the same RFC 8785 canonicalization as document digests, so
// a golden diff is a real behavioral diff, never a key-order accident.
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("run scenario %q: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result's trace against the golden file for
// scenarioName. Useful when the caller already ran the scenario and wants
// the comparison alone.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace}
	traceJSON, err := state.CanonicalizeJSON(snapshot)
	if err != nil {
		t.Fatalf("canonicalize trace for %q: %v", scenarioName, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
}
