package harness

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is what a golden file records for a scenario.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Cells        any          `json:"cells"`
}

// Snapshot renders the golden form of a run: indented JSON with sorted map
// keys, so identical runs produce identical bytes.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(TraceSnapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
		Cells:        result.Cells,
	}, "", "  ")
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
