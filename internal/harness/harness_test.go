package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return s
}

func TestRun_Fixtures(t *testing.T) {
	for _, name := range []string{"propagation", "circular", "copy_undo"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/copy_undo.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Snapshot(s, first)
	require.NoError(t, err)
	b, err := Snapshot(s, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ExpectMismatch(t *testing.T) {
	s := mustParse(t, `
name: wrong
description: "expectations that do not hold"
steps:
  - op: eval
    cell: A1
    formula: "=2*3"
    expect:
      updates: { A1: 7 }
  - op: eval
    cell: A2
    formula: "=1+"
    expect:
      error: CIRCULAR_REF
  - op: query
    cell: A1
    expect:
      formula: "=3*2"
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "steps[0] eval: updates")
	assert.Contains(t, result.Errors[1], `error: expected "CIRCULAR_REF", got "SYNTAX"`)
	assert.Contains(t, result.Errors[2], `formula: expected "=3*2", got "=2*3"`)
}

func TestRun_UnexpectedError(t *testing.T) {
	s := mustParse(t, `
name: bad
description: "a step without expect must succeed"
steps:
  - op: eval
    cell: A0
    formula: "1"
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"steps[0] eval: unexpected error SYNTAX"}, result.Errors)
	assert.Equal(t, "SYNTAX", result.Trace[0].Error)
}

func TestRun_DivisionByZero(t *testing.T) {
	s := mustParse(t, `
name: div
description: "division by zero yields a non-finite value"
steps:
  - op: eval
    cell: A1
    formula: "=1/0"
  - op: eval
    cell: B1
    formula: "=A1-A1"
assertions:
  - type: cell_value
    cell: A1
    value: .inf
  - type: cell_value
    cell: B1
    value: .nan
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	data, err := Snapshot(s, result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"A1": null`)
}

func TestRun_ClearAndUndo(t *testing.T) {
	s := mustParse(t, `
name: clear
description: "clear empties the sheet and cannot be undone"
setup:
  - id: A1
    formula: "1"
  - id: B1
    formula: "=A1"
steps:
  - op: clear
  - op: undo
    expect:
      restored: []
assertions:
  - type: cell_count
    count: 0
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Cells)
}

func TestRun_SetupFailure(t *testing.T) {
	s := mustParse(t, `
name: setup
description: "setup must evaluate"
setup:
  - id: A1
    formula: "=A1"
steps:
  - op: undo
`)

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute setup")
}
