package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/spreadsheet"
)

func ptr[T any](v T) *T { return &v }

func sampleResult() *Result {
	r := NewResult()
	r.Cells = []spreadsheet.Cell{
		{ID: "A1", Formula: "5", Value: 5},
		{ID: "B1", Formula: "=A1*2", Value: 10},
	}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	msgs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertCellValue, Cell: "b1", Value: ptr(10.0)},
		{Type: AssertCellValue, Cell: "Z9", Value: ptr(0.0)},
		{Type: AssertCellFormula, Cell: "B1", Formula: "=A1*2"},
		{Type: AssertCellEmpty, Cell: "C1"},
		{Type: AssertCellCount, Count: ptr(2)},
		{Type: AssertDumpBefore, Cell: "A1", Other: "B1"},
	})
	assert.Empty(t, msgs)
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"value", Assertion{Type: AssertCellValue, Cell: "B1", Value: ptr(11.0)}, "Expected: B1 = 11"},
		{"formula", Assertion{Type: AssertCellFormula, Cell: "B1", Formula: "=A1*3"}, "Actual: B1 has formula =A1*2"},
		{"formula of empty", Assertion{Type: AssertCellFormula, Cell: "C1", Formula: "1"}, "Actual: C1 is empty"},
		{"empty", Assertion{Type: AssertCellEmpty, Cell: "A1"}, "Actual: A1 has formula 5"},
		{"count", Assertion{Type: AssertCellCount, Count: ptr(3)}, "Actual: 2 cells"},
		{"order", Assertion{Type: AssertDumpBefore, Cell: "B1", Other: "A1"}, "Expected: B1 before A1"},
		{"order missing", Assertion{Type: AssertDumpBefore, Cell: "B1", Other: "C1"}, "missing from dump"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, msgs, 1)
			assert.Contains(t, msgs[0], "Assertion failed: "+tt.assertion.Type)
			assert.Contains(t, msgs[0], tt.want)
			assert.Contains(t, msgs[0], "Final sheet:")
		})
	}
}
