package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string             // Assertion type for categorization
	Expected string             // Human-readable expected outcome
	Actual   string             // Human-readable actual outcome
	Cells    []spreadsheet.Cell // Final sheet for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFinal sheet:\n")
	for _, c := range e.Cells {
		fmt.Fprintf(&buf, "  %s %s = %s\n", c.ID, c.Formula, c.Value)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the final cells in
// result and returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	for _, a := range assertions {
		if err := evaluate(result.Cells, a); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func evaluate(cells []spreadsheet.Cell, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Cells: cells}
	}

	if a.Type == AssertCellCount {
		if len(cells) != *a.Count {
			return fail(fmt.Sprintf("%d cells", *a.Count), fmt.Sprintf("%d cells", len(cells)))
		}
		return nil
	}

	id := canonical(a.Cell)
	pos := slices.IndexFunc(cells, func(c spreadsheet.Cell) bool { return c.ID == id })

	switch a.Type {
	case AssertCellValue:
		var got float64
		if pos >= 0 {
			got = float64(cells[pos].Value)
		}
		if !sameValue(*a.Value, got) {
			return fail(fmt.Sprintf("%s = %v", id, *a.Value), fmt.Sprintf("%s = %v", id, got))
		}

	case AssertCellFormula:
		if pos < 0 {
			return fail(fmt.Sprintf("%s has formula %s", id, a.Formula), id+" is empty")
		}
		if cells[pos].Formula != a.Formula {
			return fail(fmt.Sprintf("%s has formula %s", id, a.Formula), fmt.Sprintf("%s has formula %s", id, cells[pos].Formula))
		}

	case AssertCellEmpty:
		if pos >= 0 {
			return fail(id+" is empty", fmt.Sprintf("%s has formula %s", id, cells[pos].Formula))
		}

	case AssertDumpBefore:
		other := canonical(a.Other)
		otherPos := slices.IndexFunc(cells, func(c spreadsheet.Cell) bool { return c.ID == other })
		if pos < 0 || otherPos < 0 {
			return fail(fmt.Sprintf("%s and %s in dump", id, other), "missing from dump")
		}
		if pos >= otherPos {
			return fail(fmt.Sprintf("%s before %s", id, other), fmt.Sprintf("%s at %d, %s at %d", id, pos, other, otherPos))
		}
	}

	return nil
}

func canonical(cellID string) string {
	if id, err := formula.NormalizeCellID(cellID); err == nil {
		return id
	}
	return cellID
}
