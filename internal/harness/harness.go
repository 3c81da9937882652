package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/spreadsheet"
	"github.com/roach88/gridcalc/internal/store"
	"github.com/roach88/gridcalc/internal/testutil"
)

// sheetName is the name every scenario sheet is stored under.
const sheetName = "scenario"

// Harness executes one scenario against a persistent sheet.
type Harness struct {
	store  *store.Store
	sheet  *spreadsheet.Sheet
	steps  *testutil.StepCounter
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and load an empty sheet
// 2. Evaluate setup cells
// 3. Execute steps, checking expect clauses
// 4. Rebuild the sheet from the database and compare
// 5. Evaluate assertions against the final sheet
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDs("op")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	sheet, err := spreadsheet.Load(ctx, st, sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to load sheet: %w", err)
	}

	h := &Harness{
		store:  st,
		sheet:  sheet,
		steps:  testutil.NewStepCounter(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	if _, err := sheet.Update(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		event := h.execute(ctx, step)
		result.Trace = append(result.Trace, event)
		for _, msg := range checkExpect(step, event) {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Op, msg))
		}
		h.logger.Info("step completed", "step", event.Step, "op", step.Op, "error", event.Error)
	}

	if err := h.verifyReplay(ctx); err != nil {
		result.AddError(err.Error())
	}

	result.Cells = sheet.Cells()
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// execute runs one step and records what it returned.
func (h *Harness) execute(ctx context.Context, step Step) TraceEvent {
	event := TraceEvent{
		Step:    h.steps.Next(),
		Op:      step.Op,
		Cell:    step.Cell,
		Formula: step.Formula,
		Src:     step.Src,
	}

	var (
		updates engine.Updates
		err     error
	)
	switch step.Op {
	case OpEval:
		updates, err = h.sheet.Eval(ctx, step.Cell, step.Formula)
	case OpDelete:
		updates, err = h.sheet.Delete(ctx, step.Cell)
	case OpCopy:
		updates, err = h.sheet.Copy(ctx, step.Cell, step.Src)
	case OpUndo:
		event.Restored, err = h.sheet.Undo(ctx)
	case OpClear:
		err = h.sheet.Clear(ctx)
	case OpQuery:
		var r engine.CellResult
		r, err = h.sheet.Query(step.Cell)
		if err == nil {
			v := spreadsheet.Value(r.Value)
			event.Value = &v
			event.Formula = r.Formula
		}
	}

	if err != nil {
		event.Error = string(engine.CodeOf(err))
		if event.Error == "" {
			event.Error = err.Error()
		}
		return event
	}
	if updates != nil {
		event.Updates = spreadsheet.Values(updates)
	}
	return event
}

// verifyReplay rebuilds the sheet from the store and compares it with the
// live sheet.
func (h *Harness) verifyReplay(ctx context.Context) error {
	replayed, err := spreadsheet.Load(ctx, h.store, sheetName)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	want, got := h.sheet.Cells(), replayed.Cells()
	if !slices.EqualFunc(want, got, sameCell) {
		return fmt.Errorf("replay: stored sheet rebuilds to %v, live sheet is %v", got, want)
	}
	return nil
}

func sameCell(a, b spreadsheet.Cell) bool {
	return a.ID == b.ID && a.Formula == b.Formula && sameValue(float64(a.Value), float64(b.Value))
}

// checkExpect compares a traced step with its expect clause. A step with no
// expect clause must not fail.
func checkExpect(step Step, event TraceEvent) []string {
	exp := step.Expect
	if exp == nil {
		if event.Error != "" {
			return []string{fmt.Sprintf("unexpected error %s", event.Error)}
		}
		return nil
	}

	var msgs []string
	if exp.Error != event.Error {
		msgs = append(msgs, fmt.Sprintf("error: expected %q, got %q", exp.Error, event.Error))
	}
	if exp.Updates != nil && !sameUpdates(exp.Updates, event.Updates) {
		msgs = append(msgs, fmt.Sprintf("updates: expected %v, got %v", exp.Updates, event.Updates))
	}
	if exp.Value != nil && (event.Value == nil || !sameValue(*exp.Value, float64(*event.Value))) {
		msgs = append(msgs, fmt.Sprintf("value: expected %v, got %v", *exp.Value, event.Value))
	}
	if exp.Formula != nil && *exp.Formula != event.Formula {
		msgs = append(msgs, fmt.Sprintf("formula: expected %q, got %q", *exp.Formula, event.Formula))
	}
	if exp.Restored != nil && !slices.Equal(exp.Restored, event.Restored) {
		msgs = append(msgs, fmt.Sprintf("restored: expected %v, got %v", exp.Restored, event.Restored))
	}
	return msgs
}

func sameUpdates(want map[string]float64, got map[string]spreadsheet.Value) bool {
	if len(want) != len(got) {
		return false
	}
	for _, id := range slices.Sorted(maps.Keys(want)) {
		v, ok := got[id]
		if !ok || !sameValue(want[id], float64(v)) {
			return false
		}
	}
	return true
}

// sameValue compares values with a small tolerance. Two NaNs are equal.
func sameValue(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(a))
}
