package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/formula"
)

// snapshot deep-copies the cell store for before/after comparisons.
func snapshot(s *Sheet) map[string]*cell {
	out := make(map[string]*cell, len(s.cells))
	for k, c := range s.cells {
		out[k] = c.clone()
	}
	return out
}

func mustEval(t *testing.T, s *Sheet, id, text string) Updates {
	t.Helper()
	u, err := s.Eval(id, text)
	require.NoError(t, err, "Eval(%s, %q)", id, text)
	return u
}

func queryValue(t *testing.T, s *Sheet, id string) float64 {
	t.Helper()
	r, err := s.Query(id)
	require.NoError(t, err)
	return r.Value
}

func dependentsOf(s *Sheet, id string) []string {
	c, ok := s.cells[id]
	if !ok {
		return nil
	}
	return c.sortedDependents()
}

// =============================================================================
// Eval
// =============================================================================

func TestEval_Arithmetic(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"7", 7},
		{"=7", 7},
		{"=1+2*3", 7},
		{"=(1+2)*3", 9},
		{"=10/4", 2.5},
		{"=5-2-1", 2},
		{"=5-(2-1)", 4},
		{"=-3", -3},
		{"=--3", 3},
		{"=-(2+3)*2", -10},
		{"=min(3,1,2)", 1},
		{"=max(3,-1)", 3},
		{"=MAX(4)", 4},
		{"=-min(1,2)+max(1,2,3)*2", 5},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s := New()
			u := mustEval(t, s, "A1", tt.text)
			assert.Equal(t, Updates{"A1": tt.want}, u)
			assert.Equal(t, tt.want, queryValue(t, s, "A1"))
		})
	}
}

func TestEval_PropagatesToDependents(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "5")
	assert.Equal(t, Updates{"B1": 10}, mustEval(t, s, "B1", "=A1*2"))

	u := mustEval(t, s, "A1", "7")
	assert.Equal(t, Updates{"A1": 7, "B1": 14}, u)
	assert.Equal(t, float64(14), queryValue(t, s, "B1"))
}

func TestEval_Chain(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "1")
	mustEval(t, s, "B1", "=A1+1")
	mustEval(t, s, "C1", "=B1+1")

	u := mustEval(t, s, "A1", "10")
	assert.Equal(t, Updates{"A1": 10, "B1": 11, "C1": 12}, u)
}

func TestEval_ReferenceToEmptyCellReadsZero(t *testing.T) {
	s := New()
	u := mustEval(t, s, "A1", "=B1+1")
	assert.Equal(t, Updates{"A1": 1}, u)

	r, err := s.Query("B1")
	require.NoError(t, err)
	assert.Equal(t, CellResult{}, r)
	assert.Equal(t, []string{"A1"}, dependentsOf(s, "B1"))
}

func TestEval_CaseInsensitiveIDs(t *testing.T) {
	s := New()
	mustEval(t, s, "a1", "5")
	mustEval(t, s, "b1", "=a1*2")

	r, err := s.Query("B1")
	require.NoError(t, err)
	assert.Equal(t, CellResult{Value: 10, Formula: "=A1*2"}, r)
}

func TestEval_ReplacingFormulaSeversOldEdges(t *testing.T) {
	s := New()
	mustEval(t, s, "B1", "1")
	mustEval(t, s, "A1", "=B1")
	assert.Equal(t, []string{"A1"}, dependentsOf(s, "B1"))

	mustEval(t, s, "A1", "=C1")
	assert.Empty(t, dependentsOf(s, "B1"))
	assert.Equal(t, []string{"A1"}, dependentsOf(s, "C1"))

	assert.Equal(t, Updates{"B1": 2}, mustEval(t, s, "B1", "2"))
}

func TestEval_DropsUnusedPlaceholders(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "=B1+C1")
	require.Contains(t, s.cells, "B1")
	require.Contains(t, s.cells, "C1")

	mustEval(t, s, "A1", "=C1")
	assert.NotContains(t, s.cells, "B1")
	assert.Contains(t, s.cells, "C1")

	mustEval(t, s, "A1", "5")
	assert.NotContains(t, s.cells, "C1")
	assert.Len(t, s.cells, 1)
}

func TestEval_SyntaxError(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "5")
	before := snapshot(s)

	for _, text := range []string{"", "=1+", "=foo(1)", "=A1 B1", `="x"`} {
		_, err := s.Eval("A1", text)
		require.Error(t, err, text)
		assert.True(t, IsSyntaxError(err), "%q: got %v", text, err)
		assert.Equal(t, before, snapshot(s))
	}
}

func TestEval_InvalidCellID(t *testing.T) {
	s := New()
	_, err := s.Eval("1A", "5")
	require.Error(t, err)
	assert.True(t, IsSyntaxError(err))
	assert.Empty(t, s.cells)
}

// =============================================================================
// Cycles
// =============================================================================

func TestEval_CircularRef(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "=B1+1")
	before := snapshot(s)

	_, err := s.Eval("B1", "=A1+1")
	require.Error(t, err)
	assert.True(t, IsCircularRefError(err))
	assert.Contains(t, err.Error(), "circular ref involving")

	assert.Equal(t, before, snapshot(s))

	a1, err := s.Query("A1")
	require.NoError(t, err)
	assert.Equal(t, CellResult{Value: 1, Formula: "=B1+1"}, a1)

	b1, err := s.Query("B1")
	require.NoError(t, err)
	assert.Equal(t, CellResult{}, b1)
	assert.Empty(t, dependentsOf(s, "A1"))
}

func TestEval_SelfReference(t *testing.T) {
	s := New()
	_, err := s.Eval("A1", "=A1+1")
	require.Error(t, err)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrCodeCircularRef, e.Code)
	assert.Equal(t, "A1", e.CellID)
	assert.Empty(t, s.cells)
}

func TestEval_LongCycle(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "=B1")
	mustEval(t, s, "B1", "=C1")
	mustEval(t, s, "C1", "=D1")
	before := snapshot(s)

	_, err := s.Eval("D1", "=min(A1,5)")
	require.Error(t, err)
	assert.True(t, IsCircularRefError(err))
	assert.Equal(t, before, snapshot(s))
}

// =============================================================================
// Diamonds
// =============================================================================

func TestEval_Diamond(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "1")
	mustEval(t, s, "B1", "=A1*2")
	mustEval(t, s, "C1", "=A1+10")
	mustEval(t, s, "D1", "=B1+C1")

	u := mustEval(t, s, "A1", "2")
	assert.Equal(t, Updates{"A1": 2, "B1": 4, "C1": 12, "D1": 16}, u)
	assert.Equal(t, float64(16), queryValue(t, s, "D1"))
}

func TestAffected_TopologicalOrder(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "1")
	mustEval(t, s, "B1", "=A1*2")
	mustEval(t, s, "C1", "=A1+10")
	mustEval(t, s, "D1", "=B1+C1")
	mustEval(t, s, "E1", "=D1+A1")

	order, err := s.affected(formula.MustCellID("A1"))
	require.NoError(t, err)

	var ids []string
	for _, id := range order {
		ids = append(ids, id.String())
	}
	assert.Equal(t, []string{"A1", "C1", "B1", "D1", "E1"}, ids)
}

// =============================================================================
// Query
// =============================================================================

func TestQuery_MissingCellDoesNotCreateState(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "5")
	before := snapshot(s)

	r, err := s.Query("Q7")
	require.NoError(t, err)
	assert.Equal(t, CellResult{}, r)
	assert.Equal(t, before, snapshot(s))
}

func TestQuery_InvalidID(t *testing.T) {
	_, err := New().Query("7Q")
	assert.True(t, IsSyntaxError(err))
}

// =============================================================================
// Delete
// =============================================================================

func TestDelete_RecomputesDependents(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "5")
	mustEval(t, s, "B1", "=A1+1")
	mustEval(t, s, "C1", "=B1*2")
	mustEval(t, s, "D1", "=A1*3")

	u, err := s.Delete("A1")
	require.NoError(t, err)
	assert.Equal(t, Updates{"B1": 1, "C1": 2, "D1": 0}, u)

	r, err := s.Query("A1")
	require.NoError(t, err)
	assert.Equal(t, CellResult{}, r)
	assert.Equal(t, []string{"B1", "D1"}, dependentsOf(s, "A1"))
}

func TestDelete_EmptyCell(t *testing.T) {
	s := New()
	u, err := s.Delete("A1")
	require.NoError(t, err)
	assert.Equal(t, Updates{}, u)

	mustEval(t, s, "B1", "=A1")
	u, err = s.Delete("A1")
	require.NoError(t, err)
	assert.Equal(t, Updates{}, u)
	assert.Equal(t, []string{"B1"}, dependentsOf(s, "A1"))
}

func TestDelete_SeversOwnEdges(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "1")
	mustEval(t, s, "B1", "=A1+C1")

	_, err := s.Delete("B1")
	require.NoError(t, err)

	assert.NotContains(t, s.cells, "B1")
	assert.NotContains(t, s.cells, "C1")
	assert.Empty(t, dependentsOf(s, "A1"))

	assert.Equal(t, Updates{"A1": 3}, mustEval(t, s, "A1", "3"))
}

func TestDelete_IsOneUndoUnit(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "5")
	mustEval(t, s, "B1", "=A1*2")
	mustEval(t, s, "C1", "=A1+B1")
	before := snapshot(s)

	_, err := s.Delete("A1")
	require.NoError(t, err)

	s.Undo()
	assert.Equal(t, before, snapshot(s))
	assert.Equal(t, float64(15), queryValue(t, s, "C1"))
}

// =============================================================================
// Copy
// =============================================================================

func TestCopy_ShiftsRelativeReferences(t *testing.T) {
	s := New()
	mustEval(t, s, "D1", "3")
	mustEval(t, s, "C2", "4")
	mustEval(t, s, "A1", "=B1+$D$1")

	u, err := s.Copy("B2", "A1")
	require.NoError(t, err)
	assert.Equal(t, Updates{"B2": 7}, u)

	r, err := s.Query("B2")
	require.NoError(t, err)
	assert.Equal(t, CellResult{Value: 7, Formula: "=C2+$D$1"}, r)
	assert.Equal(t, []string{"B2"}, dependentsOf(s, "C2"))
}

func TestCopy_OneColumnRight(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "=B1")

	_, err := s.Copy("B1", "A1")
	require.NoError(t, err)

	r, err := s.Query("B1")
	require.NoError(t, err)
	assert.Equal(t, "=C1", r.Formula)
}

func TestCopy_EmptySourceDeletesDest(t *testing.T) {
	s := New()
	mustEval(t, s, "B2", "4")
	mustEval(t, s, "C2", "=B2")

	u, err := s.Copy("B2", "Z9")
	require.NoError(t, err)
	assert.Equal(t, Updates{"C2": 0}, u)

	r, err := s.Query("B2")
	require.NoError(t, err)
	assert.Equal(t, CellResult{}, r)
}

func TestCopy_OffSheetReference(t *testing.T) {
	s := New()
	mustEval(t, s, "B1", "=A1")
	before := snapshot(s)

	_, err := s.Copy("A1", "B1")
	require.Error(t, err)
	assert.True(t, IsSyntaxError(err))
	assert.Equal(t, before, snapshot(s))
}

func TestCopy_CycleRollsBack(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "=A2+1")
	mustEval(t, s, "B2", "=B1")
	before := snapshot(s)

	// "=B1" one row up from B2 becomes "=A1" at A2, which A1 reads.
	_, err := s.Copy("A2", "B2")
	require.Error(t, err)
	assert.True(t, IsCircularRefError(err))
	assert.Equal(t, before, snapshot(s))
}

// =============================================================================
// Clear and Undo
// =============================================================================

func TestClear(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "1")
	mustEval(t, s, "B1", "=A1")

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Dump())
	assert.Empty(t, s.Undo())
	assert.Empty(t, s.cells)
}

func TestUndo_RevertsLastEval(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "5")
	mustEval(t, s, "B1", "=A1")
	before := snapshot(s)

	mustEval(t, s, "A1", "7")
	assert.Equal(t, float64(7), queryValue(t, s, "B1"))

	assert.Equal(t, []string{"A1", "B1"}, s.Undo())
	assert.Equal(t, before, snapshot(s))

	// single level: a second undo lands on the same state
	s.Undo()
	assert.Equal(t, before, snapshot(s))
}

func TestCommit_DiscardsUndoLog(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "5")
	mustEval(t, s, "B1", "=A1*2")
	before := snapshot(s)

	s.Commit()
	assert.Empty(t, s.Undo())
	assert.Equal(t, before, snapshot(s))

	mustEval(t, s, "A1", "6")
	assert.Equal(t, []string{"A1", "B1"}, s.Undo())
	assert.Equal(t, before, snapshot(s))
}

func TestUndo_RemovesCreatedCells(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "=B1+C1")

	assert.Equal(t, []string{"A1", "B1", "C1"}, s.Undo())
	assert.Empty(t, s.cells)
}

func TestUndo_AfterFailedEvalRestoresEdges(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "1")
	mustEval(t, s, "B1", "=A1+C1")
	mustEval(t, s, "C1", "=D1")
	before := snapshot(s)

	_, err := s.Eval("D1", "=B1")
	require.Error(t, err)

	s.Undo()
	assert.Equal(t, before, snapshot(s))
	assert.Equal(t, []string{"B1"}, dependentsOf(s, "A1"))
	assert.Equal(t, []string{"C1"}, dependentsOf(s, "D1"))
}

func TestLen(t *testing.T) {
	s := New()
	mustEval(t, s, "A1", "=B1+C1")
	mustEval(t, s, "B1", "2")
	assert.Equal(t, 2, s.Len())
}

// =============================================================================
// Internal consistency
// =============================================================================

func TestApply_Panics(t *testing.T) {
	assert.Panics(t, func() { apply("^", []float64{1, 2}) })
	assert.Panics(t, func() { apply("+", []float64{1}) })
	assert.Panics(t, func() { apply("min", nil) })
}
