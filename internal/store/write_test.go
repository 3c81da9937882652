package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/engine"
)

func TestApply_WritesAndReadsInOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Apply(ctx, "main", OpEval, []Change{{CellID: "B1", Formula: "=A1*2"}}))
	require.NoError(t, s.Apply(ctx, "main", OpEval, []Change{{CellID: "A1", Formula: "5"}}))

	pairs, err := s.ReadFormulas(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []engine.FormulaPair{
		{CellID: "B1", Formula: "=A1*2"},
		{CellID: "A1", Formula: "5"},
	}, pairs)
}

func TestApply_OverwriteMovesCellToEnd(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Apply(ctx, "main", OpEval, []Change{
		{CellID: "A1", Formula: "1"},
		{CellID: "B1", Formula: "2"},
	}))
	require.NoError(t, s.Apply(ctx, "main", OpEval, []Change{{CellID: "A1", Formula: "3"}}))

	pairs, err := s.ReadFormulas(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []engine.FormulaPair{
		{CellID: "B1", Formula: "2"},
		{CellID: "A1", Formula: "3"},
	}, pairs)
}

func TestApply_EmptyFormulaDeletes(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Apply(ctx, "main", OpEval, []Change{{CellID: "A1", Formula: "1"}}))
	require.NoError(t, s.Apply(ctx, "main", OpDelete, []Change{{CellID: "A1"}}))

	pairs, err := s.ReadFormulas(ctx, "main")
	require.NoError(t, err)
	assert.Empty(t, pairs)
	assert.NotNil(t, pairs)
}

func TestApply_NoChanges(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Apply(context.Background(), "main", OpEval, nil))
	assert.Equal(t, int64(0), s.LastSeq())
}

func TestApply_SheetsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Apply(ctx, "a", OpEval, []Change{{CellID: "A1", Formula: "1"}}))
	require.NoError(t, s.Apply(ctx, "b", OpEval, []Change{{CellID: "A1", Formula: "2"}}))

	pairs, err := s.ReadFormulas(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []engine.FormulaPair{{CellID: "A1", Formula: "2"}}, pairs)

	names, err := s.ListSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestApply_CanceledContextWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := createTestStore(t)

	err := s.Apply(ctx, "main", OpEval, []Change{{CellID: "A1", Formula: "1"}})
	require.Error(t, err)

	pairs, err := s.ReadFormulas(context.Background(), "main")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestClearSheet(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Apply(ctx, "main", OpEval, []Change{
		{CellID: "A1", Formula: "1"},
		{CellID: "B1", Formula: "=A1"},
	}))
	require.NoError(t, s.Apply(ctx, "other", OpEval, []Change{{CellID: "A1", Formula: "9"}}))
	require.NoError(t, s.ClearSheet(ctx, "main"))

	pairs, err := s.ReadFormulas(ctx, "main")
	require.NoError(t, err)
	assert.Empty(t, pairs)

	names, err := s.ListSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, names)
}

func TestOperations_Log(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("op-1", "op-2", "op-3", "op-4")))

	require.NoError(t, s.Apply(ctx, "main", OpEval, []Change{{CellID: "A1", Formula: "1"}}))
	require.NoError(t, s.Apply(ctx, "main", OpCopy, []Change{{CellID: "B1", Formula: "2"}}))
	require.NoError(t, s.Apply(ctx, "main", OpDelete, []Change{{CellID: "A1"}}))
	require.NoError(t, s.ClearSheet(ctx, "main"))

	ops, err := s.ReadOperations(ctx, "main", 0)
	require.NoError(t, err)
	assert.Equal(t, []Operation{
		{ID: "op-1", Sheet: "main", Op: OpEval, CellID: "A1", Formula: "1", Seq: 1},
		{ID: "op-2", Sheet: "main", Op: OpCopy, CellID: "B1", Formula: "2", Seq: 2},
		{ID: "op-3", Sheet: "main", Op: OpDelete, CellID: "A1", Seq: 3},
		{ID: "op-4", Sheet: "main", Op: OpClear, Seq: 4},
	}, ops)

	recent, err := s.ReadOperations(ctx, "main", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "op-3", recent[0].ID)
	assert.Equal(t, "op-4", recent[1].ID)
}

func TestOperations_UUIDv7Ids(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Apply(ctx, "main", OpEval, []Change{{CellID: "A1", Formula: "1"}}))

	ops, err := s.ReadOperations(ctx, "main", 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	id, err := uuid.Parse(ops[0].ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestClock_ResumesAfterReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Apply(ctx, "main", OpEval, []Change{
		{CellID: "A1", Formula: "1"},
		{CellID: "A2", Formula: "2"},
	}))
	assert.Equal(t, int64(2), s1.LastSeq())
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, int64(2), s2.LastSeq())

	require.NoError(t, s2.Apply(ctx, "main", OpEval, []Change{{CellID: "A3", Formula: "3"}}))
	assert.Equal(t, int64(3), s2.LastSeq())
}

func TestClock_Next(t *testing.T) {
	c := NewClockAt(10)
	assert.Equal(t, int64(10), c.Current())
	assert.Equal(t, int64(11), c.Next())
	assert.Equal(t, int64(12), c.Next())
	assert.Equal(t, int64(12), c.Current())
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
