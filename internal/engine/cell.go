package engine

import (
	"maps"
	"slices"

	"github.com/roach88/gridcalc/internal/formula"
)

// cell is one entry of the cell store. A nil ast means the cell is empty and
// its value is 0; such a cell only exists to hold dependents.
type cell struct {
	id         formula.CellID
	ast        formula.Node
	value      float64
	dependents map[string]struct{}
}

func newCell(id formula.CellID) *cell {
	return &cell{id: id, dependents: make(map[string]struct{})}
}

// clone copies the cell. The AST is immutable and shared.
func (c *cell) clone() *cell {
	cp := *c
	cp.dependents = maps.Clone(c.dependents)
	return &cp
}

func (c *cell) empty() bool {
	return c.ast == nil
}

// sortedDependents returns the dependents in lexicographic order so walks
// over the graph are deterministic.
func (c *cell) sortedDependents() []string {
	return slices.Sorted(maps.Keys(c.dependents))
}

// get returns the cell stored under id, or nil.
func (s *Sheet) get(id formula.CellID) *cell {
	return s.cells[id.String()]
}

// record snapshots the current state of key into the undo log unless it was
// already captured during this operation. A nil snapshot means "absent".
func (s *Sheet) record(key string) {
	if _, seen := s.undo[key]; seen {
		return
	}
	if c, ok := s.cells[key]; ok {
		s.undo[key] = c.clone()
	} else {
		s.undo[key] = nil
	}
}

// updateCell is the only way cells are created or modified. It snapshots the
// prior state, creates the cell if absent, applies mutate and returns it.
func (s *Sheet) updateCell(id formula.CellID, mutate func(*cell)) *cell {
	key := id.String()
	s.record(key)

	c, ok := s.cells[key]
	if !ok {
		c = newCell(id)
		s.cells[key] = c
	}
	if mutate != nil {
		mutate(c)
	}
	return c
}

// removeCell deletes id from the store, snapshotting it first.
func (s *Sheet) removeCell(id formula.CellID) {
	key := id.String()
	s.record(key)
	delete(s.cells, key)
}

// begin starts a new public operation by discarding the undo log.
func (s *Sheet) begin() {
	s.undo = make(map[string]*cell)
}

// rollback restores every cell captured in the undo log and returns the ids
// it touched, sorted. The log is kept, so rolling back twice is harmless.
func (s *Sheet) rollback() []string {
	ids := slices.Sorted(maps.Keys(s.undo))
	for _, key := range ids {
		if prev := s.undo[key]; prev != nil {
			s.cells[key] = prev.clone()
		} else {
			delete(s.cells, key)
		}
	}
	return ids
}
