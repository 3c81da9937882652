package engine

import (
	"maps"

	"github.com/roach88/gridcalc/internal/formula"
)

// Updates maps canonical cell ids to freshly computed values.
type Updates map[string]float64

// CellResult is the value and formula text of one cell.
type CellResult struct {
	Value   float64 `json:"value"`
	Formula string  `json:"formula"`
}

// Sheet is an in-memory spreadsheet.
//
// Each public mutation (Eval, Delete, Copy, Clear) is one rollback unit: it
// either succeeds or leaves the sheet exactly as it found it. Undo reverts
// the most recent mutation, whether it succeeded or failed.
type Sheet struct {
	cells map[string]*cell
	undo  map[string]*cell
}

// New returns an empty sheet.
func New() *Sheet {
	return &Sheet{
		cells: make(map[string]*cell),
		undo:  make(map[string]*cell),
	}
}

// Eval sets the formula of cellID and returns the new value of that cell and
// of every cell that depends on it, directly or indirectly.
//
// Returns a SYNTAX error for a bad cell id or formula and a CIRCULAR_REF
// error if the formula closes a dependency cycle. On error nothing changes.
func (s *Sheet) Eval(cellID, text string) (Updates, error) {
	s.begin()
	updates, err := s.eval(cellID, text)
	if err != nil {
		s.rollback()
		return nil, err
	}
	return updates, nil
}

func (s *Sheet) eval(cellID, text string) (Updates, error) {
	id, err := parseID(cellID)
	if err != nil {
		return nil, err
	}
	return s.evalAt(id, text)
}

func (s *Sheet) evalAt(id formula.CellID, text string) (Updates, error) {
	ast, err := formula.Parse(text, id)
	if err != nil {
		return nil, NewSyntaxError(id.String(), err)
	}
	return s.setFormula(id, ast)
}

// Query returns the value and formula of cellID. A cell that does not exist
// reads as {0, ""}. Query never changes the sheet.
func (s *Sheet) Query(cellID string) (CellResult, error) {
	id, err := parseID(cellID)
	if err != nil {
		return CellResult{}, err
	}
	return s.query(id), nil
}

func (s *Sheet) query(id formula.CellID) CellResult {
	c := s.get(id)
	if c == nil || c.empty() {
		return CellResult{}
	}
	return CellResult{Value: c.value, Formula: formula.Render(c.ast, id)}
}

// Delete removes the formula of cellID and recomputes its dependents, which
// now read the cell as 0. Deleting an empty cell returns no updates.
func (s *Sheet) Delete(cellID string) (Updates, error) {
	s.begin()
	id, err := parseID(cellID)
	if err != nil {
		return nil, err
	}
	updates, err := s.delete(id)
	if err != nil {
		s.rollback()
		return nil, err
	}
	return updates, nil
}

func (s *Sheet) delete(id formula.CellID) (Updates, error) {
	c := s.get(id)
	if c == nil || c.empty() {
		return Updates{}, nil
	}

	deps := c.sortedDependents()
	s.sever(id, c.ast)
	s.removeCell(id)

	updates := make(Updates)
	for _, key := range deps {
		dep := s.cells[key]
		u, err := s.setFormula(dep.id, dep.ast)
		if err != nil {
			return nil, err
		}
		maps.Copy(updates, u)
	}
	return updates, nil
}

// Copy copies the formula of src into dest. Relative references shift by the
// distance between the two cells; absolute references stay. Copying an empty
// cell deletes dest.
func (s *Sheet) Copy(dest, src string) (Updates, error) {
	s.begin()
	updates, err := s.copy(dest, src)
	if err != nil {
		s.rollback()
		return nil, err
	}
	return updates, nil
}

func (s *Sheet) copy(dest, src string) (Updates, error) {
	destID, err := parseID(dest)
	if err != nil {
		return nil, err
	}
	srcID, err := parseID(src)
	if err != nil {
		return nil, err
	}

	c := s.get(srcID)
	if c == nil || c.empty() {
		return s.delete(destID)
	}
	return s.evalAt(destID, formula.Render(c.ast, destID))
}

// Clear discards every cell. It cannot be undone.
func (s *Sheet) Clear() {
	s.cells = make(map[string]*cell)
	s.begin()
}

// Commit discards the undo log, so the changes made so far can no longer be
// undone. Used after a sheet is rebuilt from a list of formulas.
func (s *Sheet) Commit() {
	s.begin()
}

// Undo reverts the most recent Eval, Delete or Copy and returns the ids of
// the cells it restored, sorted. Undo is single level: calling it again
// restores the same state.
func (s *Sheet) Undo() []string {
	return s.rollback()
}

// Len returns the number of non-empty cells.
func (s *Sheet) Len() int {
	n := 0
	for _, c := range s.cells {
		if !c.empty() {
			n++
		}
	}
	return n
}

func parseID(cellID string) (formula.CellID, error) {
	id, err := formula.ParseCellID(cellID)
	if err != nil {
		return formula.CellID{}, NewSyntaxError(cellID, err)
	}
	return id, nil
}
