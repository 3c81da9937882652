package spreadsheet

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/store"
)

// Sheet is a persistent spreadsheet: an engine sheet mirrored to Storage.
type Sheet struct {
	name    string
	storage Storage
	engine  *engine.Sheet
}

// Cell is one non-empty cell with its current value.
type Cell struct {
	ID      string `json:"id"`
	Formula string `json:"formula"`
	Value   Value  `json:"value"`
}

// Load builds the sheet called name by replaying its stored formulas.
// A stored formula that no longer evaluates is reported as a DB error.
func Load(ctx context.Context, storage Storage, name string) (*Sheet, error) {
	eng, err := replay(ctx, storage, name)
	if err != nil {
		return nil, err
	}

	slog.Debug("sheet loaded", "sheet", name, "cells", eng.Len())
	return &Sheet{name: name, storage: storage, engine: eng}, nil
}

func replay(ctx context.Context, storage Storage, name string) (*engine.Sheet, error) {
	pairs, err := storage.ReadFormulas(ctx, name)
	if err != nil {
		return nil, dbError("read "+name, err)
	}

	return rebuild(name, pairs)
}

// rebuild evaluates formulas read back from storage, or from a dump, into a
// fresh engine with an empty undo log. They were accepted once, so a failure
// is reported as a DB error.
func rebuild(name string, pairs []engine.FormulaPair) (*engine.Sheet, error) {
	eng := engine.New()
	for _, p := range pairs {
		if _, err := eng.Eval(p.CellID, p.Formula); err != nil {
			return nil, dbError(fmt.Sprintf("replay %s!%s", name, p.CellID), err)
		}
	}
	eng.Commit()
	return eng, nil
}

// Name returns the sheet name.
func (s *Sheet) Name() string {
	return s.name
}

// Eval sets the formula of cellID. See engine.Sheet.Eval.
func (s *Sheet) Eval(ctx context.Context, cellID, text string) (engine.Updates, error) {
	updates, err := s.engine.Eval(cellID, text)
	if err != nil {
		return nil, err
	}

	id := canonical(cellID)
	if err := s.persist(ctx, store.OpEval, []store.Change{s.change(id)}); err != nil {
		return nil, err
	}

	slog.Debug("cell evaluated", "sheet", s.name, "cell", id, "updates", len(updates))
	return updates, nil
}

// Delete removes the formula of cellID. See engine.Sheet.Delete.
func (s *Sheet) Delete(ctx context.Context, cellID string) (engine.Updates, error) {
	before, err := s.engine.Query(cellID)
	if err != nil {
		return nil, err
	}

	updates, err := s.engine.Delete(cellID)
	if err != nil {
		return nil, err
	}
	if before.Formula == "" {
		return updates, nil
	}

	if err := s.persist(ctx, store.OpDelete, []store.Change{{CellID: canonical(cellID)}}); err != nil {
		return nil, err
	}
	return updates, nil
}

// Copy copies the formula of src into dest. See engine.Sheet.Copy.
func (s *Sheet) Copy(ctx context.Context, dest, src string) (engine.Updates, error) {
	updates, err := s.engine.Copy(dest, src)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, store.OpCopy, []store.Change{s.change(canonical(dest))}); err != nil {
		return nil, err
	}
	return updates, nil
}

// Clear removes every cell, from storage first and then from memory.
func (s *Sheet) Clear(ctx context.Context) error {
	if err := s.storage.ClearSheet(ctx, s.name); err != nil {
		slog.Warn("clear failed", "sheet", s.name, "error", err)
		return dbError("clear "+s.name, err)
	}
	s.engine.Clear()
	return nil
}

// Undo reverts the most recent mutation and writes the restored formulas
// back. Returns the ids of the restored cells.
//
// If storage rejects the write the sheet is reloaded from storage, which
// still holds the state from before the undo.
func (s *Sheet) Undo(ctx context.Context) ([]string, error) {
	before := s.formulas()
	ids := s.engine.Undo()

	var changes []store.Change
	for _, id := range ids {
		ch := s.change(id)
		if ch.Formula != before[id] {
			changes = append(changes, ch)
		}
	}

	if err := s.storage.Apply(ctx, s.name, store.OpUndo, changes); err != nil {
		slog.Warn("undo write failed, reloading", "sheet", s.name, "error", err)
		if eng, rerr := replay(ctx, s.storage, s.name); rerr == nil {
			s.engine = eng
		}
		return nil, dbError("undo "+s.name, err)
	}
	return ids, nil
}

// Query returns the value and formula of cellID.
func (s *Sheet) Query(cellID string) (engine.CellResult, error) {
	return s.engine.Query(cellID)
}

// Dump returns the non-empty cells in dependency order.
func (s *Sheet) Dump() []engine.FormulaPair {
	return s.engine.Dump()
}

// Cells returns Dump with the current value of every cell.
func (s *Sheet) Cells() []Cell {
	pairs := s.engine.Dump()
	cells := make([]Cell, len(pairs))
	for i, p := range pairs {
		r, _ := s.engine.Query(p.CellID)
		cells[i] = Cell{ID: p.CellID, Formula: p.Formula, Value: Value(r.Value)}
	}
	return cells
}

// Len returns the number of non-empty cells.
func (s *Sheet) Len() int {
	return s.engine.Len()
}

// Replace discards the sheet and loads pairs in order. Nothing changes if a
// pair fails to evaluate. Replace cannot be undone.
func (s *Sheet) Replace(ctx context.Context, pairs []engine.FormulaPair) error {
	eng := engine.New()
	for _, p := range pairs {
		if _, err := eng.Eval(p.CellID, p.Formula); err != nil {
			return err
		}
	}
	eng.Commit()

	if err := s.storage.ClearSheet(ctx, s.name); err != nil {
		return dbError("replace "+s.name, err)
	}
	if err := s.storage.Apply(ctx, s.name, store.OpReplace, toChanges(eng.Dump())); err != nil {
		slog.Warn("replace write failed, reloading", "sheet", s.name, "error", err)
		if reloaded, rerr := replay(ctx, s.storage, s.name); rerr == nil {
			s.engine = reloaded
		}
		return dbError("replace "+s.name, err)
	}

	s.engine = eng
	return nil
}

// Update evaluates pairs in order on top of the current sheet and returns
// the merged updates. Either every pair is applied or none is. Like Replace,
// Update cannot be undone.
func (s *Sheet) Update(ctx context.Context, pairs []engine.FormulaPair) (engine.Updates, error) {
	eng, err := rebuild(s.name, s.engine.Dump())
	if err != nil {
		return nil, err
	}

	updates := make(engine.Updates)
	touched := make(map[string]bool)
	for _, p := range pairs {
		u, err := eng.Eval(p.CellID, p.Formula)
		if err != nil {
			return nil, err
		}
		maps.Copy(updates, u)
		touched[canonical(p.CellID)] = true
	}

	var changes []store.Change
	for _, p := range eng.Dump() {
		if touched[p.CellID] {
			changes = append(changes, store.Change{CellID: p.CellID, Formula: p.Formula})
		}
	}
	if err := s.storage.Apply(ctx, s.name, store.OpUpdate, changes); err != nil {
		return nil, dbError("update "+s.name, err)
	}

	eng.Commit()
	s.engine = eng
	return updates, nil
}

// persist writes changes, undoing the in-memory operation on failure.
func (s *Sheet) persist(ctx context.Context, op store.Op, changes []store.Change) error {
	if err := s.storage.Apply(ctx, s.name, op, changes); err != nil {
		s.engine.Undo()
		slog.Warn("write failed, operation undone", "sheet", s.name, "op", op, "error", err)
		return dbError(fmt.Sprintf("%s %s", op, s.name), err)
	}
	return nil
}

// change returns the stored form of cell id: its canonical formula, or an
// empty formula if the cell is empty.
func (s *Sheet) change(id string) store.Change {
	r, _ := s.engine.Query(id)
	return store.Change{CellID: id, Formula: r.Formula}
}

func (s *Sheet) formulas() map[string]string {
	out := make(map[string]string)
	for _, p := range s.engine.Dump() {
		out[p.CellID] = p.Formula
	}
	return out
}

func toChanges(pairs []engine.FormulaPair) []store.Change {
	changes := make([]store.Change, len(pairs))
	for i, p := range pairs {
		changes[i] = store.Change{CellID: p.CellID, Formula: p.Formula}
	}
	return changes
}

// canonical normalizes a cell id the engine already accepted.
func canonical(cellID string) string {
	return formula.MustCellID(cellID).String()
}
