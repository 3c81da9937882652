package store

import (
	"context"
	"fmt"

	"github.com/roach88/gridcalc/internal/engine"
)

// Operation is one row of the operation log.
type Operation struct {
	ID      string `json:"id"`
	Sheet   string `json:"sheet"`
	Op      Op     `json:"op"`
	CellID  string `json:"cell_id,omitempty"`
	Formula string `json:"formula,omitempty"`
	Seq     int64  `json:"seq"`
}

// ReadFormulas returns the stored formulas of sheet in replay order:
// ORDER BY seq ASC, cell_id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the sheet has no cells.
func (s *Store) ReadFormulas(ctx context.Context, sheet string) ([]engine.FormulaPair, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cell_id, formula
		FROM cells
		WHERE sheet = ?
		ORDER BY seq ASC, cell_id COLLATE BINARY ASC
	`, sheet)
	if err != nil {
		return nil, fmt.Errorf("query formulas: %w", err)
	}
	defer rows.Close()

	pairs := []engine.FormulaPair{}
	for rows.Next() {
		var p engine.FormulaPair
		if err := rows.Scan(&p.CellID, &p.Formula); err != nil {
			return nil, fmt.Errorf("scan formula: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate formulas: %w", err)
	}
	return pairs, nil
}

// ListSheets returns the names of all sheets with at least one cell, sorted.
func (s *Store) ListSheets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT sheet FROM cells ORDER BY sheet COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sheets: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sheets: %w", err)
	}
	return names, nil
}

// ReadOperations returns the operation log of sheet, oldest first. A
// positive limit keeps only the most recent limit entries.
func (s *Store) ReadOperations(ctx context.Context, sheet string, limit int) ([]Operation, error) {
	query := `
		SELECT id, sheet, op, cell_id, formula, seq
		FROM operations
		WHERE sheet = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
	args := []any{sheet}
	if limit > 0 {
		query = `
			SELECT id, sheet, op, cell_id, formula, seq FROM (
				SELECT id, sheet, op, cell_id, formula, seq
				FROM operations
				WHERE sheet = ?
				ORDER BY seq DESC, id COLLATE BINARY DESC
				LIMIT ?
			)
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := []Operation{}
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.Sheet, &op.Op, &op.CellID, &op.Formula, &op.Seq); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}
