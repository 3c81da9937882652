package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Op names the sheet operation that produced a write.
type Op string

const (
	OpEval    Op = "eval"
	OpDelete  Op = "delete"
	OpCopy    Op = "copy"
	OpClear   Op = "clear"
	OpUndo    Op = "undo"
	OpReplace Op = "replace"
	OpUpdate  Op = "update"
)

// Change sets the stored formula of one cell. An empty Formula removes the
// cell.
type Change struct {
	CellID  string
	Formula string
}

// Apply writes changes for sheet and appends one operation row per change,
// all in a single transaction. Each change gets its own seq, so changes are
// replayed in the order given.
func (s *Store) Apply(ctx context.Context, sheet string, op Op, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply %s: begin tx: %w", op, err)
	}
	defer tx.Rollback() // No-op if committed

	for _, ch := range changes {
		seq := s.clock.Next()
		if err := writeCell(ctx, tx, sheet, ch, seq); err != nil {
			return fmt.Errorf("apply %s: %w", op, err)
		}
		if err := s.logOperation(ctx, tx, sheet, op, ch, seq); err != nil {
			return fmt.Errorf("apply %s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply %s: commit: %w", op, err)
	}
	return nil
}

// ClearSheet removes every cell of sheet and logs a single clear operation.
func (s *Store) ClearSheet(ctx context.Context, sheet string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear sheet: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE sheet = ?`, sheet); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	if err := s.logOperation(ctx, tx, sheet, OpClear, Change{}, s.clock.Next()); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clear sheet: commit: %w", err)
	}
	return nil
}

func writeCell(ctx context.Context, tx *sql.Tx, sheet string, ch Change, seq int64) error {
	if ch.Formula == "" {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM cells WHERE sheet = ? AND cell_id = ?
		`, sheet, ch.CellID); err != nil {
			return fmt.Errorf("delete cell %s: %w", ch.CellID, err)
		}
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO cells (sheet, cell_id, formula, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sheet, cell_id) DO UPDATE SET formula = excluded.formula, seq = excluded.seq
	`, sheet, ch.CellID, ch.Formula, seq)
	if err != nil {
		return fmt.Errorf("write cell %s: %w", ch.CellID, err)
	}
	return nil
}

func (s *Store) logOperation(ctx context.Context, tx *sql.Tx, sheet string, op Op, ch Change, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO operations (id, sheet, op, cell_id, formula, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ids.Generate(), sheet, string(op), ch.CellID, ch.Formula, seq)
	if err != nil {
		return fmt.Errorf("log operation: %w", err)
	}
	return nil
}
