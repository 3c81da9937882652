// Package boltstore stores gridcalc sheets in a bbolt file.
//
// Each sheet is a top-level bucket keyed by cell id. A value is the 8-byte
// big-endian write sequence of the cell followed by its formula, so formulas
// replay in the order they were written. Unlike the SQLite store there is no
// operation log.
package boltstore

import (
	"cmp"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/store"
)

// Store is a bbolt-backed sheet store.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the bbolt file at path. It waits at most one second
// for the file lock held by another process.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Apply writes changes to sheet in one transaction. An empty formula removes
// the cell; a sheet left without cells is dropped. op is accepted for parity
// with the SQLite store and not recorded.
func (s *Store) Apply(ctx context.Context, sheet string, op store.Op, changes []store.Change) error {
	if len(changes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("apply %s: %w", op, err)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(sheet))
		if err != nil {
			return err
		}

		for _, ch := range changes {
			key := []byte(ch.CellID)
			if ch.Formula == "" {
				if err := b.Delete(key); err != nil {
					return err
				}
				continue
			}

			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(key, encode(seq, ch.Formula)); err != nil {
				return err
			}
		}

		if k, _ := b.Cursor().First(); k == nil {
			return tx.DeleteBucket([]byte(sheet))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply %s: %w", op, err)
	}
	return nil
}

// ClearSheet drops every cell of sheet.
func (s *Store) ClearSheet(ctx context.Context, sheet string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket([]byte(sheet))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	return nil
}

type record struct {
	seq  uint64
	pair engine.FormulaPair
}

// ReadFormulas returns the formulas of sheet ordered by write sequence, then
// cell id. Returns an empty slice (not nil) for an unknown sheet.
func (s *Store) ReadFormulas(ctx context.Context, sheet string) ([]engine.FormulaPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("read formulas: %w", err)
	}

	var records []record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(sheet))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			seq, formula, err := decode(v)
			if err != nil {
				return fmt.Errorf("cell %s: %w", k, err)
			}
			records = append(records, record{
				seq:  seq,
				pair: engine.FormulaPair{CellID: string(k), Formula: formula},
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read formulas: %w", err)
	}

	slices.SortFunc(records, func(a, b record) int {
		return cmp.Or(cmp.Compare(a.seq, b.seq), strings.Compare(a.pair.CellID, b.pair.CellID))
	})

	pairs := make([]engine.FormulaPair, len(records))
	for i, r := range records {
		pairs[i] = r.pair
	}
	return pairs, nil
}

// ListSheets returns the names of all stored sheets in key order.
func (s *Store) ListSheets(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}

	names := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	return names, nil
}

func encode(seq uint64, formula string) []byte {
	buf := make([]byte, 8+len(formula))
	binary.BigEndian.PutUint64(buf, seq)
	copy(buf[8:], formula)
	return buf
}

func decode(v []byte) (uint64, string, error) {
	if len(v) < 8 {
		return 0, "", fmt.Errorf("corrupt value of %d bytes", len(v))
	}
	return binary.BigEndian.Uint64(v), string(v[8:]), nil
}
