package spreadsheet

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidName is returned for a blank sheet name.
var ErrInvalidName = errors.New("invalid sheet name")

// NormalizeName trims name and converts it to Unicode NFC, so that visually
// identical names address the same sheet.
func NormalizeName(name string) (string, error) {
	n := norm.NFC.String(strings.TrimSpace(name))
	if n == "" {
		return "", ErrInvalidName
	}
	return n, nil
}

// Registry caches loaded sheets by name.
//
// Thread-safety: all methods are safe for concurrent use. Operations on the
// same sheet are serialized by With.
type Registry struct {
	storage Storage
	loads   singleflight.Group

	mu     sync.Mutex
	sheets map[string]*entry
}

type entry struct {
	mu    sync.Mutex
	sheet *Sheet
}

// NewRegistry creates a registry over storage.
func NewRegistry(storage Storage) *Registry {
	return &Registry{
		storage: storage,
		sheets:  make(map[string]*entry),
	}
}

// With runs fn on the sheet called name while holding that sheet's lock.
// The sheet is loaded from storage on first use; concurrent first uses share
// one load.
func (r *Registry) With(ctx context.Context, name string, fn func(*Sheet) error) error {
	e, err := r.entry(ctx, name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sheet)
}

// Names lists the stored sheets.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	names, err := r.storage.ListSheets(ctx)
	if err != nil {
		return nil, dbError("list sheets", err)
	}
	return names, nil
}

// Loaded returns the number of sheets held in memory.
func (r *Registry) Loaded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sheets)
}

func (r *Registry) entry(ctx context.Context, name string) (*entry, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	e, ok := r.sheets[name]
	r.mu.Unlock()
	if ok {
		return e, nil
	}

	v, err, _ := r.loads.Do(name, func() (any, error) {
		r.mu.Lock()
		if e, ok := r.sheets[name]; ok {
			r.mu.Unlock()
			return e, nil
		}
		r.mu.Unlock()

		sheet, err := Load(ctx, r.storage, name)
		if err != nil {
			return nil, err
		}

		e := &entry{sheet: sheet}
		r.mu.Lock()
		r.sheets[name] = e
		r.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}
