package cli

import (
	"io"
	"log/slog"

	"github.com/roach88/gridcalc/internal/boltstore"
	"github.com/roach88/gridcalc/internal/config"
	"github.com/roach88/gridcalc/internal/spreadsheet"
	"github.com/roach88/gridcalc/internal/store"
)

// closableStorage is a Storage that owns an open database.
type closableStorage interface {
	spreadsheet.Storage
	io.Closer
}

// openStorage opens the configured storage driver.
func (o *RootOptions) openStorage() (closableStorage, error) {
	cfg, err := o.Settings()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	slog.Debug("opening storage", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)
	switch cfg.Storage.Driver {
	case config.DriverBolt:
		st, err := boltstore.Open(cfg.Storage.Path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return st, nil
	default:
		st, err := store.Open(cfg.Storage.Path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return st, nil
	}
}

// openSQLite opens the SQLite store directly, for commands that read the
// operation log.
func (o *RootOptions) openSQLite() (*store.Store, error) {
	cfg, err := o.Settings()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if cfg.Storage.Driver != config.DriverSQLite {
		return nil, NewExitError(ExitCommandError, "the operation log requires the sqlite storage driver")
	}

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
