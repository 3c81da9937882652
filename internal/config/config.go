// Package config loads gridcalc settings from YAML or CUE files and the
// environment.
//
// Precedence, lowest first: built-in defaults, the config file, then
// GRIDCALC_* environment variables. Command-line flags are applied on top
// by the CLI.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE []byte

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config holds all settings. The json tags are used when decoding CUE.
type Config struct {
	Listen  string        `yaml:"listen" json:"listen"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Log     LogConfig     `yaml:"log" json:"log"`
	View    ViewConfig    `yaml:"view" json:"view"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// ViewConfig sizes the HTML table: at least MinRows by MinCols, grown to
// fit the sheet but never past MaxRows by MaxCols.
type ViewConfig struct {
	MinRows int `yaml:"min_rows" json:"min_rows"`
	MinCols int `yaml:"min_cols" json:"min_cols"`
	MaxRows int `yaml:"max_rows" json:"max_rows"`
	MaxCols int `yaml:"max_cols" json:"max_cols"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Listen:  ":8080",
		Storage: StorageConfig{Driver: DriverSQLite, Path: "gridcalc.db"},
		Log:     LogConfig{Level: "info", Format: "text"},
		View:    ViewConfig{MinRows: 10, MinCols: 10, MaxRows: 500, MaxCols: 100},
	}
}

// FieldError reports an invalid setting, with its file position when known.
type FieldError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *FieldError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads the config file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}

		switch ext := filepath.Ext(path); ext {
		case ".yaml", ".yml":
			err = decodeYAML(data, &cfg)
		case ".cue":
			err = decodeCUE(path, data, &cfg)
		default:
			err = fmt.Errorf("unsupported config format %q", ext)
		}
		if err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// decodeCUE checks the file against schema.cue before decoding, so a bad
// value is reported at its position in the file.
func decodeCUE(path string, data []byte, cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}

	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	if err := v.Decode(cfg); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	fe := &FieldError{Field: "cue", Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		fe.Field = path[len(path)-1]
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		fe.Pos = positions[0]
	}
	return fe
}

// applyEnv applies GRIDCALC_* overrides. lookup is os.LookupEnv outside
// tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("GRIDCALC_LISTEN"); ok {
		c.Listen = v
	}
	if v, ok := lookup("GRIDCALC_STORAGE"); ok {
		c.Storage.Driver = v
	}
	if v, ok := lookup("GRIDCALC_DB"); ok {
		c.Storage.Path = v
	}
	if v, ok := lookup("GRIDCALC_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("GRIDCALC_LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	for name, dst := range map[string]*int{
		"GRIDCALC_VIEW_MIN_ROWS": &c.View.MinRows,
		"GRIDCALC_VIEW_MIN_COLS": &c.View.MinCols,
		"GRIDCALC_VIEW_MAX_ROWS": &c.View.MaxRows,
		"GRIDCALC_VIEW_MAX_COLS": &c.View.MaxCols,
	} {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &FieldError{Field: name, Message: fmt.Sprintf("not an integer: %q", v)}
		}
		*dst = n
	}
	return nil
}

// Validate checks every setting. Files decoded from CUE are already checked
// by the schema; YAML files and the environment are not.
func (c Config) Validate() error {
	if c.Listen == "" {
		return &FieldError{Field: "listen", Message: "must not be empty"}
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverBolt:
	default:
		return &FieldError{Field: "storage.driver", Message: fmt.Sprintf("unknown driver %q (want sqlite or bolt)", c.Storage.Driver)}
	}
	if c.Storage.Path == "" {
		return &FieldError{Field: "storage.path", Message: "must not be empty"}
	}
	if _, err := c.Log.level(); err != nil {
		return &FieldError{Field: "log.level", Message: err.Error()}
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return &FieldError{Field: "log.format", Message: fmt.Sprintf("unknown format %q (want text or json)", c.Log.Format)}
	}
	if c.View.MinRows < 1 || c.View.MinRows > 1000 {
		return &FieldError{Field: "view.min_rows", Message: "must be between 1 and 1000"}
	}
	if c.View.MinCols < 1 || c.View.MinCols > 702 {
		return &FieldError{Field: "view.min_cols", Message: "must be between 1 and 702"}
	}
	if c.View.MaxRows < c.View.MinRows || c.View.MaxRows > 10000 {
		return &FieldError{Field: "view.max_rows", Message: "must be between view.min_rows and 10000"}
	}
	if c.View.MaxCols < c.View.MinCols || c.View.MaxCols > 702 {
		return &FieldError{Field: "view.max_cols", Message: "must be between view.min_cols and 702"}
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return level, nil
}

// NewLogger builds a logger writing to w in the configured format.
// verbose forces debug level.
func (l LogConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
