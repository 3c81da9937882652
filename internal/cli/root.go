package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/config"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string // overrides storage.path
	Storage    string // overrides storage.driver
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gridcalc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gridcalc",
		Short: "gridcalc - spreadsheet formulas with dependency tracking",
		Long: `A spreadsheet engine with arithmetic formulas, cell references and
automatic recalculation of dependent cells. Sheets are persisted in SQLite
or bbolt and can be served over HTTP.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			cfg, err := opts.Settings()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			slog.SetDefault(cfg.Log.NewLogger(cmd.ErrOrStderr(), opts.Verbose))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the sheet database")
	cmd.PersistentFlags().StringVar(&opts.Storage, "storage", "", "storage driver (sqlite|bolt)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewCopyCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewSheetsCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Settings loads the config file and applies the --db and --storage flags
// on top.
func (o *RootOptions) Settings() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.Database != "" {
		cfg.Storage.Path = o.Database
	}
	if o.Storage != "" {
		cfg.Storage.Driver = o.Storage
	}
	return cfg, cfg.Validate()
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// withSheet opens storage, runs fn on the named sheet and closes storage.
func (o *RootOptions) withSheet(ctx context.Context, name string, fn func(*spreadsheet.Sheet) error) error {
	storage, err := o.openStorage()
	if err != nil {
		return err
	}
	defer storage.Close()

	return spreadsheet.NewRegistry(storage).With(ctx, name, fn)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
