package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

// NewEvalCommand creates the eval command.
func NewEvalCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <sheet> <cell> <formula>",
		Short: "Set the formula of a cell",
		Long: `Set the formula of a cell and print the new value of that cell and of
every cell that depends on it.

Examples:
  gridcalc eval budget A1 5
  gridcalc eval budget B1 '=A1*2 + max(C1, 10)'`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd, args[0], func(sh *spreadsheet.Sheet) (engine.Updates, error) {
				return sh.Eval(cmd.Context(), args[1], args[2])
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <sheet> <cell>",
		Short:         "Remove the formula of a cell",
		Long:          "Remove the formula of a cell and print the recomputed values of its dependents.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd, args[0], func(sh *spreadsheet.Sheet) (engine.Updates, error) {
				return sh.Delete(cmd.Context(), args[1])
			})
		},
	}
}

// NewCopyCommand creates the copy command.
func NewCopyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <sheet> <dest> <src>",
		Short: "Copy a formula between cells",
		Long: `Copy the formula of src into dest. Relative references shift by the
distance between the cells; absolute references ($A$1) stay put.

Example:
  gridcalc copy budget B2 B1`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd, args[0], func(sh *spreadsheet.Sheet) (engine.Updates, error) {
				return sh.Copy(cmd.Context(), args[1], args[2])
			})
		},
	}
}

func runUpdate(opts *RootOptions, cmd *cobra.Command, sheet string, op func(*spreadsheet.Sheet) (engine.Updates, error)) error {
	f := opts.formatter(cmd)

	var updates engine.Updates
	err := opts.withSheet(cmd.Context(), sheet, func(sh *spreadsheet.Sheet) error {
		var err error
		updates, err = op(sh)
		return err
	})
	if err != nil {
		return f.Fail(err)
	}

	return f.Success(spreadsheet.Values(updates), func(w io.Writer) {
		writeUpdates(w, updates)
	})
}

// NewQueryCommand creates the query command.
func NewQueryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "query <sheet> <cell>",
		Short:         "Show the value and formula of a cell",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)

			var cell spreadsheet.Cell
			err := opts.withSheet(cmd.Context(), args[0], func(sh *spreadsheet.Sheet) error {
				r, err := sh.Query(args[1])
				if err != nil {
					return err
				}
				id, _ := formula.NormalizeCellID(args[1])
				cell = spreadsheet.Cell{ID: id, Formula: r.Formula, Value: spreadsheet.Value(r.Value)}
				return nil
			})
			if err != nil {
				return f.Fail(err)
			}

			return f.Success(cell, func(w io.Writer) {
				writeCells(w, []spreadsheet.Cell{cell})
			})
		},
	}
}
