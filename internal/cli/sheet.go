package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/spreadsheet"
)

// NewClearCommand creates the clear command.
func NewClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear <sheet>",
		Short:         "Remove every cell of a sheet",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)

			var name string
			err := opts.withSheet(cmd.Context(), args[0], func(sh *spreadsheet.Sheet) error {
				name = sh.Name()
				return sh.Clear(cmd.Context())
			})
			if err != nil {
				return f.Fail(err)
			}

			return f.Success(map[string]string{"sheet": name}, func(w io.Writer) {
				fmt.Fprintf(w, "Cleared %s\n", name)
			})
		},
	}
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <sheet>",
		Short: "List the cells of a sheet in dependency order",
		Long: `List every non-empty cell with its formula and value. A cell is listed
after all the cells its formula refers to, so evaluating the formulas in
this order rebuilds the sheet.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)

			var cells []spreadsheet.Cell
			err := opts.withSheet(cmd.Context(), args[0], func(sh *spreadsheet.Sheet) error {
				cells = sh.Cells()
				return nil
			})
			if err != nil {
				return f.Fail(err)
			}

			return f.Success(cells, func(w io.Writer) {
				if len(cells) == 0 {
					fmt.Fprintln(w, "Sheet is empty.")
					return
				}
				writeCells(w, cells)
			})
		},
	}
}

// NewSheetsCommand creates the sheets command.
func NewSheetsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "sheets",
		Short:         "List stored sheets",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)

			storage, err := opts.openStorage()
			if err != nil {
				return err
			}
			defer storage.Close()

			names, err := spreadsheet.NewRegistry(storage).Names(cmd.Context())
			if err != nil {
				return f.Fail(err)
			}

			return f.Success(names, func(w io.Writer) {
				if len(names) == 0 {
					fmt.Fprintln(w, "No sheets found in database.")
					return
				}
				for _, name := range names {
					fmt.Fprintln(w, name)
				}
			})
		},
	}
}
