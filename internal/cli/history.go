package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/spreadsheet"
	"github.com/roach88/gridcalc/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <sheet>",
		Short: "Show the operation log of a sheet",
		Long: `Show the most recent writes to a sheet, oldest first. Only the sqlite
storage driver keeps an operation log.

Example:
  gridcalc history budget --limit 20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum number of operations to show")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command, sheet string) error {
	f := opts.formatter(cmd)

	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, "--limit must be positive")
	}
	name, err := spreadsheet.NormalizeName(sheet)
	if err != nil {
		return f.Fail(err)
	}

	st, err := opts.openSQLite()
	if err != nil {
		return err
	}
	defer st.Close()

	ops, err := st.ReadOperations(cmd.Context(), name, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read operation log", err)
	}

	return f.Success(ops, func(w io.Writer) {
		if len(ops) == 0 {
			fmt.Fprintf(w, "No operations recorded for %s.\n", name)
			return
		}
		for _, op := range ops {
			writeOperation(w, op)
		}
	})
}

func writeOperation(w io.Writer, op store.Operation) {
	switch {
	case op.CellID == "":
		fmt.Fprintf(w, "%6d  %-8s\n", op.Seq, op.Op)
	case op.Formula == "":
		fmt.Fprintf(w, "%6d  %-8s %s (removed)\n", op.Seq, op.Op, op.CellID)
	default:
		fmt.Fprintf(w, "%6d  %-8s %s = %s\n", op.Seq, op.Op, op.CellID, op.Formula)
	}
}
