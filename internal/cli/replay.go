package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/spreadsheet"
)

// ReplaySheetResult holds the replay result for a single sheet.
type ReplaySheetResult struct {
	Sheet         string `json:"sheet"`
	Cells         int    `json:"cells"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sheets           []ReplaySheetResult `json:"sheets"`
	TotalSheets      int                 `json:"total_sheets"`
	AllDeterministic bool                `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay [sheet]",
		Short: "Rebuild sheets from storage and verify determinism",
		Long: `Rebuild sheets from their stored formulas twice and check that both
rebuilds produce the same cells, formulas and values. With no argument
every stored sheet is checked.

Exit codes:
  0 - All sheets are deterministic
  1 - A sheet failed to rebuild or rebuilt differently
  2 - Command error (database not found, etc.)

Examples:
  gridcalc replay --db ./sheets.db
  gridcalc replay budget --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd, args)
		},
	}
}

func runReplay(opts *RootOptions, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	storage, err := opts.openStorage()
	if err != nil {
		return err
	}
	defer storage.Close()

	var names []string
	if len(args) == 1 {
		name, err := spreadsheet.NormalizeName(args[0])
		if err != nil {
			return f.Fail(err)
		}
		names = []string{name}
	} else {
		names, err = spreadsheet.NewRegistry(storage).Names(ctx)
		if err != nil {
			return f.Fail(err)
		}
	}

	result := ReplayResult{
		Sheets:           make([]ReplaySheetResult, 0, len(names)),
		TotalSheets:      len(names),
		AllDeterministic: true,
	}
	for _, name := range names {
		sheetResult, err := replaySheet(ctx, storage, name)
		if err != nil {
			return f.Fail(err)
		}
		f.VerboseLog("replayed %s: %d cells", name, sheetResult.Cells)

		result.Sheets = append(result.Sheets, sheetResult)
		if !sheetResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(f, result)
	}
	return outputReplayText(cmd, result)
}

// replaySheet loads a sheet twice and compares the two rebuilds.
func replaySheet(ctx context.Context, storage spreadsheet.Storage, name string) (ReplaySheetResult, error) {
	first, err := spreadsheet.Load(ctx, storage, name)
	if err != nil {
		return ReplaySheetResult{}, err
	}
	second, err := spreadsheet.Load(ctx, storage, name)
	if err != nil {
		return ReplaySheetResult{}, err
	}

	return ReplaySheetResult{
		Sheet:         name,
		Cells:         first.Len(),
		Deterministic: sameCells(first.Cells(), second.Cells()),
	}, nil
}

// sameCells compares two dumps. Values compare by their printed form so
// that two NaN results count as equal.
func sameCells(a, b []spreadsheet.Cell) bool {
	return slices.EqualFunc(a, b, func(x, y spreadsheet.Cell) bool {
		return x.ID == y.ID && x.Formula == y.Formula && x.Value.String() == y.Value.String()
	})
}

func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := f.encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	if result.TotalSheets == 0 {
		fmt.Fprintln(w, "No sheets found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d sheet(s)\n", result.TotalSheets)
	fmt.Fprintln(w)

	for _, sheet := range result.Sheets {
		status := "✓"
		if !sheet.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Sheet: %s (%d cells)\n", status, sheet.Sheet, sheet.Cells)
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sheets verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
