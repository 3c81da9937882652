package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/sheetio"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Merge bool
}

// ImportResult reports what an import changed.
type ImportResult struct {
	Sheet   string                       `json:"sheet"`
	Cells   int                          `json:"cells"`
	Updates map[string]spreadsheet.Value `json:"updates,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <sheet> <file>",
		Short: "Load cells from a YAML or XLSX file",
		Long: `Load cells from a YAML file (.yaml, .yml) or the first worksheet of an
Excel workbook (.xlsx). By default the sheet is replaced; with --merge the
cells are evaluated on top of the existing sheet. Either way nothing is
changed if one of the cells fails to evaluate.

Examples:
  gridcalc import budget ./budget.yaml
  gridcalc import budget ./budget.xlsx --merge`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "evaluate on top of the existing cells instead of replacing them")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command, sheet, path string) error {
	f := opts.formatter(cmd)

	pairs, err := readPairs(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read "+path, err)
	}
	f.VerboseLog("read %d cells from %s", len(pairs), path)

	result := ImportResult{Cells: len(pairs)}
	err = opts.withSheet(cmd.Context(), sheet, func(sh *spreadsheet.Sheet) error {
		result.Sheet = sh.Name()
		if !opts.Merge {
			return sh.Replace(cmd.Context(), pairs)
		}
		updates, err := sh.Update(cmd.Context(), pairs)
		result.Updates = spreadsheet.Values(updates)
		return err
	})
	if err != nil {
		return f.Fail(err)
	}

	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %d cell(s) into %s\n", result.Cells, result.Sheet)
	})
}

func readPairs(path string) ([]engine.FormulaPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return sheetio.ReadYAML(bytes.NewReader(data))
	case ".xlsx":
		return sheetio.ReadXLSX(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <sheet> <file>",
		Short: "Write a sheet to a YAML or XLSX file",
		Long: `Write the cells of a sheet in dependency order to a YAML file or an Excel
workbook. Workbook cells carry both the formula and its current value. A
file of "-" writes YAML to standard output.

Examples:
  gridcalc export budget ./budget.yaml
  gridcalc export budget ./budget.xlsx
  gridcalc export budget -`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd, args[0], args[1])
		},
	}
}

func runExport(opts *RootOptions, cmd *cobra.Command, sheet, path string) error {
	f := opts.formatter(cmd)

	var (
		name  string
		cells []spreadsheet.Cell
	)
	err := opts.withSheet(cmd.Context(), sheet, func(sh *spreadsheet.Sheet) error {
		name = sh.Name()
		cells = sh.Cells()
		return nil
	})
	if err != nil {
		return f.Fail(err)
	}

	if path == "-" {
		return sheetio.WriteYAML(cmd.OutOrStdout(), pairsOf(cells))
	}

	var buf bytes.Buffer
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = sheetio.WriteYAML(&buf, pairsOf(cells))
	case ".xlsx":
		err = sheetio.WriteXLSX(&buf, name, cells)
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unsupported file type %q", ext))
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode "+path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write "+path, err)
	}

	result := ImportResult{Sheet: name, Cells: len(cells)}
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Exported %d cell(s) from %s to %s\n", result.Cells, name, path)
	})
}

func pairsOf(cells []spreadsheet.Cell) []engine.FormulaPair {
	pairs := make([]engine.FormulaPair, len(cells))
	for i, c := range cells {
		pairs[i] = engine.FormulaPair{CellID: c.ID, Formula: c.Formula}
	}
	return pairs
}
