package sheetio

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

const (
	defaultSheet      = "Sheet1"
	maxSheetNameRunes = 31
	divisionByZero    = "#DIV/0!"
)

// WriteXLSX writes cells to a single-sheet workbook named after sheet.
// Plain numbers become numeric cells; everything else is written as a cell
// formula with its cached value. A value that is not finite is cached as
// Excel's #DIV/0! error.
func WriteXLSX(w io.Writer, sheet string, cells []spreadsheet.Cell) error {
	f := excelize.NewFile()
	defer f.Close()

	name := workbookSheetName(sheet)
	if name != defaultSheet {
		if err := f.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("rename sheet %q: %w", name, err)
		}
	}

	for _, c := range cells {
		if v, err := strconv.ParseFloat(c.Formula, 64); err == nil {
			if err := f.SetCellFloat(name, c.ID, v, -1, 64); err != nil {
				return fmt.Errorf("write %s: %w", c.ID, err)
			}
			continue
		}

		var err error
		if c.Value.Finite() {
			err = f.SetCellFloat(name, c.ID, float64(c.Value), -1, 64)
		} else {
			err = f.SetCellStr(name, c.ID, divisionByZero)
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", c.ID, err)
		}
		if err := f.SetCellFormula(name, c.ID, strings.TrimPrefix(c.Formula, "=")); err != nil {
			return fmt.Errorf("write %s: %w", c.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadXLSX reads the first sheet of a workbook. Formula cells come back
// with a leading "="; value cells must hold numbers. Pairs are in row-major
// order.
func ReadXLSX(r io.Reader) ([]engine.FormulaPair, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows from sheet %q: %w", sheet, err)
	}

	pairs := []engine.FormulaPair{}
	for rowIdx, row := range rows {
		for colIdx, raw := range row {
			id := formula.CellID{Col: colIdx, Row: rowIdx}.String()

			text, err := f.GetCellFormula(sheet, id)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", id, err)
			}
			if text != "" {
				pairs = append(pairs, engine.FormulaPair{CellID: id, Formula: "=" + text})
				continue
			}

			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("cell %s: unsupported value %q", id, raw)
			}
			pairs = append(pairs, engine.FormulaPair{CellID: id, Formula: strconv.FormatFloat(v, 'f', -1, 64)})
		}
	}
	return pairs, nil
}

// workbookSheetName maps a sheet name onto the characters and length Excel
// accepts.
func workbookSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.Trim(name, "'"))

	if runes := []rune(name); len(runes) > maxSheetNameRunes {
		name = string(runes[:maxSheetNameRunes])
	}
	if strings.TrimSpace(name) == "" {
		return defaultSheet
	}
	return name
}
