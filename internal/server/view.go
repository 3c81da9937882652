package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

//go:embed templates/*.html
var templateFS embed.FS

var viewFuncs = template.FuncMap{
	"cellText": cellText,
}

// Form actions of the sheet page.
const (
	actionUpdate = "updateCell"
	actionDelete = "deleteCell"
	actionCopy   = "copyCell"
	actionClear  = "clear"
)

var actionOps = map[string]string{
	actionUpdate: "eval",
	actionDelete: "delete",
	actionCopy:   "copy",
	actionClear:  "clear",
}

// sheetForm is the edit form. For copyCell, Formula holds the source cell.
type sheetForm struct {
	Action  string `form:"ssAct"`
	CellID  string `form:"cellId"`
	Formula string `form:"formula"`
}

type sheetView struct {
	Name    string
	Columns []string
	Rows    []viewRow
	Hidden  int // cells outside the rendered grid
	Form    sheetForm
	Error   string
}

type viewRow struct {
	Number int
	Cells  []*spreadsheet.Cell
}

type indexView struct {
	Name   string
	Sheets []string
	Error  string
}

// buildView lays cells out on a grid of at least MinRows by MinCols, grown
// to fit the furthest cell up to MaxRows by MaxCols. Cells past the limit
// are counted in Hidden.
func (s *Server) buildView(name string, cells []spreadsheet.Cell) sheetView {
	rows, cols := s.view.MinRows, s.view.MinCols
	ids := make([]formula.CellID, len(cells))
	for i, c := range cells {
		ids[i] = formula.MustCellID(c.ID)
		rows = max(rows, ids[i].Row+1)
		cols = max(cols, ids[i].Col+1)
	}
	rows = min(rows, max(s.view.MaxRows, s.view.MinRows))
	cols = min(cols, max(s.view.MaxCols, s.view.MinCols))

	v := sheetView{Name: name, Columns: make([]string, cols), Rows: make([]viewRow, rows)}
	for col := range v.Columns {
		v.Columns[col] = formula.ColumnName(col)
	}
	for row := range v.Rows {
		v.Rows[row] = viewRow{Number: row + 1, Cells: make([]*spreadsheet.Cell, cols)}
	}
	for i := range cells {
		if ids[i].Row >= rows || ids[i].Col >= cols {
			v.Hidden++
			continue
		}
		v.Rows[ids[i].Row].Cells[ids[i].Col] = &cells[i]
	}
	return v
}

func cellText(c *spreadsheet.Cell) string {
	if c == nil {
		return ""
	}
	return c.Value.String()
}

func (s *Server) index(c *gin.Context) {
	names, err := s.registry.Names(c.Request.Context())
	view := indexView{Sheets: names}
	if err != nil {
		view.Error = err.Error()
	}
	c.HTML(http.StatusOK, "index.html", view)
}

func (s *Server) openSheet(c *gin.Context) {
	name, err := spreadsheet.NormalizeName(c.PostForm("ssName"))
	if err != nil {
		names, _ := s.registry.Names(c.Request.Context())
		c.HTML(http.StatusBadRequest, "index.html", indexView{
			Name:   c.PostForm("ssName"),
			Sheets: names,
			Error:  "please enter a sheet name",
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/ss/"+url.PathEscape(name))
}

func (s *Server) viewSheet(c *gin.Context) {
	var cells []spreadsheet.Cell
	err := s.withSheet(c, "dump", func(sh *spreadsheet.Sheet) error {
		cells = sh.Cells()
		return nil
	})
	if err != nil {
		status, _ := classify(err)
		c.HTML(status, "sheet.html", sheetView{Name: c.Param("sheet"), Error: err.Error()})
		return
	}
	c.HTML(http.StatusOK, "sheet.html", s.buildView(c.Param("sheet"), cells))
}

// actOnSheet applies the edit form. Success redirects back to the sheet; a
// failure re-renders it with the error and the submitted values.
func (s *Server) actOnSheet(c *gin.Context) {
	var form sheetForm
	_ = c.ShouldBind(&form)
	form.CellID = strings.TrimSpace(form.CellID)
	form.Formula = strings.TrimSpace(form.Formula)
	invalid := validateForm(form)

	var opErr error
	var cells []spreadsheet.Cell
	start := time.Now()
	err := s.registry.With(c.Request.Context(), c.Param("sheet"), func(sh *spreadsheet.Sheet) error {
		if invalid == "" {
			opErr = applyForm(c.Request.Context(), sh, form)
		}
		cells = sh.Cells()
		return nil
	})
	if invalid == "" {
		outcome := opErr
		if err != nil {
			outcome = err
		}
		observe(actionOps[form.Action], start, outcome)
	}

	if err != nil {
		status, _ := classify(err)
		c.HTML(status, "sheet.html", sheetView{Name: c.Param("sheet"), Form: form, Error: err.Error()})
		return
	}
	if invalid == "" && opErr == nil {
		c.Redirect(http.StatusSeeOther, "/ss/"+url.PathEscape(c.Param("sheet")))
		return
	}

	v := s.buildView(c.Param("sheet"), cells)
	v.Form = form
	v.Error = invalid
	status := http.StatusBadRequest
	if opErr != nil {
		v.Error = opErr.Error()
		status, _ = classify(opErr)
	}
	c.HTML(status, "sheet.html", v)
}

// validateForm returns a message for the first missing or bad field.
func validateForm(form sheetForm) string {
	if _, ok := actionOps[form.Action]; !ok {
		return "please select an action"
	}
	if form.Action == actionClear {
		return ""
	}
	if form.CellID == "" {
		return "please enter a cell id"
	}
	if _, err := formula.ParseCellID(form.CellID); err != nil {
		return "bad cell id " + form.CellID
	}
	switch form.Action {
	case actionUpdate:
		if form.Formula == "" {
			return "please enter a formula"
		}
	case actionCopy:
		if _, err := formula.ParseCellID(form.Formula); err != nil {
			return "please enter the cell id to copy from"
		}
	}
	return ""
}

func applyForm(ctx context.Context, sh *spreadsheet.Sheet, form sheetForm) error {
	var err error
	switch form.Action {
	case actionUpdate:
		_, err = sh.Eval(ctx, form.CellID, form.Formula)
	case actionDelete:
		_, err = sh.Delete(ctx, form.CellID)
	case actionCopy:
		_, err = sh.Copy(ctx, form.CellID, form.Formula)
	case actionClear:
		err = sh.Clear(ctx)
	}
	return err
}
