package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/formula"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

type setCellRequest struct {
	Formula string `json:"formula" binding:"required"`
}

type copyCellRequest struct {
	Src string `json:"src" binding:"required"`
}

type undoResponse struct {
	Restored []string `json:"restored"`
}

// withSheet runs fn on the sheet named in the path and records the
// operation metrics.
func (s *Server) withSheet(c *gin.Context, op string, fn func(*spreadsheet.Sheet) error) error {
	start := time.Now()
	err := s.registry.With(c.Request.Context(), c.Param("sheet"), fn)
	observe(op, start, err)
	return err
}

func (s *Server) listSheets(c *gin.Context) {
	names, err := s.registry.Names(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, names)
}

func (s *Server) getSheet(c *gin.Context) {
	var cells []spreadsheet.Cell
	err := s.withSheet(c, "dump", func(sh *spreadsheet.Sheet) error {
		cells = sh.Cells()
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, cells)
}

// bindPairs reads a [[id, formula], ...] body.
func bindPairs(c *gin.Context) ([]engine.FormulaPair, error) {
	var body [][2]string
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, badRequest("request body must be a list of [cell_id, formula] pairs")
	}

	pairs := make([]engine.FormulaPair, len(body))
	for i, p := range body {
		if p[0] == "" || p[1] == "" {
			return nil, badRequest("pair " + strconv.Itoa(i) + " needs a cell id and a formula")
		}
		pairs[i] = engine.FormulaPair{CellID: p[0], Formula: p[1]}
	}
	return pairs, nil
}

func (s *Server) replaceSheet(c *gin.Context) {
	pairs, err := bindPairs(c)
	if err != nil {
		fail(c, err)
		return
	}

	err = s.withSheet(c, "replace", func(sh *spreadsheet.Sheet) error {
		return sh.Replace(c.Request.Context(), pairs)
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) updateSheet(c *gin.Context) {
	pairs, err := bindPairs(c)
	if err != nil {
		fail(c, err)
		return
	}

	var updates engine.Updates
	err = s.withSheet(c, "update", func(sh *spreadsheet.Sheet) error {
		var err error
		updates, err = sh.Update(c.Request.Context(), pairs)
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, spreadsheet.Values(updates))
}

func (s *Server) clearSheet(c *gin.Context) {
	err := s.withSheet(c, "clear", func(sh *spreadsheet.Sheet) error {
		return sh.Clear(c.Request.Context())
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) undo(c *gin.Context) {
	var ids []string
	err := s.withSheet(c, "undo", func(sh *spreadsheet.Sheet) error {
		var err error
		ids, err = sh.Undo(c.Request.Context())
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respond(c, http.StatusOK, undoResponse{Restored: ids})
}

func (s *Server) getCell(c *gin.Context) {
	var cell spreadsheet.Cell
	err := s.withSheet(c, "query", func(sh *spreadsheet.Sheet) error {
		r, err := sh.Query(c.Param("cell"))
		if err != nil {
			return err
		}
		id, _ := formula.NormalizeCellID(c.Param("cell"))
		cell = spreadsheet.Cell{ID: id, Formula: r.Formula, Value: spreadsheet.Value(r.Value)}
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, cell)
}

func (s *Server) setCell(c *gin.Context) {
	var req setCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest("request body must be a {formula} object"))
		return
	}

	s.mutateCell(c, "eval", func(sh *spreadsheet.Sheet) (engine.Updates, error) {
		return sh.Eval(c.Request.Context(), c.Param("cell"), req.Formula)
	})
}

func (s *Server) deleteCell(c *gin.Context) {
	s.mutateCell(c, "delete", func(sh *spreadsheet.Sheet) (engine.Updates, error) {
		return sh.Delete(c.Request.Context(), c.Param("cell"))
	})
}

func (s *Server) copyCell(c *gin.Context) {
	var req copyCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest("request body must be a {src} object"))
		return
	}

	s.mutateCell(c, "copy", func(sh *spreadsheet.Sheet) (engine.Updates, error) {
		return sh.Copy(c.Request.Context(), c.Param("cell"), req.Src)
	})
}

func (s *Server) mutateCell(c *gin.Context, op string, fn func(*spreadsheet.Sheet) (engine.Updates, error)) {
	var updates engine.Updates
	err := s.withSheet(c, op, func(sh *spreadsheet.Sheet) error {
		var err error
		updates, err = fn(sh)
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, spreadsheet.Values(updates))
}
