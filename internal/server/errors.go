package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

// Error codes that do not come from the engine or the persistence layer.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL"
)

// requestError is a malformed request: bad JSON body, missing field, blank
// sheet name.
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

// classify maps err to an HTTP status and error code.
func classify(err error) (int, string) {
	var re *requestError
	switch {
	case errors.As(err, &re), errors.Is(err, spreadsheet.ErrInvalidName):
		return http.StatusBadRequest, CodeBadRequest
	case engine.IsSyntaxError(err), engine.IsCircularRefError(err):
		return http.StatusBadRequest, string(engine.CodeOf(err))
	case spreadsheet.IsDBError(err):
		return http.StatusInternalServerError, string(spreadsheet.ErrCodeDB)
	}
	return http.StatusInternalServerError, CodeInternal
}

// codeLabel is the metrics label for the outcome of an operation.
func codeLabel(err error) string {
	if err == nil {
		return "OK"
	}
	_, code := classify(err)
	return code
}

func fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	respondError(c, status, code, err.Error())
}
