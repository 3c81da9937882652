package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data, func(io.Writer) { t.Fatal("text rendering used in json mode") })
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"status\": \"ok\",\n  \"data\": {\n    \"result\": \"success\"\n  }\n}\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("SYNTAX", "bad formula", nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, sonic.ConfigStd.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SYNTAX", resp.Error.Code)
	assert.Equal(t, "bad formula", resp.Error.Message)
	assert.Nil(t, resp.Data)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"cell": "A1"}
	err := formatter.Error("CIRCULAR_REF", "cycle", details)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, sonic.ConfigStd.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, map[string]any{"cell": "A1"}, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success(42, func(w io.Writer) { fmt.Fprintln(w, "the answer") })
	require.NoError(t, err)
	assert.Equal(t, "the answer\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "text",
		Writer:    out,
		ErrWriter: errOut,
	}

	err := formatter.Error("SYNTAX", "bad formula", map[string]string{"cell": "A1"})
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, "Error [SYNTAX]: bad formula\n", errOut.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("SYNTAX", "bad formula", "A1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [SYNTAX]")
	assert.Contains(t, buf.String(), "Details: A1")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Loading %s", "budget")

			if tt.wantLog {
				assert.Equal(t, "Loading budget\n", buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"syntax", engine.NewSyntaxError("A1", errors.New("unexpected end")), "SYNTAX", ExitFailure},
		{"cycle", engine.NewCircularRefError("B2"), "CIRCULAR_REF", ExitFailure},
		{"invalid name", fmt.Errorf("load: %w", spreadsheet.ErrInvalidName), ErrCodeInvalidInput, ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad flag"), ErrCodeInvalidInput, ExitCommandError},
		{"other", errors.New("boom"), ErrCodeInternal, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Fail(tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, sonic.ConfigStd.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "circular ref involving B2 (cell=B2)", errorText(engine.NewCircularRefError("B2")))
	assert.Equal(t, "boom", errorText(errors.New("boom")))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", WrapExitError(ExitFailure, "y", errors.New("z")))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestExitError_Error(t *testing.T) {
	err := WrapExitError(ExitFailure, "operation failed", errors.New("disk full"))
	assert.Equal(t, "operation failed: disk full", err.Error())
	assert.EqualError(t, err.Unwrap(), "disk full")
	assert.Equal(t, "bad flag", NewExitError(ExitCommandError, "bad flag").Error())
}

func TestWriteUpdates(t *testing.T) {
	buf := &bytes.Buffer{}
	writeUpdates(buf, engine.Updates{"B1": 2.5, "A1": 5, "C1": math.Inf(1)})
	assert.Equal(t, "A1 = 5\nB1 = 2.5\nC1 = #DIV/0!\n", buf.String())
}
