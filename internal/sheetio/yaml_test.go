package sheetio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcalc/internal/engine"
)

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	err := WriteYAML(&buf, []engine.FormulaPair{
		{CellID: "A1", Formula: "5"},
		{CellID: "B1", Formula: "=A1*2"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "cells:\n  - id: A1\n"), out)
	assert.Contains(t, out, `formula: "5"`)

	pairs, err := ReadYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, []engine.FormulaPair{
		{CellID: "A1", Formula: "5"},
		{CellID: "B1", Formula: "=A1*2"},
	}, pairs)
}

func TestWriteYAML_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, nil))
	assert.Equal(t, "cells: []\n", buf.String())
}

func TestReadYAML(t *testing.T) {
	in := `
cells:
  - id: b1
    formula: "=A1*2"
  - id: $A$1
    formula: "5"
`
	pairs, err := ReadYAML(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []engine.FormulaPair{
		{CellID: "B1", Formula: "=A1*2"},
		{CellID: "A1", Formula: "5"},
	}, pairs)
}

func TestReadYAML_EmptyDocument(t *testing.T) {
	pairs, err := ReadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestReadYAML_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unknown field", "cells:\n  - id: A1\n    value: 5\n", "field value not found"},
		{"bad id", "cells:\n  - id: 1A\n    formula: \"5\"\n", "cells[0]"},
		{"missing formula", "cells:\n  - id: A1\n", "formula is required"},
		{"not yaml", "cells: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadYAML(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestYAML_RoundTripReplays(t *testing.T) {
	s := engine.New()
	_, err := s.Eval("C1", "=A1+B1")
	require.NoError(t, err)
	_, err = s.Eval("A1", "2")
	require.NoError(t, err)
	_, err = s.Eval("B1", "=A1*10")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, s.Dump()))

	pairs, err := ReadYAML(&buf)
	require.NoError(t, err)

	replayed := engine.New()
	for _, p := range pairs {
		_, err := replayed.Eval(p.CellID, p.Formula)
		require.NoError(t, err)
	}
	r, err := replayed.Query("C1")
	require.NoError(t, err)
	assert.Equal(t, float64(22), r.Value)
}
