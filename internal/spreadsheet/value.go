package spreadsheet

import (
	"math"
	"strconv"

	"github.com/roach88/gridcalc/internal/engine"
)

// Value is a cell value as written to JSON. Values that are not finite,
// such as the result of dividing by zero, encode as null.
type Value float64

// Finite reports whether v is neither NaN nor infinite.
func (v Value) Finite() bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Finite() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(v), 'g', -1, 64), nil
}

// String formats v the way formulas write numbers. A value that is not
// finite reads "#DIV/0!", as in other spreadsheets.
func (v Value) String() string {
	if !v.Finite() {
		return "#DIV/0!"
	}
	return strconv.FormatFloat(float64(v), 'f', -1, 64)
}

// Values converts engine updates for JSON output.
func Values(u engine.Updates) map[string]Value {
	out := make(map[string]Value, len(u))
	for id, v := range u {
		out[id] = Value(v)
	}
	return out
}
