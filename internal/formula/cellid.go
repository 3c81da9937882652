package formula

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	maxColumnLetters = 7
	maxRowDigits     = 9
)

// CellID addresses a single cell. Col and Row are 0-based, so "A1" is
// CellID{Col: 0, Row: 0}.
type CellID struct {
	Col int
	Row int
}

// String returns the canonical id, e.g. "B12".
func (c CellID) String() string {
	return ColumnName(c.Col) + strconv.Itoa(c.Row+1)
}

// Valid reports whether both coordinates are non-negative.
func (c CellID) Valid() bool {
	return c.Col >= 0 && c.Row >= 0
}

// ParseCellID canonicalizes a cell reference such as "a1", "$B$2" or "AA10".
// Absolute markers are stripped and letters upper-cased.
func ParseCellID(s string) (CellID, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "$", ""))
	if name == "" {
		return CellID{}, fmt.Errorf("empty cell id")
	}

	i := 0
	for i < len(name) && name[i] >= 'A' && name[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(name) {
		return CellID{}, fmt.Errorf("invalid cell id %q", s)
	}
	if i > maxColumnLetters || len(name)-i > maxRowDigits {
		return CellID{}, fmt.Errorf("cell id %q out of range", s)
	}

	col, err := ColumnIndex(name[:i])
	if err != nil {
		return CellID{}, fmt.Errorf("invalid cell id %q: %w", s, err)
	}

	digits := name[i:]
	if digits[0] == '0' || strings.IndexFunc(digits, notDigit) >= 0 {
		return CellID{}, fmt.Errorf("invalid row in cell id %q", s)
	}
	row, err := strconv.Atoi(digits)
	if err != nil {
		return CellID{}, fmt.Errorf("invalid row in cell id %q", s)
	}

	return CellID{Col: col, Row: row - 1}, nil
}

// MustCellID is ParseCellID for ids known to be valid. It panics otherwise.
func MustCellID(s string) CellID {
	id, err := ParseCellID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NormalizeCellID returns the canonical form of a cell reference.
func NormalizeCellID(s string) (string, error) {
	id, err := ParseCellID(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ColumnName converts a 0-based column index to letters.
// 0→"A", 25→"Z", 26→"AA".
func ColumnName(col int) string {
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append(b, byte('A'+(n-1)%26))
	}
	for l, r := 0, len(b)-1; l < r; l, r = l+1, r-1 {
		b[l], b[r] = b[r], b[l]
	}
	return string(b)
}

// ColumnIndex converts column letters to a 0-based index. "A"→0, "AA"→26.
func ColumnIndex(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	col := 0
	for _, ch := range strings.ToUpper(name) {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column name %q", name)
		}
		col = col*26 + int(ch-'A'+1)
	}
	return col - 1, nil
}

func notDigit(r rune) bool {
	return r < '0' || r > '9'
}
