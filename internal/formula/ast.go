package formula

import (
	"strconv"
	"strings"
)

// Node is a parsed formula tree. Nodes are immutable once parsed and may be
// shared freely.
type Node interface {
	node()
}

// Number is a numeric literal.
type Number struct {
	Value float64
}

// Axis is one coordinate of a reference: an absolute index when Abs is set,
// otherwise an offset from the base cell.
type Axis struct {
	Abs bool
	N   int
}

func (a Axis) at(base int) int {
	if a.Abs {
		return a.N
	}
	return base + a.N
}

// Ref is a cell reference.
type Ref struct {
	Col Axis
	Row Axis
}

// App applies the operator or function Fn to Args. Fn is one of
// "+", "-", "*", "/", "min", "max".
type App struct {
	Fn   string
	Args []Node
}

func (*Number) node() {}
func (*Ref) node()    {}
func (*App) node()    {}

// Resolve returns the cell the reference points at when its formula lives
// in base. ok is false if the reference falls off the sheet.
func (r *Ref) Resolve(base CellID) (id CellID, ok bool) {
	id = CellID{Col: r.Col.at(base.Col), Row: r.Row.at(base.Row)}
	return id, id.Valid()
}

// Refs calls fn for every reference in n, in source order.
func Refs(n Node, fn func(*Ref)) {
	switch n := n.(type) {
	case *Ref:
		fn(n)
	case *App:
		for _, arg := range n.Args {
			Refs(arg, fn)
		}
	}
}

// Render returns the formula text of n as if it were entered at base.
// A bare number renders without the leading "=".
func Render(n Node, base CellID) string {
	if num, ok := n.(*Number); ok {
		return formatNumber(num.Value)
	}
	var b strings.Builder
	b.WriteByte('=')
	render(&b, n, base)
	return b.String()
}

const (
	precAdditive = iota + 1
	precMultiplicative
	precUnary
	precAtom
)

func precedence(n Node) int {
	app, ok := n.(*App)
	if !ok {
		return precAtom
	}
	switch {
	case isFunction(app.Fn):
		return precAtom
	case len(app.Args) == 1:
		return precUnary
	case app.Fn == "+" || app.Fn == "-":
		return precAdditive
	default:
		return precMultiplicative
	}
}

func render(b *strings.Builder, n Node, base CellID) {
	switch n := n.(type) {
	case *Number:
		b.WriteString(formatNumber(n.Value))
	case *Ref:
		renderRef(b, n, base)
	case *App:
		switch {
		case isFunction(n.Fn):
			b.WriteString(n.Fn)
			b.WriteByte('(')
			for i, arg := range n.Args {
				if i > 0 {
					b.WriteByte(',')
				}
				render(b, arg, base)
			}
			b.WriteByte(')')
		case len(n.Args) == 1:
			b.WriteString(n.Fn)
			renderOperand(b, n.Args[0], base, precedence(n.Args[0]) < precAtom)
		default:
			p := precedence(n)
			renderOperand(b, n.Args[0], base, precedence(n.Args[0]) < p)
			b.WriteString(n.Fn)
			// operators are left-associative, so an equal-precedence right
			// operand keeps its parentheses
			renderOperand(b, n.Args[1], base, precedence(n.Args[1]) <= p)
		}
	}
}

func renderOperand(b *strings.Builder, n Node, base CellID, paren bool) {
	if paren {
		b.WriteByte('(')
	}
	render(b, n, base)
	if paren {
		b.WriteByte(')')
	}
}

func renderRef(b *strings.Builder, r *Ref, base CellID) {
	id, ok := r.Resolve(base)
	if !ok {
		b.WriteString(refError)
		return
	}
	if r.Col.Abs {
		b.WriteByte('$')
	}
	b.WriteString(ColumnName(id.Col))
	if r.Row.Abs {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(id.Row + 1))
}

// refError stands in for a reference shifted off the sheet. It does not
// parse, so evaluating such a formula fails with a syntax error.
const refError = "#REF!"

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isFunction(fn string) bool {
	return fn == "min" || fn == "max"
}
