package engine

import (
	"fmt"
	"math"

	"github.com/roach88/gridcalc/internal/formula"
)

// evaluate computes n for the formula stored at id. Every reference adds id
// to the dependents of the referenced cell and reads that cell's cached
// value; referenced cells are not re-evaluated.
func (s *Sheet) evaluate(id formula.CellID, n formula.Node) float64 {
	switch n := n.(type) {
	case nil:
		return 0
	case *formula.Number:
		return n.Value
	case *formula.Ref:
		target, ok := n.Resolve(id)
		if !ok {
			panic(fmt.Sprintf("engine: reference in %s resolves off the sheet", id))
		}
		key := id.String()
		c := s.updateCell(target, func(c *cell) {
			c.dependents[key] = struct{}{}
		})
		return c.value
	case *formula.App:
		args := make([]float64, len(n.Args))
		for i, arg := range n.Args {
			args[i] = s.evaluate(id, arg)
		}
		return apply(n.Fn, args)
	default:
		panic(fmt.Sprintf("engine: unknown formula node %T", n))
	}
}

func apply(fn string, args []float64) float64 {
	switch fn {
	case "+":
		arity(fn, args, 2)
		return args[0] + args[1]
	case "*":
		arity(fn, args, 2)
		return args[0] * args[1]
	case "/":
		arity(fn, args, 2)
		return args[0] / args[1]
	case "-":
		if len(args) == 1 {
			return -args[0]
		}
		arity(fn, args, 2)
		return args[0] - args[1]
	case "min", "max":
		if len(args) == 0 {
			panic(fmt.Sprintf("engine: %s without arguments", fn))
		}
		pick := math.Min
		if fn == "max" {
			pick = math.Max
		}
		v := args[0]
		for _, a := range args[1:] {
			v = pick(v, a)
		}
		return v
	default:
		panic(fmt.Sprintf("engine: unknown operator %q", fn))
	}
}

func arity(fn string, args []float64, want int) {
	if len(args) != want {
		panic(fmt.Sprintf("engine: operator %q takes %d operands, got %d", fn, want, len(args)))
	}
}

// setFormula replaces the formula at id with ast and recomputes everything
// that depends on it.
func (s *Sheet) setFormula(id formula.CellID, ast formula.Node) (Updates, error) {
	var old formula.Node
	if c := s.get(id); c != nil {
		old = c.ast
	}
	return s.reconcile(id, old, ast)
}

// reconcile is the single step that moves a cell from formula old to formula
// ast: the new AST is stored, the edges created by old are severed and the
// cell is re-evaluated, which creates the edges of ast.
func (s *Sheet) reconcile(id formula.CellID, old, ast formula.Node) (Updates, error) {
	s.updateCell(id, func(c *cell) { c.ast = ast })
	s.sever(id, old)
	return s.propagate(id)
}

// sever removes id from the dependents of every cell referenced by ast.
// Placeholders left without dependents are dropped.
func (s *Sheet) sever(id formula.CellID, ast formula.Node) {
	if ast == nil {
		return
	}
	key := id.String()
	formula.Refs(ast, func(r *formula.Ref) {
		target, ok := r.Resolve(id)
		if !ok || s.get(target) == nil {
			return
		}
		c := s.updateCell(target, func(c *cell) {
			delete(c.dependents, key)
		})
		if c.empty() && len(c.dependents) == 0 {
			s.removeCell(target)
		}
	})
}

// propagate evaluates id, then recomputes its transitive dependents in
// topological order, each exactly once.
func (s *Sheet) propagate(id formula.CellID) (Updates, error) {
	s.recompute(id)

	order, err := s.affected(id)
	if err != nil {
		return nil, err
	}

	updates := make(Updates, len(order))
	for i, dep := range order {
		if i > 0 {
			s.recompute(dep)
		}
		updates[dep.String()] = s.get(dep).value
	}
	return updates, nil
}

// recompute evaluates the formula of id and caches the result.
func (s *Sheet) recompute(id formula.CellID) {
	c := s.get(id)
	v := s.evaluate(id, c.ast)
	s.updateCell(id, func(c *cell) { c.value = v })
}

// affected walks the dependents of id depth first. A dependent that is still
// on the walk stack closes a cycle. The result is the reverse postorder of
// the walk, so id comes first and every cell follows all of its affected
// prerequisites.
func (s *Sheet) affected(id formula.CellID) ([]formula.CellID, error) {
	working := make(map[string]bool)
	done := make(map[string]bool)
	var post []formula.CellID

	var visit func(c *cell) error
	visit = func(c *cell) error {
		key := c.id.String()
		working[key] = true
		for _, dep := range c.sortedDependents() {
			if working[dep] {
				return NewCircularRefError(dep)
			}
			if done[dep] {
				continue
			}
			if err := visit(s.cells[dep]); err != nil {
				return err
			}
		}
		delete(working, key)
		done[key] = true
		post = append(post, c.id)
		return nil
	}

	if err := visit(s.get(id)); err != nil {
		return nil, err
	}

	order := make([]formula.CellID, len(post))
	for i, c := range post {
		order[len(post)-1-i] = c
	}
	return order, nil
}
