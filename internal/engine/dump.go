package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/gridcalc/internal/formula"
)

// FormulaPair is one entry of a dump.
type FormulaPair struct {
	CellID  string `json:"cell_id" yaml:"id"`
	Formula string `json:"formula" yaml:"formula"`
}

// Dump returns every non-empty cell with its formula, ordered by dependency
// depth and then by id. A cell has depth 0 if it references no non-empty
// cell, otherwise one more than the deepest non-empty cell it references.
// Replaying a dump in order through Eval rebuilds the sheet.
func (s *Sheet) Dump() []FormulaPair {
	prereqs := make(map[string]map[string]bool)
	for key, c := range s.cells {
		if c.empty() {
			continue
		}
		set := make(map[string]bool)
		formula.Refs(c.ast, func(r *formula.Ref) {
			target, ok := r.Resolve(c.id)
			if !ok {
				return
			}
			if t := s.get(target); t != nil && !t.empty() {
				set[target.String()] = true
			}
		})
		prereqs[key] = set
	}

	out := make([]FormulaPair, 0, len(prereqs))
	placed := make(map[string]bool, len(prereqs))
	for len(placed) < len(prereqs) {
		var batch []string
		for key, set := range prereqs {
			if placed[key] || !allPlaced(set, placed) {
				continue
			}
			batch = append(batch, key)
		}
		if len(batch) == 0 {
			panic(fmt.Sprintf("engine: dump stalled with %d of %d cells placed", len(placed), len(prereqs)))
		}

		slices.Sort(batch)
		for _, key := range batch {
			placed[key] = true
			c := s.cells[key]
			out = append(out, FormulaPair{CellID: key, Formula: formula.Render(c.ast, c.id)})
		}
	}
	return out
}

func allPlaced(set, placed map[string]bool) bool {
	for key := range set {
		if !placed[key] {
			return false
		}
	}
	return true
}
