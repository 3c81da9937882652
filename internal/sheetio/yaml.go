package sheetio

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/formula"
)

// yamlFile is the document layout:
//
//	cells:
//	  - id: A1
//	    formula: "5"
type yamlFile struct {
	Cells []engine.FormulaPair `yaml:"cells"`
}

// ReadYAML parses a YAML sheet. Unknown fields are rejected, as are pairs
// with a malformed id or an empty formula. Ids are returned canonical.
func ReadYAML(r io.Reader) ([]engine.FormulaPair, error) {
	var doc yamlFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []engine.FormulaPair{}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	pairs := make([]engine.FormulaPair, 0, len(doc.Cells))
	for i, p := range doc.Cells {
		id, err := formula.NormalizeCellID(p.CellID)
		if err != nil {
			return nil, fmt.Errorf("cells[%d]: %w", i, err)
		}
		if p.Formula == "" {
			return nil, fmt.Errorf("cells[%d]: formula is required", i)
		}
		pairs = append(pairs, engine.FormulaPair{CellID: id, Formula: p.Formula})
	}
	return pairs, nil
}

// WriteYAML writes pairs as a YAML sheet.
func WriteYAML(w io.Writer, pairs []engine.FormulaPair) error {
	if pairs == nil {
		pairs = []engine.FormulaPair{}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(yamlFile{Cells: pairs}); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return encoder.Close()
}
