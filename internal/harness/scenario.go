package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gridcalc/internal/engine"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup lists cells evaluated in order before the steps. Setup must
	// succeed and is not traced.
	Setup []engine.FormulaPair `yaml:"setup,omitempty"`

	// Steps are the traced operations.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final sheet.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one sheet operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Cell is the target cell of eval, delete and query, and the
	// destination of copy.
	Cell string `yaml:"cell,omitempty"`

	// Formula is the text passed to eval.
	Formula string `yaml:"formula,omitempty"`

	// Src is the source cell of copy.
	Src string `yaml:"src,omitempty"`

	// Expect validates the outcome. If nil the step must not fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step. Unset fields are not
// checked.
type Expect struct {
	// Error is the expected error code, e.g. "SYNTAX" or "CIRCULAR_REF".
	Error string `yaml:"error,omitempty"`

	// Updates is the exact set of values the step reports.
	Updates map[string]float64 `yaml:"updates,omitempty"`

	// Value is the value returned by query.
	Value *float64 `yaml:"value,omitempty"`

	// Formula is the canonical formula returned by query.
	Formula *string `yaml:"formula,omitempty"`

	// Restored lists the ids returned by undo.
	Restored []string `yaml:"restored,omitempty"`
}

// Operation names.
const (
	OpEval   = "eval"
	OpDelete = "delete"
	OpCopy   = "copy"
	OpUndo   = "undo"
	OpClear  = "clear"
	OpQuery  = "query"
)

// Assertion validates the final sheet.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Cell is the cell under test.
	Cell string `yaml:"cell,omitempty"`

	// Other is the cell that must follow Cell (dump_before).
	Other string `yaml:"other,omitempty"`

	// Value is the expected value (cell_value).
	Value *float64 `yaml:"value,omitempty"`

	// Formula is the expected canonical formula (cell_formula).
	Formula string `yaml:"formula,omitempty"`

	// Count is the expected number of cells (cell_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCellValue   = "cell_value"
	AssertCellFormula = "cell_formula"
	AssertCellEmpty   = "cell_empty"
	AssertCellCount   = "cell_count"
	AssertDumpBefore  = "dump_before"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields so that "assertion:" is not silently ignored
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, p := range s.Setup {
		if p.CellID == "" || p.Formula == "" {
			return fmt.Errorf("setup[%d]: id and formula are required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Op {
	case OpEval:
		if s.Cell == "" || s.Formula == "" {
			return fmt.Errorf("steps[%d]: cell and formula are required for eval", index)
		}
	case OpDelete, OpQuery:
		if s.Cell == "" {
			return fmt.Errorf("steps[%d]: cell is required for %s", index, s.Op)
		}
	case OpCopy:
		if s.Cell == "" || s.Src == "" {
			return fmt.Errorf("steps[%d]: cell and src are required for copy", index)
		}
	case OpUndo, OpClear:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCellValue:
		if a.Cell == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: cell and value are required for cell_value", index)
		}
	case AssertCellFormula:
		if a.Cell == "" || a.Formula == "" {
			return fmt.Errorf("assertions[%d]: cell and formula are required for cell_formula", index)
		}
	case AssertCellEmpty:
		if a.Cell == "" {
			return fmt.Errorf("assertions[%d]: cell is required for cell_empty", index)
		}
	case AssertCellCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for cell_count", index)
		}
	case AssertDumpBefore:
		if a.Cell == "" || a.Other == "" {
			return fmt.Errorf("assertions[%d]: cell and other are required for dump_before", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
