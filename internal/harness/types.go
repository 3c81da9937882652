package harness

import "github.com/roach88/gridcalc/internal/spreadsheet"

// TraceEvent records one executed step.
type TraceEvent struct {
	Step     int64                        `json:"step"`
	Op       string                       `json:"op"`
	Cell     string                       `json:"cell,omitempty"`
	Formula  string                       `json:"formula,omitempty"`
	Src      string                       `json:"src,omitempty"`
	Updates  map[string]spreadsheet.Value `json:"updates,omitempty"`
	Value    *spreadsheet.Value           `json:"value,omitempty"`
	Restored []string                     `json:"restored,omitempty"`
	Error    string                       `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Cells is the final sheet in dependency order.
	Cells []spreadsheet.Cell `json:"cells"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Cells:  []spreadsheet.Cell{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
