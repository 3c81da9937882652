// Package testutil holds deterministic helpers shared by tests and the
// scenario harness.
package testutil

import "sync/atomic"

// StepCounter numbers the steps of a scenario run. The first Next returns
// 1, and Reset starts the numbering over so a scenario can be run twice
// with identical traces.
//
// Thread-safety: StepCounter is safe for concurrent use.
type StepCounter struct {
	n atomic.Int64
}

// NewStepCounter creates a counter at zero.
func NewStepCounter() *StepCounter {
	return &StepCounter{}
}

// Next increments and returns the step number.
func (c *StepCounter) Next() int64 {
	return c.n.Add(1)
}

// Current returns the last step number handed out.
func (c *StepCounter) Current() int64 {
	return c.n.Load()
}

// Reset sets the counter back to zero.
func (c *StepCounter) Reset() {
	c.n.Store(0)
}
