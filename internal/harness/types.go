package harness

import "github.com/roach88/dqb/internal/query"

// StepResult is what one step produced.
type StepResult struct {
	Name      string
	RequestID string

	// Error is the error code when the step failed, empty otherwise.
	Error   string
	Message string

	SQL     string
	Params  []any
	Count   int64
	Records []query.Record
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause matched.
	Pass bool

	// Steps holds one entry per scenario step, in order.
	Steps []StepResult

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
