package harness

import (
	"github.com/roach88/jamc/internal/compiler"
	"github.com/roach88/jamc/internal/ir"
)

// Result is the outcome of a scenario.
type Result struct {
	// Pass indicates overall success: the pass behaved as expected and every
	// expectation matched.
	Pass bool `json:"pass"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// ErrorKind is the kind of the compile error, if the pass failed.
	ErrorKind string `json:"error_kind,omitempty"`

	// Validation holds IR validation findings on a successful pass.
	Validation []compiler.ValidationError `json:"validation,omitempty"`

	// Output is the compiled output, nil if the pass failed.
	Output *ir.Output `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
