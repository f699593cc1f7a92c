package harness

import (
	"fmt"

	"github.com/roach88/richness/internal/analysis"
)

// Result is the outcome of one scenario.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Errors lists the failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Kind is the category of the run error, empty when the run succeeded.
	Kind analysis.ErrorKind `json:"kind,omitempty"`

	// Err is the run error itself.
	Err error `json:"-"`

	// Report is the analysis report, nil when the run failed.
	Report *analysis.Report `json:"-"`
}

// NewResult creates a passing result for the named scenario.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Errors:   []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
