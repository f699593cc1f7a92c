package lmm

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// ConvergenceError reports that the optimizer did not reach a converged
// estimate of θ.
type ConvergenceError struct {
	// Formula identifies the model being fitted.
	Formula string

	// Status is the optimizer's final status.
	Status optimize.Status

	// Iterations and Evaluations are the work done before stopping.
	Iterations  int
	Evaluations int

	// Err is the error returned by the optimizer, if any.
	Err error
}

func (e *ConvergenceError) Error() string {
	msg := fmt.Sprintf("model %q did not converge: status %v after %d iterations",
		e.Formula, e.Status, e.Iterations)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConvergenceError) Unwrap() error {
	return e.Err
}

// SingularFitError is a warning: the locus variance was estimated at (or
// numerically indistinguishable from) zero. It is attached to the fitted
// model rather than returned from Fit.
type SingularFitError struct {
	Formula string
	Theta   float64
}

func (e *SingularFitError) Error() string {
	return fmt.Sprintf("model %q: singular fit (locus variance at boundary, theta=%.3g)", e.Formula, e.Theta)
}

// DesignError reports a model that cannot be estimated from the data.
type DesignError struct {
	Formula string
	Reason  string
}

func (e *DesignError) Error() string {
	return fmt.Sprintf("model %q: %s", e.Formula, e.Reason)
}

// IsConvergence reports whether err is or wraps a *ConvergenceError.
func IsConvergence(err error) bool {
	var ce *ConvergenceError
	return errors.As(err, &ce)
}

// IsSingular reports whether err is or wraps a *SingularFitError.
func IsSingular(err error) bool {
	var se *SingularFitError
	return errors.As(err, &se)
}

// IsDesign reports whether err is or wraps a *DesignError.
func IsDesign(err error) bool {
	var de *DesignError
	return errors.As(err, &de)
}
