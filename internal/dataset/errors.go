package dataset

import (
	"errors"
	"fmt"
)

// ParseError reports a cell that could not be converted to its column type.
type ParseError struct {
	// Line is the 1-based line number in the input, counting the header.
	Line int

	// Column is the header name of the offending cell.
	Column string

	// Value is the raw cell text.
	Value string

	// Err is the underlying conversion error, if any.
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: column %q: cannot parse %q: %v", e.Line, e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("line %d: column %q: cannot parse %q", e.Line, e.Column, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MissingColumnError reports a required column absent from the header.
type MissingColumnError struct {
	Column string
	Header []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q not found in header %v", e.Column, e.Header)
}

// DuplicateError reports a (locality, locus) pair observed more than once.
type DuplicateError struct {
	Locality string
	Locus    string
	Lines    [2]int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("locality %q has more than one observation for locus %q (lines %d and %d)",
		e.Locality, e.Locus, e.Lines[0], e.Lines[1])
}

// InconsistentHabitatError reports a locality recorded under two habitats.
type InconsistentHabitatError struct {
	Locality string
	Habitats [2]string
	Line     int
}

func (e *InconsistentHabitatError) Error() string {
	return fmt.Sprintf("line %d: locality %q recorded as both %q and %q",
		e.Line, e.Locality, e.Habitats[0], e.Habitats[1])
}

// ErrUnknownLevel is returned by WithReference for a level that was never observed.
var ErrUnknownLevel = errors.New("unknown factor level")

// ErrEmpty is returned when a table has a header but no observations.
var ErrEmpty = errors.New("table has no observations")

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsMissingColumn reports whether err is or wraps a *MissingColumnError.
func IsMissingColumn(err error) bool {
	var me *MissingColumnError
	return errors.As(err, &me)
}
