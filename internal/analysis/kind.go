package analysis

import (
	"errors"

	"github.com/roach88/richness/internal/config"
	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/inference"
	"github.com/roach88/richness/internal/lmm"
	"github.com/roach88/richness/internal/posthoc"
)

// ErrorKind names the category of a run error.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindParse               ErrorKind = "parse"
	KindMissingColumn       ErrorKind = "missing_column"
	KindDuplicate           ErrorKind = "duplicate"
	KindInconsistentHabitat ErrorKind = "inconsistent_habitat"
	KindEmpty               ErrorKind = "empty"
	KindUnknownLevel        ErrorKind = "unknown_level"
	KindConfig              ErrorKind = "config"
	KindDesign              ErrorKind = "design"
	KindConvergence         ErrorKind = "convergence"
	KindMismatch            ErrorKind = "mismatch"
	KindUnderdetermined     ErrorKind = "underdetermined"
	KindOther               ErrorKind = "other"
)

// Kind classifies err. It returns KindNone for a nil error.
func Kind(err error) ErrorKind {
	var (
		dup *dataset.DuplicateError
		inc *dataset.InconsistentHabitatError
	)
	switch {
	case err == nil:
		return KindNone
	case dataset.IsParseError(err):
		return KindParse
	case dataset.IsMissingColumn(err):
		return KindMissingColumn
	case errors.As(err, &dup):
		return KindDuplicate
	case errors.As(err, &inc):
		return KindInconsistentHabitat
	case errors.Is(err, dataset.ErrEmpty):
		return KindEmpty
	case errors.Is(err, dataset.ErrUnknownLevel):
		return KindUnknownLevel
	case config.IsValidation(err):
		return KindConfig
	case lmm.IsDesign(err):
		return KindDesign
	case lmm.IsConvergence(err):
		return KindConvergence
	case inference.IsModelMismatch(err):
		return KindMismatch
	case posthoc.IsUnderdetermined(err):
		return KindUnderdetermined
	}
	return KindOther
}
