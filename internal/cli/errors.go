package cli

import (
	"errors"
	"io/fs"

	"github.com/roach88/richness/internal/analysis"
	"github.com/roach88/richness/internal/config"
	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/posthoc"
	"github.com/roach88/richness/internal/store"
)

// Error codes reported in CLI output.
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeParse            = "E002" // Unparseable table cell
	ErrCodeMissingColumn    = "E003" // Required column absent
	ErrCodeInvalidTable     = "E004" // Table violates a structural invariant
	ErrCodeNotFound         = "E005" // File or run not found
	ErrCodeConfig           = "E006" // Configuration rejected
	ErrCodeFit              = "E007" // Model could not be fitted
	ErrCodeInference        = "E008" // Test or comparison not defined for the fits
	ErrCodeLedger           = "E009" // Run ledger read/write failed
	ErrCodeNondeterministic = "E010" // Rerun disagrees with the recorded run
)

// describeError returns the output code for err and structured details
// where the error carries them.
func describeError(err error) (string, any) {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, store.ErrNotFound) {
		return ErrCodeNotFound, nil
	}

	kind := analysis.Kind(err)
	details := map[string]any{"kind": string(kind)}

	var (
		pe *dataset.ParseError
		ve *config.ValidationError
		ue *posthoc.UnderdeterminedComparisonError
	)
	switch {
	case errors.As(err, &pe):
		details["line"] = pe.Line
		details["column"] = pe.Column
		details["value"] = pe.Value
	case errors.As(err, &ve):
		fields := make([]string, len(ve.Fields))
		for i, fe := range ve.Fields {
			fields[i] = fe.Error()
		}
		details["fields"] = fields
	case errors.As(err, &ue):
		details["levels"] = ue.Levels
	}

	switch kind {
	case analysis.KindParse:
		return ErrCodeParse, details
	case analysis.KindMissingColumn:
		return ErrCodeMissingColumn, details
	case analysis.KindDuplicate, analysis.KindInconsistentHabitat,
		analysis.KindEmpty, analysis.KindUnknownLevel:
		return ErrCodeInvalidTable, details
	case analysis.KindConfig:
		return ErrCodeConfig, details
	case analysis.KindDesign, analysis.KindConvergence:
		return ErrCodeFit, details
	case analysis.KindMismatch, analysis.KindUnderdetermined:
		return ErrCodeInference, details
	}
	return ErrCodeGeneric, nil
}
