package inference

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/roach88/richness/internal/lmm"
)

// noiseTolerance is the largest negative likelihood-ratio statistic treated
// as optimizer noise and clamped to zero.
const noiseTolerance = 1e-8

// ModelRow is one line of the model-comparison table.
type ModelRow struct {
	Formula  string  `json:"formula"`
	NParams  int     `json:"n_params"`
	AIC      float64 `json:"aic"`
	BIC      float64 `json:"bic"`
	LogLik   float64 `json:"log_lik"`
	Deviance float64 `json:"deviance"`
}

// LRTResult is the likelihood-ratio test of a full model against a nested
// null model.
type LRTResult struct {
	Null ModelRow `json:"null"`
	Full ModelRow `json:"full"`

	// Statistic is 2(logLik_full - logLik_null), never negative.
	Statistic float64 `json:"statistic"`
	DF        int     `json:"df"`
	PValue    float64 `json:"p_value"`
}

// LikelihoodRatio compares full against null. Both must be maximum
// likelihood fits to the same observations with the same grouping factor,
// and full must have more parameters.
func LikelihoodRatio(null, full *lmm.FittedModel) (*LRTResult, error) {
	mismatch := func(format string, args ...any) error {
		return &ModelMismatchError{Null: null.Formula, Full: full.Formula, Reason: fmt.Sprintf(format, args...)}
	}

	switch {
	case null.NObs != full.NObs:
		return nil, mismatch("fitted on %d and %d observations", null.NObs, full.NObs)
	case null.DataDigest != full.DataDigest:
		return nil, mismatch("fitted on different data")
	case null.Spec.Group != full.Spec.Group:
		return nil, mismatch("grouping factors %q and %q differ", null.Spec.Group, full.Spec.Group)
	case null.Criterion != lmm.CriterionML || full.Criterion != lmm.CriterionML:
		return nil, mismatch("both models must be fitted by %s, got %s and %s", lmm.CriterionML, null.Criterion, full.Criterion)
	}

	df := full.NParams - null.NParams
	if df <= 0 {
		return nil, mismatch("models are not nested: %d vs %d parameters", null.NParams, full.NParams)
	}

	stat := 2 * (full.LogLik - null.LogLik)
	if stat < 0 {
		if stat < -noiseTolerance {
			return nil, mismatch("full model log-likelihood %.6g is below null %.6g", full.LogLik, null.LogLik)
		}
		stat = 0
	}

	return &LRTResult{
		Null:      row(null),
		Full:      row(full),
		Statistic: stat,
		DF:        df,
		PValue:    distuv.ChiSquared{K: float64(df)}.Survival(stat),
	}, nil
}

func row(m *lmm.FittedModel) ModelRow {
	return ModelRow{
		Formula:  m.Formula,
		NParams:  m.NParams,
		AIC:      m.AIC,
		BIC:      m.BIC,
		LogLik:   m.LogLik,
		Deviance: m.Deviance,
	}
}
