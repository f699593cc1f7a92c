package inference

import (
	"gonum.org/v1/gonum/stat"

	"github.com/roach88/richness/internal/lmm"
)

// R2 is the variance decomposition of a fitted model.
type R2 struct {
	// VarFixed is the sample variance of the fixed-effects predictor Xβ̂.
	VarFixed    float64 `json:"var_fixed"`
	VarRandom   float64 `json:"var_random"`
	VarResidual float64 `json:"var_residual"`

	// Marginal is the share explained by the fixed effects alone.
	Marginal float64 `json:"marginal"`

	// Conditional is the share explained by fixed and random effects.
	Conditional float64 `json:"conditional"`
}

// RSquared computes marginal and conditional R² for m.
func RSquared(m *lmm.FittedModel) R2 {
	r := R2{
		VarRandom:   m.Variance.Group,
		VarResidual: m.Variance.Residual,
	}
	if xb := m.FixedPredictor(); len(xb) > 1 {
		r.VarFixed = stat.Variance(xb, nil)
	}
	// Clamp rounding error below zero.
	if r.VarFixed < 0 {
		r.VarFixed = 0
	}

	total := r.VarFixed + r.VarRandom + r.VarResidual
	if total > 0 {
		r.Marginal = r.VarFixed / total
		r.Conditional = (r.VarFixed + r.VarRandom) / total
	}
	return r
}
