package lmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/roach88/richness/internal/dataset"
)

// CriterionML identifies maximum-likelihood estimation.
const CriterionML = "ML"

// InterceptTerm names the intercept coefficient.
const InterceptTerm = "(Intercept)"

// Spec names the response, the optional fixed factor and the grouping factor
// of a random-intercept model.
type Spec struct {
	Response string `json:"response"`

	// Fixed is the fixed-effect factor. Empty means an intercept-only
	// (null) model.
	Fixed string `json:"fixed,omitempty"`

	Group string `json:"group"`
}

// FullSpec returns the habitat model for the table's columns.
func FullSpec(cols dataset.Columns) Spec {
	return Spec{Response: cols.Response, Fixed: cols.Habitat, Group: cols.Locus}
}

// NullSpec returns the intercept-only model for the table's columns.
func NullSpec(cols dataset.Columns) Spec {
	return Spec{Response: cols.Response, Group: cols.Locus}
}

// HasFixed reports whether the model includes the fixed factor.
func (s Spec) HasFixed() bool {
	return s.Fixed != ""
}

// Formula renders the model in the conventional mixed-model notation.
func (s Spec) Formula() string {
	rhs := "1"
	if s.HasFixed() {
		rhs = s.Fixed
	}
	return fmt.Sprintf("%s ~ %s + (1 | %s)", s.Response, rhs, s.Group)
}

// Options tune the optimizer.
type Options struct {
	// MaxIterations bounds the optimizer's major iterations.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Tolerance is the absolute deviance change below which the
	// optimizer is considered converged.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`

	// SingularTolerance is the θ below which a fit is flagged singular.
	SingularTolerance float64 `json:"singular_tolerance" yaml:"singular_tolerance"`
}

// DefaultOptions returns the optimizer defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations:     1000,
		Tolerance:         1e-10,
		SingularTolerance: 1e-4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.SingularTolerance <= 0 {
		o.SingularTolerance = d.SingularTolerance
	}
	return o
}

// Coefficient is one fixed-effect estimate.
type Coefficient struct {
	Term     string  `json:"term"`
	Estimate float64 `json:"estimate"`
	StdError float64 `json:"std_error"`
	TValue   float64 `json:"t_value"`
}

// VarianceComponents holds the estimated variances.
type VarianceComponents struct {
	// Group is the between-locus variance σ_b².
	Group float64 `json:"group"`

	// Residual is the within-locus variance σ².
	Residual float64 `json:"residual"`
}

// GroupSD returns σ_b.
func (v VarianceComponents) GroupSD() float64 {
	return math.Sqrt(v.Group)
}

// ResidualSD returns σ.
func (v VarianceComponents) ResidualSD() float64 {
	return math.Sqrt(v.Residual)
}

// RandomEffect is the predicted intercept shift (BLUP) of one group.
type RandomEffect struct {
	Group     string  `json:"group"`
	N         int     `json:"n"`
	Intercept float64 `json:"intercept"`
}

// FittedModel is the result of one maximum-likelihood fit.
//
// A FittedModel is never modified after Fit returns.
type FittedModel struct {
	Spec      Spec   `json:"spec"`
	Formula   string `json:"formula"`
	Criterion string `json:"criterion"`

	NObs    int `json:"n_obs"`
	NGroups int `json:"n_groups"`

	// Levels are the fixed-factor levels, reference first. Nil for a null model.
	Levels []string `json:"levels,omitempty"`

	// Groups are the grouping-factor levels.
	Groups []string `json:"groups"`

	Coefficients  []Coefficient      `json:"coefficients"`
	Variance      VarianceComponents `json:"variance"`
	RandomEffects []RandomEffect     `json:"random_effects"`

	// Theta is the estimated σ_b/σ.
	Theta float64 `json:"theta"`

	LogLik     float64 `json:"log_lik"`
	Deviance   float64 `json:"deviance"`
	AIC        float64 `json:"aic"`
	BIC        float64 `json:"bic"`
	NParams    int     `json:"n_params"`
	DFResidual int     `json:"df_residual"`

	// DataDigest identifies the table the model was fitted on.
	DataDigest string `json:"data_digest"`

	Iterations  int  `json:"iterations"`
	Evaluations int  `json:"evaluations"`
	Singular    bool `json:"singular"`

	// Warnings are non-fatal conditions such as *SingularFitError.
	Warnings []error `json:"-"`

	beta  []float64
	cov   *mat.SymDense
	x     *mat.Dense
	group []int
	y     []float64
	table *dataset.Table
}

// Beta returns a copy of the fixed-effect estimates in term order.
func (m *FittedModel) Beta() []float64 {
	return append([]float64(nil), m.beta...)
}

// Cov returns a copy of the covariance matrix of the fixed-effect estimates.
func (m *FittedModel) Cov() *mat.SymDense {
	out := mat.NewSymDense(m.cov.SymmetricDim(), nil)
	out.CopySym(m.cov)
	return out
}

// Terms returns the coefficient names in order.
func (m *FittedModel) Terms() []string {
	terms := make([]string, len(m.Coefficients))
	for i, c := range m.Coefficients {
		terms[i] = c.Term
	}
	return terms
}

// Table returns the table the model was fitted on.
func (m *FittedModel) Table() *dataset.Table {
	return m.table
}

// Responses returns a copy of the observed responses.
func (m *FittedModel) Responses() []float64 {
	return append([]float64(nil), m.y...)
}

// GroupIndex returns, for each observation, the index of its group.
func (m *FittedModel) GroupIndex() []int {
	return append([]int(nil), m.group...)
}

// FixedPredictor returns Xβ̂, the fixed-effects-only linear predictor.
func (m *FittedModel) FixedPredictor() []float64 {
	var xb mat.VecDense
	xb.MulVec(m.x, mat.NewVecDense(len(m.beta), m.Beta()))
	return append([]float64(nil), xb.RawVector().Data...)
}

// Fitted returns Xβ̂ + Zb̂, the conditional fitted values.
func (m *FittedModel) Fitted() []float64 {
	out := m.FixedPredictor()
	for i, g := range m.group {
		out[i] += m.RandomEffects[g].Intercept
	}
	return out
}

// WarningMessages returns the warnings as strings.
func (m *FittedModel) WarningMessages() []string {
	if len(m.Warnings) == 0 {
		return nil
	}
	out := make([]string, len(m.Warnings))
	for i, w := range m.Warnings {
		out[i] = w.Error()
	}
	return out
}
