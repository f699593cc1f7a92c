package analysis

import (
	"fmt"

	"github.com/roach88/richness/internal/config"
	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/diagnostics"
	"github.com/roach88/richness/internal/digest"
	"github.com/roach88/richness/internal/inference"
	"github.com/roach88/richness/internal/lmm"
	"github.com/roach88/richness/internal/posthoc"
)

// Report is everything one run produced.
type Report struct {
	RunID       string        `json:"run_id"`
	DatasetPath string        `json:"dataset_path,omitempty"`
	Config      config.Config `json:"config"`

	NObs        int                    `json:"n_obs"`
	NLocalities int                    `json:"n_localities"`
	Summary     []dataset.GroupSummary `json:"summary"`

	Full *lmm.FittedModel `json:"full"`
	Null *lmm.FittedModel `json:"null"`

	LRT       *inference.LRTResult   `json:"lrt"`
	R2        inference.R2           `json:"r2"`
	Posthoc   *posthoc.ComparisonSet `json:"posthoc"`
	Residuals diagnostics.Summary    `json:"residuals"`

	// Points are the residual-versus-fitted pairs, exported on request.
	Points []diagnostics.Point `json:"-"`

	Warnings []string `json:"warnings,omitempty"`

	DataDigest   string `json:"data_digest"`
	ConfigDigest string `json:"config_digest"`
	ResultDigest string `json:"result_digest"`
}

// Quantity is one named headline number of a report.
type Quantity struct {
	Name  string
	Value float64
}

// Quantities lists the numbers that identify a run's result, in a fixed
// order: full-model coefficients, variance parameters and fit statistics,
// the likelihood-ratio test, R², then every comparison.
func (r *Report) Quantities() []Quantity {
	var q []Quantity
	add := func(name string, v float64) {
		q = append(q, Quantity{Name: name, Value: v})
	}

	for _, c := range r.Full.Coefficients {
		add(fmt.Sprintf("full.coef[%s].estimate", c.Term), c.Estimate)
		add(fmt.Sprintf("full.coef[%s].std_error", c.Term), c.StdError)
	}
	add("full.variance.group", r.Full.Variance.Group)
	add("full.variance.residual", r.Full.Variance.Residual)
	add("full.log_lik", r.Full.LogLik)
	add("null.log_lik", r.Null.LogLik)
	add("lrt.statistic", r.LRT.Statistic)
	add("lrt.p_value", r.LRT.PValue)
	add("r2.marginal", r.R2.Marginal)
	add("r2.conditional", r.R2.Conditional)
	for _, c := range r.Posthoc.Comparisons {
		add(fmt.Sprintf("posthoc[%s].estimate", c.Label()), c.Estimate)
		add(fmt.Sprintf("posthoc[%s].p_adjusted", c.Label()), c.PAdjusted)
	}
	return q
}

// resultDigest hashes the report's quantities.
func (r *Report) resultDigest() (string, error) {
	values := make(map[string]any)
	for _, q := range r.Quantities() {
		values[q.Name] = q.Value
	}
	return digest.Result(values)
}
