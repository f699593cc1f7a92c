package harness

import (
	"slices"

	"github.com/roach88/richness/internal/analysis"
)

// checkOutcome compares the run error with the expected error category.
func checkOutcome(r *Result, e Expectation) {
	want := analysis.ErrorKind(e.Error)
	switch {
	case r.Err == nil && want != analysis.KindNone:
		r.AddError("expected %s error, run succeeded", want)
	case r.Err != nil && want == analysis.KindNone:
		r.AddError("unexpected %s error: %v", r.Kind, r.Err)
	case r.Err != nil && r.Kind != want:
		r.AddError("expected %s error, got %s: %v", want, r.Kind, r.Err)
	}
}

// checkReport evaluates the report expectations.
func checkReport(r *Result, e Expectation, rep *analysis.Report) {
	if e.Singular != nil && rep.Full.Singular != *e.Singular {
		r.AddError("singular: expected %t, got %t", *e.Singular, rep.Full.Singular)
	}
	if e.Comparisons != nil && len(rep.Posthoc.Comparisons) != *e.Comparisons {
		r.AddError("comparisons: expected %d, got %d", *e.Comparisons, len(rep.Posthoc.Comparisons))
	}

	r2 := rep.R2
	if e.ConditionalGtMarginal != nil {
		got := r2.Conditional > r2.Marginal
		if got != *e.ConditionalGtMarginal {
			r.AddError("conditional R² > marginal R²: expected %t, got %t (marginal %.4f, conditional %.4f)",
				*e.ConditionalGtMarginal, got, r2.Marginal, r2.Conditional)
		}
	}
	if e.MinConditionalR2 != nil && r2.Conditional < *e.MinConditionalR2 {
		r.AddError("conditional R²: expected at least %g, got %.4f", *e.MinConditionalR2, r2.Conditional)
	}
	if e.MaxMarginalR2 != nil && r2.Marginal > *e.MaxMarginalR2 {
		r.AddError("marginal R²: expected at most %g, got %.4f", *e.MaxMarginalR2, r2.Marginal)
	}

	if e.LRTDF != nil && rep.LRT.DF != *e.LRTDF {
		r.AddError("likelihood-ratio df: expected %d, got %d", *e.LRTDF, rep.LRT.DF)
	}
	if e.MaxLRTP != nil && rep.LRT.PValue > *e.MaxLRTP {
		r.AddError("likelihood-ratio p: expected at most %g, got %.4g", *e.MaxLRTP, rep.LRT.PValue)
	}
	if e.MinLRTP != nil && rep.LRT.PValue < *e.MinLRTP {
		r.AddError("likelihood-ratio p: expected at least %g, got %.4g", *e.MinLRTP, rep.LRT.PValue)
	}

	if e.Significant != nil {
		want := slices.Clone(*e.Significant)
		slices.Sort(want)
		got := significantLabels(rep)
		if !slices.Equal(want, got) {
			r.AddError("significant comparisons: expected %v, got %v", want, got)
		}
	}
}

// significantLabels returns the sorted labels of comparisons below alpha.
func significantLabels(rep *analysis.Report) []string {
	labels := []string{}
	for _, c := range rep.Posthoc.Significant(rep.Config.Alpha) {
		labels = append(labels, c.Label())
	}
	slices.Sort(labels)
	return labels
}
