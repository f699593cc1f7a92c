// Package report renders analysis reports as plain text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/richness/internal/analysis"
	"github.com/roach88/richness/internal/posthoc"
)

// digestWidth is how many hex digits of each digest the text report shows.
const digestWidth = 12

// printer accumulates the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) f(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// Text writes the human-readable report.
func Text(w io.Writer, r *analysis.Report) error {
	p := &printer{w: w}
	full := r.Full

	p.f("Allelic richness analysis (run %s)\n", r.RunID)
	if r.DatasetPath != "" {
		p.f("Data: %s\n", r.DatasetPath)
	}
	p.f("Observations: %d (%d localities, %d loci)\n", r.NObs, r.NLocalities, full.NGroups)

	p.f("\nModel: %s [%s]\n", full.Formula, full.Criterion)
	p.f("  logLik %.3f  AIC %.3f  BIC %.3f  deviance %.3f\n", full.LogLik, full.AIC, full.BIC, full.Deviance)

	p.f("\nFixed effects:\n")
	p.f("  %-20s %10s %10s %8s\n", "term", "estimate", "std.error", "t value")
	for _, c := range full.Coefficients {
		p.f("  %-20s %10.4f %10.4f %8.3f\n", c.Term, c.Estimate, c.StdError, c.TValue)
	}

	p.f("\nRandom effects:\n")
	p.f("  %-20s %10s %10s\n", "group", "variance", "std.dev")
	p.f("  %-20s %10.4f %10.4f\n", full.Spec.Group, full.Variance.Group, full.Variance.GroupSD())
	p.f("  %-20s %10.4f %10.4f\n", "Residual", full.Variance.Residual, full.Variance.ResidualSD())

	if lrt := r.LRT; lrt != nil {
		p.f("\nLikelihood-ratio test:\n")
		p.f("  %-40s %4s %10s %10s %10s\n", "model", "npar", "AIC", "BIC", "logLik")
		for _, m := range []struct {
			formula string
			npar    int
			aic     float64
			bic     float64
			ll      float64
		}{
			{lrt.Null.Formula, lrt.Null.NParams, lrt.Null.AIC, lrt.Null.BIC, lrt.Null.LogLik},
			{lrt.Full.Formula, lrt.Full.NParams, lrt.Full.AIC, lrt.Full.BIC, lrt.Full.LogLik},
		} {
			p.f("  %-40s %4d %10.3f %10.3f %10.3f\n", m.formula, m.npar, m.aic, m.bic, m.ll)
		}
		p.f("  Chisq %.3f on %d df, p %s\n", lrt.Statistic, lrt.DF, FormatP(lrt.PValue))
	}

	p.f("\nR-squared: marginal %.4f, conditional %.4f\n", r.R2.Marginal, r.R2.Conditional)

	if set := r.Posthoc; set != nil {
		writeMeans(p, set)
		writeComparisons(p, set, r.Config.Alpha)
	}

	res := r.Residuals
	p.f("\nResiduals: mean %.4f, sd %.4f, range [%.4f, %.4f], spread correlation %.3f\n",
		res.Mean, res.SD, res.Min, res.Max, res.SpreadCorrelation)

	if len(r.Warnings) > 0 {
		p.f("\nWarnings:\n")
		for _, w := range r.Warnings {
			p.f("  - %s\n", w)
		}
	}

	p.f("\nDigests: data %s, config %s, result %s\n",
		short(r.DataDigest), short(r.ConfigDigest), short(r.ResultDigest))
	return p.err
}

func writeMeans(p *printer, set *posthoc.ComparisonSet) {
	p.f("\nEstimated marginal means:\n")
	p.f("  %-20s %10s %10s\n", set.Factor, "emmean", "SE")
	for _, m := range set.Means {
		p.f("  %-20s %10.4f %10.4f\n", m.Level, m.Estimate, m.StdError)
	}
}

func writeComparisons(p *printer, set *posthoc.ComparisonSet, alpha float64) {
	p.f("\nPairwise comparisons (%s adjustment, df %d):\n", set.Adjustment, set.DF)
	p.f("  %-24s %10s %10s %8s %9s\n", "contrast", "estimate", "std.error", "t ratio", "p.adj")
	for _, c := range set.Comparisons {
		mark := ""
		if c.PAdjusted < alpha {
			mark = " *"
		}
		p.f("  %-24s %10.4f %10.4f %8.3f %9s%s\n",
			c.Label(), c.Estimate, c.StdError, c.TValue, FormatP(c.PAdjusted), mark)
	}
	if alpha > 0 {
		p.f("  * adjusted p < %g\n", alpha)
	}
}

// FormatP renders a p-value with four decimals, or as an upper bound when
// it would round to zero.
func FormatP(p float64) string {
	if p < 1e-4 {
		return "<0.0001"
	}
	return fmt.Sprintf("%.4f", p)
}

func short(digest string) string {
	if len(digest) > digestWidth {
		return digest[:digestWidth]
	}
	return digest
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r *analysis.Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
