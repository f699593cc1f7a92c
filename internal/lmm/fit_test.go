package lmm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/optimize"

	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/testutil"
)

func readTable(t *testing.T, content string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.Read(strings.NewReader(content), dataset.LoadOptions{})
	require.NoError(t, err)
	return tbl
}

func newTestFitter(t *testing.T) *Fitter {
	return NewFitter(zaptest.NewLogger(t), DefaultOptions())
}

func TestSpec_Formula(t *testing.T) {
	cols := dataset.DefaultColumns()
	assert.Equal(t, "allelic_richness ~ habitat + (1 | locus)", FullSpec(cols).Formula())
	assert.Equal(t, "allelic_richness ~ 1 + (1 | locus)", NullSpec(cols).Formula())
	assert.False(t, NullSpec(cols).HasFixed())
}

func TestFit_ReferenceFullModel(t *testing.T) {
	tbl := readTable(t, testutil.ReferenceTSV)

	m, err := newTestFitter(t).Fit(context.Background(), tbl, FullSpec(tbl.Columns))
	require.NoError(t, err)

	assert.Equal(t, CriterionML, m.Criterion)
	assert.Equal(t, 120, m.NObs)
	assert.Equal(t, 5, m.NGroups)
	assert.Equal(t, 6, m.NParams)
	assert.Equal(t, 116, m.DFResidual)
	assert.Equal(t, []string{"City", "Disturbed", "Island", "Natural"}, m.Levels)
	assert.Equal(t,
		[]string{"(Intercept)", "habitatDisturbed", "habitatIsland", "habitatNatural"},
		m.Terms())
	assert.False(t, m.Singular)
	assert.Empty(t, m.Warnings)

	// Every locality carries every locus, so the fixed effects equal the
	// habitat mean differences whatever θ is.
	want := []float64{11.073666666666666, 0.116333333333333, -0.043666666666667, 0.220333333333333}
	for i, w := range want {
		assert.InDelta(t, w, m.Coefficients[i].Estimate, 1e-8, m.Coefficients[i].Term)
	}

	assert.InDelta(t, -74.907893, m.LogLik, 1e-4)
	assert.InDelta(t, -2*m.LogLik, m.Deviance, 1e-12)
	assert.InDelta(t, m.Deviance+12, m.AIC, 1e-12)
	assert.InEpsilon(t, 13.027654, m.Theta, 1e-3)
	assert.InEpsilon(t, 0.144313946, m.Variance.Residual, 1e-4)
	assert.InEpsilon(t, 24.4929307, m.Variance.Group, 1e-3)
	assert.InEpsilon(t, 2.21436144, m.Coefficients[0].StdError, 1e-3)
	assert.InEpsilon(t, 0.09808634, m.Coefficients[1].StdError, 1e-4)
	assert.InDelta(t, m.Coefficients[1].Estimate/m.Coefficients[1].StdError, m.Coefficients[1].TValue, 1e-12)
}

func TestFit_ReferenceNullModel(t *testing.T) {
	tbl := readTable(t, testutil.ReferenceTSV)

	m, err := newTestFitter(t).Fit(context.Background(), tbl, NullSpec(tbl.Columns))
	require.NoError(t, err)

	assert.Nil(t, m.Levels)
	assert.Equal(t, []string{"(Intercept)"}, m.Terms())
	assert.Equal(t, 3, m.NParams)
	assert.Equal(t, 119, m.DFResidual)
	assert.InDelta(t, -79.166268, m.LogLik, 1e-4)
	assert.InEpsilon(t, 12.553960, m.Theta, 1e-3)
}

func TestFit_FullLogLikAtLeastNull(t *testing.T) {
	for name, content := range map[string]string{
		"reference": testutil.ReferenceTSV,
		"flat loci": testutil.FlatLociTSV(),
	} {
		t.Run(name, func(t *testing.T) {
			tbl := readTable(t, content)
			full, null, err := newTestFitter(t).FitPair(context.Background(), tbl)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, full.LogLik, null.LogLik-1e-8)
		})
	}
}

func TestFit_SingularBoundary(t *testing.T) {
	tbl := readTable(t, testutil.FlatLociTSV())

	m, err := newTestFitter(t).Fit(context.Background(), tbl, FullSpec(tbl.Columns))
	require.NoError(t, err, "a singular fit is a warning, not a failure")

	assert.True(t, m.Singular)
	assert.Equal(t, 0.0, m.Theta)
	assert.Equal(t, 0.0, m.Variance.Group)
	require.Len(t, m.Warnings, 1)
	assert.True(t, IsSingular(m.Warnings[0]))
	assert.Contains(t, m.WarningMessages()[0], "singular fit")

	assert.InDelta(t, 5.825, m.Coefficients[0].Estimate, 1e-9)
	assert.InDelta(t, -0.625, m.Coefficients[1].Estimate, 1e-9)
	assert.InDelta(t, 0.0884375, m.Variance.Residual, 1e-9)
	assert.InDelta(t, -4.949014503, m.LogLik, 1e-8)

	for _, re := range m.RandomEffects {
		assert.Equal(t, 0.0, re.Intercept)
	}
}

func TestFit_RandomEffectsAndFittedValues(t *testing.T) {
	tbl := readTable(t, testutil.ReferenceTSV)

	m, err := newTestFitter(t).Fit(context.Background(), tbl, FullSpec(tbl.Columns))
	require.NoError(t, err)

	require.Len(t, m.RandomEffects, 5)
	sum := 0.0
	for _, re := range m.RandomEffects {
		assert.Equal(t, 24, re.N)
		sum += re.Intercept
	}
	// Balanced groups: the predicted shifts are centred on the intercept.
	assert.InDelta(t, 0, sum, 1e-8)

	fitted := m.Fitted()
	fixed := m.FixedPredictor()
	groups := m.GroupIndex()
	require.Len(t, fitted, m.NObs)
	for i := range fitted {
		assert.InDelta(t, fixed[i]+m.RandomEffects[groups[i]].Intercept, fitted[i], 1e-12)
	}
}

func TestFit_Deterministic(t *testing.T) {
	tbl := readTable(t, testutil.ReferenceTSV)
	f := newTestFitter(t)

	a, err := f.Fit(context.Background(), tbl, FullSpec(tbl.Columns))
	require.NoError(t, err)
	b, err := f.Fit(context.Background(), tbl, FullSpec(tbl.Columns))
	require.NoError(t, err)

	opts := cmp.Options{
		cmpopts.IgnoreUnexported(FittedModel{}),
		cmpopts.EquateApprox(1e-12, 0),
	}
	if diff := cmp.Diff(a, b, opts); diff != "" {
		t.Errorf("refit differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, a.Beta(), b.Beta())
}

func TestFit_DesignErrors(t *testing.T) {
	oneLocus := "locality\thabitat\tlocus\tallelic_richness\n" +
		"L1\tCity\tA\t2.0\nL2\tCity\tA\t2.5\nL3\tIsland\tA\t3.0\nL4\tIsland\tA\t3.4\n"

	tests := []struct {
		name    string
		content string
		spec    func(dataset.Columns) Spec
		reason  string
	}{
		{"single group", oneLocus, FullSpec, "at least 2 levels"},
		{"unknown fixed factor", testutil.ReferenceTSV, func(c dataset.Columns) Spec {
			s := FullSpec(c)
			s.Fixed = "elevation"
			return s
		}, "unknown fixed factor"},
		{"unknown response", testutil.ReferenceTSV, func(c dataset.Columns) Spec {
			s := NullSpec(c)
			s.Response = "heterozygosity"
			return s
		}, "unknown response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := readTable(t, tt.content)
			_, err := newTestFitter(t).Fit(context.Background(), tbl, tt.spec(tbl.Columns))
			require.Error(t, err)
			assert.True(t, IsDesign(err))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestFit_IterationLimitIsConvergenceError(t *testing.T) {
	tbl := readTable(t, testutil.ReferenceTSV)
	f := NewFitter(zaptest.NewLogger(t), Options{MaxIterations: 1})

	_, err := f.Fit(context.Background(), tbl, FullSpec(tbl.Columns))
	require.Error(t, err)
	assert.True(t, IsConvergence(err))

	var ce *ConvergenceError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, optimize.IterationLimit, ce.Status)
	assert.Contains(t, err.Error(), "did not converge")
}

func TestFit_CanceledContext(t *testing.T) {
	tbl := readTable(t, testutil.ReferenceTSV)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFitter(t).Fit(ctx, tbl, FullSpec(tbl.Columns))
	assert.True(t, errors.Is(err, context.Canceled))

	_, _, err = newTestFitter(t).FitPair(ctx, tbl)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFitPair_MatchesSequentialFits(t *testing.T) {
	tbl := readTable(t, testutil.ReferenceTSV)
	f := newTestFitter(t)

	full, null, err := f.FitPair(context.Background(), tbl)
	require.NoError(t, err)

	seqFull, err := f.Fit(context.Background(), tbl, FullSpec(tbl.Columns))
	require.NoError(t, err)
	seqNull, err := f.Fit(context.Background(), tbl, NullSpec(tbl.Columns))
	require.NoError(t, err)

	assert.Equal(t, seqFull.LogLik, full.LogLik)
	assert.Equal(t, seqNull.LogLik, null.LogLik)
	assert.Equal(t, full.DataDigest, null.DataDigest)
}

func TestNewFitter_Defaults(t *testing.T) {
	f := NewFitter(nil, Options{})
	assert.Equal(t, DefaultOptions(), f.Options())
}
