package analysis

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/richness/internal/config"
	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/lmm"
	"github.com/roach88/richness/internal/posthoc"
	"github.com/roach88/richness/internal/testutil"
)

func newTestRunner(t *testing.T, cfg config.Config) *Runner {
	return NewRunner(zaptest.NewLogger(t), cfg, WithIDGenerator(testutil.NewFixedIDGenerator("run-1")))
}

func runContent(t *testing.T, content string) (*Report, error) {
	t.Helper()
	path := testutil.WriteFile(t, "data.tsv", content)
	return newTestRunner(t, config.Default()).Run(context.Background(), path)
}

func TestRun_Reference(t *testing.T) {
	rep, err := runContent(t, testutil.ReferenceTSV)
	require.NoError(t, err)

	assert.Equal(t, "run-1", rep.RunID)
	assert.True(t, strings.HasSuffix(rep.DatasetPath, "data.tsv"))
	assert.Equal(t, 120, rep.NObs)
	assert.Equal(t, 24, rep.NLocalities)
	assert.Len(t, rep.Summary, 4+5)
	assert.Empty(t, rep.Warnings)

	assert.Equal(t, 3, rep.LRT.DF)
	assert.Greater(t, rep.LRT.Statistic, 0.0)
	assert.Len(t, rep.Posthoc.Comparisons, 6)
	assert.Len(t, rep.Points, 120)

	// Marker variability dominates habitat differences.
	assert.Greater(t, rep.R2.Conditional, rep.R2.Marginal)
	assert.Greater(t, rep.R2.Conditional, 0.9)
	assert.Less(t, rep.R2.Marginal, 0.1)

	assert.Len(t, rep.DataDigest, 64)
	assert.Len(t, rep.ConfigDigest, 64)
	assert.Len(t, rep.ResultDigest, 64)
	assert.Equal(t, rep.DataDigest, rep.Full.DataDigest)
}

func TestRun_Deterministic(t *testing.T) {
	a, err := runContent(t, testutil.ReferenceTSV)
	require.NoError(t, err)
	b, err := runContent(t, testutil.ReferenceTSV)
	require.NoError(t, err)

	assert.Empty(t, Compare(a, b, 1e-6))
	assert.Equal(t, a.ResultDigest, b.ResultDigest)
	assert.Equal(t, a.DataDigest, b.DataDigest)
}

func TestRun_SingularFitIsWarning(t *testing.T) {
	rep, err := runContent(t, testutil.FlatLociTSV())
	require.NoError(t, err)

	require.NotEmpty(t, rep.Warnings)
	assert.Contains(t, rep.Warnings[0], "singular fit")
	assert.True(t, rep.Full.Singular)
	assert.Equal(t, rep.R2.Marginal, rep.R2.Conditional)
}

func TestRun_StageErrors(t *testing.T) {
	t.Run("parse", func(t *testing.T) {
		_, err := runContent(t, "locality\thabitat\tlocus\tallelic_richness\nL1\tCity\tA\tmany\n")
		assert.True(t, dataset.IsParseError(err))
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := runContent(t, "locality\thabitat\tallelic_richness\nL1\tCity\t2\n")
		assert.True(t, dataset.IsMissingColumn(err))
	})

	t.Run("single habitat", func(t *testing.T) {
		_, err := runContent(t, testutil.SingleHabitatTSV())
		assert.True(t, posthoc.IsUnderdetermined(err))
	})

	t.Run("convergence", func(t *testing.T) {
		cfg := config.Default()
		cfg.Optimizer.MaxIterations = 1
		path := testutil.ReferencePath(t)
		_, err := newTestRunner(t, cfg).Run(context.Background(), path)
		assert.True(t, lmm.IsConvergence(err))
	})
}

func TestRun_ReferenceLevel(t *testing.T) {
	cfg := config.Default()
	cfg.ReferenceLevel = "Natural"
	path := testutil.ReferencePath(t)

	rep, err := newTestRunner(t, cfg).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Natural", "City", "Disturbed", "Island"}, rep.Full.Levels)
	assert.Equal(t, "habitatCity", rep.Full.Coefficients[1].Term)
	assert.Equal(t, "Natural - City", rep.Posthoc.Comparisons[0].Label())

	// Changing the baseline reparameterizes the model without changing the fit.
	def, err := runContent(t, testutil.ReferenceTSV)
	require.NoError(t, err)
	assert.InDelta(t, def.Full.LogLik, rep.Full.LogLik, 1e-6)
	assert.InDelta(t, def.R2.Marginal, rep.R2.Marginal, 1e-9)
	assert.NotEqual(t, def.DataDigest, rep.DataDigest)
}

func TestCompare_ReportsDifferences(t *testing.T) {
	a, err := runContent(t, testutil.ReferenceTSV)
	require.NoError(t, err)

	b := *a
	lrt := *a.LRT
	lrt.Statistic *= 1.01
	b.LRT = &lrt

	diffs := Compare(a, &b, 1e-6)
	require.Len(t, diffs, 1)
	assert.Equal(t, "lrt.statistic", diffs[0].Name)

	assert.Empty(t, Compare(a, &b, 0.05))
}

func TestCompare_MissingQuantities(t *testing.T) {
	a, err := runContent(t, testutil.ReferenceTSV)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.ReferenceLevel = "Island"
	b, err := newTestRunner(t, cfg).Run(context.Background(), testutil.ReferencePath(t))
	require.NoError(t, err)

	// Island-baseline terms and comparisons exist only in b, City-baseline
	// ones only in a.
	diffs := Compare(a, b, 1e-6)
	var onlyA, onlyB int
	for _, d := range diffs {
		switch {
		case math.IsNaN(d.B):
			onlyA++
		case math.IsNaN(d.A):
			onlyB++
		}
	}
	assert.Greater(t, onlyA, 0)
	assert.Greater(t, onlyB, 0)
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
