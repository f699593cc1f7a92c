package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/richness/internal/config"
	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/diagnostics"
	"github.com/roach88/richness/internal/digest"
	"github.com/roach88/richness/internal/inference"
	"github.com/roach88/richness/internal/lmm"
	"github.com/roach88/richness/internal/posthoc"
)

// Runner executes analysis runs with one configuration.
//
// Thread-safety: Runner is safe for concurrent use if its IDGenerator is.
type Runner struct {
	logger *zap.Logger
	cfg    config.Config
	fitter *lmm.Fitter
	ids    IDGenerator
}

// Option configures a Runner.
type Option func(*Runner)

// WithIDGenerator sets the run identifier source.
//
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) {
		r.ids = g
	}
}

// NewRunner creates a Runner. A nil logger discards log output.
func NewRunner(logger *zap.Logger, cfg config.Config, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		logger: logger.Named("analysis"),
		cfg:    cfg,
		fitter: lmm.NewFitter(logger, cfg.Optimizer),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the runner's configuration.
func (r *Runner) Config() config.Config {
	return r.cfg
}

// Run loads the table at path and analyses it.
func (r *Runner) Run(ctx context.Context, path string) (*Report, error) {
	opts, err := r.cfg.LoadOptions()
	if err != nil {
		return nil, err
	}
	t, err := dataset.Load(path, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	rep, err := r.RunTable(ctx, t)
	if err != nil {
		return nil, err
	}
	rep.DatasetPath = path
	return rep, nil
}

// RunTable analyses an already loaded table.
func (r *Runner) RunTable(ctx context.Context, t *dataset.Table) (*Report, error) {
	rep := &Report{
		RunID:       r.ids.Generate(),
		Config:      r.cfg,
		NObs:        t.Len(),
		NLocalities: t.Locality.Len(),
		Summary:     dataset.Summary(t),
	}
	log := r.logger.With(zap.String("run_id", rep.RunID))
	log.Info("analysis starting",
		zap.Int("n_obs", rep.NObs),
		zap.Strings("habitats", t.Habitat.Levels),
		zap.Int("loci", t.Locus.Len()),
	)

	var err error
	if rep.DataDigest, err = digest.Dataset(t); err != nil {
		return nil, err
	}
	if rep.ConfigDigest, err = digest.Config(r.cfg); err != nil {
		return nil, err
	}

	rep.Full, rep.Null, err = r.fitter.FitPair(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	for _, m := range []*lmm.FittedModel{rep.Full, rep.Null} {
		rep.Warnings = append(rep.Warnings, m.WarningMessages()...)
	}

	rep.Points = diagnostics.Residuals(rep.Full)
	rep.Residuals = diagnostics.Summarize(rep.Points)
	log.Debug("diagnostics computed", zap.Float64("residual_sd", rep.Residuals.SD))

	// Comparisons run before the likelihood-ratio test so a one-level
	// habitat factor is reported as underdetermined, not as a nesting
	// mismatch.
	if rep.Posthoc, err = posthoc.Pairwise(rep.Full); err != nil {
		return nil, fmt.Errorf("post-hoc: %w", err)
	}
	log.Debug("comparisons computed", zap.Int("pairs", len(rep.Posthoc.Comparisons)))

	if rep.LRT, err = inference.LikelihoodRatio(rep.Null, rep.Full); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	rep.R2 = inference.RSquared(rep.Full)

	if rep.ResultDigest, err = rep.resultDigest(); err != nil {
		return nil, err
	}

	log.Info("analysis complete",
		zap.Float64("lrt_statistic", rep.LRT.Statistic),
		zap.Float64("lrt_p", rep.LRT.PValue),
		zap.Float64("r2_marginal", rep.R2.Marginal),
		zap.Float64("r2_conditional", rep.R2.Conditional),
		zap.Int("warnings", len(rep.Warnings)),
	)
	return rep, nil
}
