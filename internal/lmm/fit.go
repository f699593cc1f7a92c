package lmm

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/digest"
)

// convergeIterations is the number of consecutive major iterations without
// an improvement larger than Options.Tolerance after which the optimizer
// stops.
const convergeIterations = 50

// initialTheta is the optimizer's starting point.
const initialTheta = 1.0

// Fitter fits random-intercept models by maximum likelihood.
//
// Thread-safety: Fitter holds no mutable state and is safe for concurrent use.
type Fitter struct {
	logger *zap.Logger
	opts   Options
}

// NewFitter creates a Fitter. A nil logger discards log output. Zero-valued
// options take their defaults.
func NewFitter(logger *zap.Logger, opts Options) *Fitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fitter{logger: logger.Named("lmm"), opts: opts.withDefaults()}
}

// Options returns the effective optimizer options.
func (f *Fitter) Options() Options {
	return f.opts
}

// Fit estimates the model described by spec on t.
//
// A singular fit is not an error: the model is returned with Singular set
// and a *SingularFitError in Warnings.
func (f *Fitter) Fit(ctx context.Context, t *dataset.Table, spec Spec) (*FittedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := buildDesign(t, spec)
	if err != nil {
		return nil, err
	}
	dataDigest, err := digest.Dataset(t)
	if err != nil {
		return nil, err
	}

	log := f.logger.With(zap.String("formula", d.formula))
	log.Debug("fitting model",
		zap.Int("n_obs", d.n()),
		zap.Int("n_groups", len(d.groups)),
		zap.Int("n_fixed", d.p()),
	)

	pr := newProfile(d)
	problem := optimize.Problem{
		Func: pr.deviance,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		MajorIterations: f.opts.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   f.opts.Tolerance,
			Iterations: convergeIterations,
		},
	}

	res, err := optimize.Minimize(problem, []float64{initialTheta}, settings, &optimize.NelderMead{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil || res == nil || res.Status.Early() || math.IsInf(res.F, 0) || math.IsNaN(res.F) {
		ce := &ConvergenceError{Formula: d.formula, Err: err}
		if res != nil {
			ce.Status = res.Status
			ce.Iterations = res.MajorIterations
			ce.Evaluations = res.FuncEvaluations
		}
		log.Error("optimizer did not converge", zap.Error(ce))
		return nil, ce
	}

	theta := math.Abs(res.X[0])
	best, err := pr.solve(theta)
	if err != nil {
		return nil, err
	}
	if boundary, err := pr.solve(0); err == nil && boundary.deviance <= best.deviance {
		best = boundary
		theta = 0
	}

	m := assemble(d, best)
	m.DataDigest = dataDigest
	m.Iterations = res.MajorIterations
	m.Evaluations = res.FuncEvaluations
	m.table = t

	if theta < f.opts.SingularTolerance {
		m.Singular = true
		w := &SingularFitError{Formula: d.formula, Theta: theta}
		m.Warnings = append(m.Warnings, w)
		log.Warn("singular fit", zap.Float64("theta", theta))
	}

	log.Info("model fitted",
		zap.Float64("log_lik", m.LogLik),
		zap.Float64("theta", m.Theta),
		zap.Int("iterations", m.Iterations),
		zap.Int("evaluations", m.Evaluations),
	)
	return m, nil
}

// FitPair fits the full (habitat) and null (intercept-only) models on the
// same table concurrently.
func (f *Fitter) FitPair(ctx context.Context, t *dataset.Table) (full, null *FittedModel, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := f.Fit(gctx, t, FullSpec(t.Columns))
		if err != nil {
			return fmt.Errorf("full model: %w", err)
		}
		full = m
		return nil
	})
	g.Go(func() error {
		m, err := f.Fit(gctx, t, NullSpec(t.Columns))
		if err != nil {
			return fmt.Errorf("null model: %w", err)
		}
		null = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return full, null, nil
}

// assemble turns a profiled solution into a FittedModel.
func assemble(d *design, s *solution) *FittedModel {
	n, p := d.n(), d.p()

	cov := mat.NewSymDense(p, nil)
	if err := s.chol.InverseTo(cov); err != nil {
		// Numerically singular: standard errors are undefined.
		for i := 0; i < p; i++ {
			cov.SetSym(i, i, math.NaN())
		}
	}
	cov.ScaleSym(s.sigma2, cov)

	beta := append([]float64(nil), s.beta.RawVector().Data...)
	coefs := make([]Coefficient, p)
	for j := range coefs {
		se := math.Sqrt(cov.At(j, j))
		coefs[j] = Coefficient{
			Term:     d.terms[j],
			Estimate: beta[j],
			StdError: se,
			TValue:   beta[j] / se,
		}
	}

	effects := make([]RandomEffect, len(d.groups))
	for g, name := range d.groups {
		effects[g] = RandomEffect{
			Group:     name,
			Intercept: s.weights[g] * s.residSums[g],
		}
	}
	for _, g := range d.group {
		effects[g].N++
	}

	k := p + 2
	nf := float64(n)
	return &FittedModel{
		Spec:          d.spec,
		Formula:       d.formula,
		Criterion:     CriterionML,
		NObs:          n,
		NGroups:       len(d.groups),
		Levels:        d.levels,
		Groups:        d.groups,
		Coefficients:  coefs,
		Variance:      VarianceComponents{Group: s.gamma * s.sigma2, Residual: s.sigma2},
		RandomEffects: effects,
		Theta:         s.theta,
		LogLik:        -s.deviance / 2,
		Deviance:      s.deviance,
		AIC:           s.deviance + 2*float64(k),
		BIC:           s.deviance + float64(k)*math.Log(nf),
		NParams:       k,
		DFResidual:    n - p,
		beta:          beta,
		cov:           cov,
		x:             d.x,
		group:         d.group,
		y:             d.y,
	}
}
