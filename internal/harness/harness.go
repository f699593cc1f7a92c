package harness

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/richness/internal/analysis"
	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/testutil"
)

// Harness executes scenarios.
type Harness struct {
	logger *zap.Logger
}

// New creates a Harness. A nil logger discards log output.
func New(logger *zap.Logger) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{logger: logger.Named("harness")}
}

// Run executes a scenario with a discarding logger.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	return New(nil).Run(ctx, s)
}

// Run executes a scenario and evaluates its expectations.
//
// Analysis failures are part of the result: they are compared with
// Expect.Error. The returned error is reserved for problems with the
// scenario itself, such as an unreadable inline table.
func (h *Harness) Run(ctx context.Context, s *Scenario) (*Result, error) {
	result := NewResult(s.Name)
	log := h.logger.With(zap.String("scenario", s.Name))

	rep, err := h.execute(ctx, s)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	result.Report = rep
	result.Err = err
	result.Kind = analysis.Kind(err)

	checkOutcome(result, s.Expect)
	if err == nil {
		checkReport(result, s.Expect, rep)
	}

	log.Debug("scenario finished",
		zap.Bool("pass", result.Pass),
		zap.String("kind", string(result.Kind)),
		zap.Int("failures", len(result.Errors)),
	)
	return result, nil
}

func (h *Harness) execute(ctx context.Context, s *Scenario) (*analysis.Report, error) {
	cfg, err := s.config()
	if err != nil {
		return nil, err
	}
	runner := analysis.NewRunner(h.logger, cfg,
		analysis.WithIDGenerator(testutil.NewFixedIDGenerator(s.RunID)))

	if s.Data != "" {
		return runner.Run(ctx, s.Data)
	}

	opts, err := cfg.LoadOptions()
	if err != nil {
		return nil, err
	}
	t, err := dataset.Read(strings.NewReader(s.Table), opts)
	if err != nil {
		return nil, fmt.Errorf("load inline table: %w", err)
	}
	return runner.RunTable(ctx, t)
}
