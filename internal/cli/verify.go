package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/richness/internal/analysis"
	"github.com/roach88/richness/internal/config"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database  string
	Tolerance float64 // overrides the recorded determinism tolerance when > 0
}

// VerifyResult is the outcome of rerunning a recorded run.
type VerifyResult struct {
	RunID         string     `json:"run_id"`
	RerunID       string     `json:"rerun_id"`
	DatasetPath   string     `json:"dataset_path"`
	DatasetMatch  bool       `json:"dataset_match"`
	DigestMatch   bool       `json:"digest_match"`
	Tolerance     float64    `json:"tolerance"`
	Deterministic bool       `json:"deterministic"`
	Differences   []Mismatch `json:"differences,omitempty"`
}

// Mismatch is a quantity on which the rerun disagrees. A quantity missing
// on one side is null there.
type Mismatch struct {
	Name     string   `json:"name"`
	Recorded *float64 `json:"recorded"`
	Rerun    *float64 `json:"rerun"`
}

func mismatches(diffs []analysis.Difference) []Mismatch {
	out := make([]Mismatch, len(diffs))
	for i, d := range diffs {
		out[i] = Mismatch{Name: d.Name, Recorded: finite(d.A), Rerun: finite(d.B)}
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <run-id>",
		Short: "Rerun a recorded run and compare the results",
		Long: `Rerun a run recorded with analyze --db on the same table and config,
and compare coefficient estimates, variance components, test statistics
and comparisons with the recorded values within a relative tolerance.

Exit codes:
  0 - Rerun agrees with the recorded run
  1 - Results differ or the table changed
  2 - Command error (ledger or run not found)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", 0, "relative tolerance (default: the run's determinism_tolerance)")

	return cmd
}

func runVerify(opts *VerifyOptions, runID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)
	defer logger.Sync() //nolint:errcheck

	st, err := openLedger(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, "open ledger", err)
	}
	defer st.Close()

	run, err := st.ReadRun(cmd.Context(), runID)
	if err != nil {
		return formatter.Fail(ExitCommandError, "read run", err)
	}

	var cfg config.Config
	if err := json.Unmarshal(run.Config, &cfg); err != nil {
		return formatter.Fail(ExitCommandError, "decode recorded config", err)
	}
	var recorded analysis.Report
	if err := json.Unmarshal(run.Report, &recorded); err != nil {
		return formatter.Fail(ExitCommandError, "decode recorded report", err)
	}

	fresh, err := analysis.NewRunner(logger, cfg).Run(cmd.Context(), run.DatasetPath)
	if err != nil {
		return formatter.Fail(ExitFailure, "rerun failed", err)
	}

	tol := cfg.DeterminismTolerance
	if opts.Tolerance > 0 {
		tol = opts.Tolerance
	}
	result := VerifyResult{
		RunID:        run.ID,
		RerunID:      fresh.RunID,
		DatasetPath:  run.DatasetPath,
		DatasetMatch: fresh.DataDigest == run.DatasetDigest,
		DigestMatch:  fresh.ResultDigest == run.ResultDigest,
		Tolerance:    tol,
		Differences:  mismatches(analysis.Compare(&recorded, fresh, tol)),
	}
	result.Deterministic = result.DatasetMatch && len(result.Differences) == 0

	if err := outputVerify(formatter, result); err != nil {
		return err
	}
	if !result.DatasetMatch {
		return reportedError(ExitFailure, "dataset changed since the run was recorded", nil)
	}
	if len(result.Differences) > 0 {
		return reportedError(ExitFailure,
			fmt.Sprintf("%d quantities differ beyond tolerance %g", len(result.Differences), tol), nil)
	}
	return nil
}

func outputVerify(formatter *OutputFormatter, r VerifyResult) error {
	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: r, RunID: r.RunID}
		if !r.Deterministic {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeNondeterministic, Message: "rerun disagrees with the recorded run"}
		}
		return formatter.encode(resp)
	}

	w := formatter.Writer
	if !r.DatasetMatch {
		fmt.Fprintf(w, "✗ %s: table %s changed since the run was recorded\n", r.RunID, r.DatasetPath)
	}
	if len(r.Differences) == 0 {
		if r.DatasetMatch {
			fmt.Fprintf(w, "✓ %s reproduced within %g (result digest match: %t)\n", r.RunID, r.Tolerance, r.DigestMatch)
		}
		return nil
	}
	fmt.Fprintf(w, "✗ %s: %d quantities differ beyond %g\n", r.RunID, len(r.Differences), r.Tolerance)
	for _, d := range r.Differences {
		fmt.Fprintf(w, "  %-40s recorded %-14s rerun %s\n", d.Name, formatValue(d.Recorded), formatValue(d.Rerun))
	}
	return nil
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// fileExists returns an error wrapping fs.ErrNotExist when path is missing.
func fileExists(path string) error {
	_, err := os.Stat(path)
	return err
}
