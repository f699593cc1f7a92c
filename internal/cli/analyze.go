package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/richness/internal/analysis"
	"github.com/roach88/richness/internal/config"
	"github.com/roach88/richness/internal/diagnostics"
	"github.com/roach88/richness/internal/report"
	"github.com/roach88/richness/internal/store"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	ConfigPath string // YAML analysis config
	Reference  string // baseline habitat level
	Residuals  string // residual TSV output path
	ReportOut  string // JSON report output path
	Database   string // run ledger path
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <table>",
		Short: "Fit the habitat model and report tests and comparisons",
		Long: `Load an allelic-richness table, fit the full and null mixed models by
maximum likelihood, and report the likelihood-ratio test, marginal and
conditional R², residual diagnostics and Tukey-adjusted pairwise
comparisons between habitats.

Exit codes:
  0 - Analysis completed
  1 - Analysis failed (invalid table, fit failure, ...)
  2 - Command error (unreadable config, ledger unavailable)

Examples:
  richness analyze data.tsv
  richness analyze data.tsv --reference Natural --residuals residuals.tsv
  richness analyze data.tsv --config analysis.yaml --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "analysis config file (YAML)")
	cmd.Flags().StringVar(&opts.Reference, "reference", "", "baseline habitat level")
	cmd.Flags().StringVar(&opts.Residuals, "residuals", "", "write residuals versus fitted values to this TSV file")
	cmd.Flags().StringVar(&opts.ReportOut, "report-out", "", "also write the report as JSON to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite ledger")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)
	defer logger.Sync() //nolint:errcheck

	cfg, err := analyzeConfig(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid configuration", err)
	}

	runner := analysis.NewRunner(logger, cfg)
	rep, err := runner.Run(cmd.Context(), path)
	if err != nil {
		return formatter.Fail(ExitFailure, "analysis failed", err)
	}
	formatter.VerboseLog("Run %s: %d observations, %d warning(s)", rep.RunID, rep.NObs, len(rep.Warnings))

	if opts.Residuals != "" {
		if err := writeFile(opts.Residuals, func(w io.Writer) error { return diagnostics.WriteTSV(w, rep.Points) }); err != nil {
			return formatter.Fail(ExitCommandError, "write residuals", err)
		}
		formatter.VerboseLog("Residuals written to %s", opts.Residuals)
	}

	if opts.ReportOut != "" {
		if err := writeFile(opts.ReportOut, func(w io.Writer) error { return report.JSON(w, rep) }); err != nil {
			return formatter.Fail(ExitCommandError, "write report", err)
		}
		formatter.VerboseLog("Report written to %s", opts.ReportOut)
	}

	if opts.Database != "" {
		seq, err := recordRun(cmd, opts.Database, rep)
		if err != nil {
			return formatter.Fail(ExitCommandError, "record run", err)
		}
		formatter.VerboseLog("Run recorded in %s (seq %d)", opts.Database, seq)
	}

	if formatter.IsJSON() {
		return formatter.encode(CLIResponse{Status: "ok", Data: rep, RunID: rep.RunID})
	}
	return report.Text(formatter.Writer, rep)
}

// analyzeConfig loads the config file and applies flag overrides.
func analyzeConfig(opts *AnalyzeOptions) (config.Config, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Reference != "" {
		cfg.ReferenceLevel = opts.Reference
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// writeFile creates path and fills it with write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// recordRun appends rep to the ledger at dbPath.
func recordRun(cmd *cobra.Command, dbPath string, rep *analysis.Report) (int64, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	run, err := ledgerRun(rep)
	if err != nil {
		return 0, err
	}
	return st.WriteRun(cmd.Context(), run)
}

func ledgerRun(rep *analysis.Report) (store.Run, error) {
	cfgJSON, err := json.Marshal(rep.Config)
	if err != nil {
		return store.Run{}, fmt.Errorf("encode config: %w", err)
	}
	repJSON, err := json.Marshal(rep)
	if err != nil {
		return store.Run{}, fmt.Errorf("encode report: %w", err)
	}
	// verify may run from another directory.
	path, err := filepath.Abs(rep.DatasetPath)
	if err != nil {
		return store.Run{}, fmt.Errorf("resolve dataset path: %w", err)
	}
	return store.Run{
		ID:            rep.RunID,
		DatasetPath:   path,
		DatasetDigest: rep.DataDigest,
		ConfigDigest:  rep.ConfigDigest,
		ResultDigest:  rep.ResultDigest,
		Config:        cfgJSON,
		Report:        repJSON,
		Warnings:      rep.Warnings,
	}, nil
}
