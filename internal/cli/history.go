package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/richness/internal/config"
	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/digest"
	"github.com/roach88/richness/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Dataset  string // only runs on this table
}

// HistoryEntry is one recorded run as listed by history.
type HistoryEntry struct {
	Seq           int64     `json:"seq"`
	ID            string    `json:"id"`
	DatasetPath   string    `json:"dataset_path"`
	DatasetDigest string    `json:"dataset_digest"`
	ResultDigest  string    `json:"result_digest"`
	Warnings      int       `json:"warnings"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List runs recorded in a ledger",
		Long: `List analysis runs recorded with analyze --db, oldest first.

Examples:
  richness history --db runs.db
  richness history --db runs.db --limit 5
  richness history --db runs.db --dataset data.tsv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "show at most this many recent runs (0 for all)")
	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "only runs on this table")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := openLedger(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, "open ledger", err)
	}
	defer st.Close()

	var runs []store.Run
	if opts.Dataset != "" {
		d, err := datasetDigest(opts.Dataset)
		if err != nil {
			return formatter.Fail(ExitFailure, "read table", err)
		}
		runs, err = st.RunsForDataset(ctx, d)
		if err != nil {
			return formatter.Fail(ExitCommandError, "list runs", err)
		}
		if opts.Limit > 0 && len(runs) > opts.Limit {
			runs = runs[len(runs)-opts.Limit:]
		}
	} else {
		runs, err = st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return formatter.Fail(ExitCommandError, "list runs", err)
		}
	}

	entries := make([]HistoryEntry, len(runs))
	for i, r := range runs {
		entries[i] = HistoryEntry{
			Seq:           r.Seq,
			ID:            r.ID,
			DatasetPath:   r.DatasetPath,
			DatasetDigest: r.DatasetDigest,
			ResultDigest:  r.ResultDigest,
			Warnings:      len(r.Warnings),
			RecordedAt:    r.RecordedAt,
		}
	}

	if formatter.IsJSON() {
		return formatter.Success(entries)
	}

	w := formatter.Writer
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	fmt.Fprintf(w, "%-5s %-36s %-20s %-12s %s\n", "seq", "run", "recorded", "result", "dataset")
	for _, e := range entries {
		fmt.Fprintf(w, "%-5d %-36s %-20s %-12s %s\n",
			e.Seq, e.ID, e.RecordedAt.UTC().Format(time.DateTime), shortDigest(e.ResultDigest), e.DatasetPath)
	}
	return nil
}

// openLedger opens an existing ledger. Unlike store.Open it refuses to
// create a new database file.
func openLedger(path string) (*store.Store, error) {
	if err := fileExists(path); err != nil {
		return nil, err
	}
	return store.Open(path)
}

// datasetDigest loads the table at path with the default options and
// returns its content digest.
func datasetDigest(path string) (string, error) {
	opts, err := config.Default().LoadOptions()
	if err != nil {
		return "", err
	}
	t, err := dataset.Load(path, opts)
	if err != nil {
		return "", err
	}
	return digest.Dataset(t)
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
