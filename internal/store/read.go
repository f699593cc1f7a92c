package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a run ID is not in the ledger.
var ErrNotFound = errors.New("run not found")

const runColumns = `seq, id, dataset_path, dataset_digest, config_digest, result_digest, config, report, environment, recorded_at`

// ReadRun returns the run with the given ID.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.Warnings, err = s.readWarnings(ctx, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent limit runs (all runs if limit <= 0),
// oldest first.
//
// Returns an empty slice (not nil) if the ledger is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryRuns(ctx, `
		SELECT `+runColumns+` FROM (
			SELECT `+runColumns+` FROM runs
			ORDER BY seq DESC, id COLLATE BINARY DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, limit)
}

// RunsForDataset returns every run recorded against the dataset digest,
// oldest first.
func (s *Store) RunsForDataset(ctx context.Context, datasetDigest string) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE dataset_digest = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, datasetDigest)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		if runs[i].Warnings, err = s.readWarnings(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) readWarnings(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message FROM run_warnings WHERE run_id = ? ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate warnings: %w", err)
	}
	return out, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                 Run
		config, report, env string
		recordedAt          string
	)
	err := sc.Scan(
		&run.Seq,
		&run.ID,
		&run.DatasetPath,
		&run.DatasetDigest,
		&run.ConfigDigest,
		&run.ResultDigest,
		&config,
		&report,
		&env,
		&recordedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Config = json.RawMessage(config)
	run.Report = json.RawMessage(report)
	if run.Environment, err = unmarshalEnvironment(env); err != nil {
		return Run{}, err
	}
	if run.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return Run{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	return run, nil
}
