package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Run is one recorded analysis run.
type Run struct {
	// Seq is the ledger position, assigned by WriteRun.
	Seq int64 `json:"seq"`

	ID            string `json:"id"`
	DatasetPath   string `json:"dataset_path"`
	DatasetDigest string `json:"dataset_digest"`
	ConfigDigest  string `json:"config_digest"`
	ResultDigest  string `json:"result_digest"`

	// Config and Report are JSON documents.
	Config json.RawMessage `json:"config"`
	Report json.RawMessage `json:"report"`

	Environment Environment `json:"environment"`
	Warnings    []string    `json:"warnings,omitempty"`

	// RecordedAt is informational only; it never orders runs.
	RecordedAt time.Time `json:"recorded_at"`
}

// WriteRun records run and returns its ledger sequence number.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing an existing
// run ID again is a no-op that returns the original seq.
//
// If run.Environment is empty the current environment is recorded.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	if run.ID == "" {
		return 0, fmt.Errorf("write run: id is required")
	}
	if run.Environment.GoVersion == "" {
		run.Environment = CurrentEnvironment()
	}
	envJSON, err := marshalEnvironment(run.Environment)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	recordedAt := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, dataset_path, dataset_digest, config_digest, result_digest, config, report, environment, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.DatasetPath,
		run.DatasetDigest,
		run.ConfigDigest,
		run.ResultDigest,
		jsonText(run.Config),
		jsonText(run.Report),
		envJSON,
		recordedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	if inserted > 0 {
		for i, msg := range run.Warnings {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO run_warnings (run_id, idx, message) VALUES (?, ?, ?)
			`, run.ID, i, msg); err != nil {
				return 0, fmt.Errorf("write run warning %d: %w", i, err)
			}
		}
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT seq FROM runs WHERE id = ?", run.ID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: read seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}

func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
