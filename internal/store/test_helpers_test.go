package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/roach88/richness/internal/testutil"
)

// createTestStore creates a new store in a temporary directory with a
// deterministic clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewStepClock().Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id, datasetDigest string) Run {
	return Run{
		ID:            id,
		DatasetPath:   "data/" + id + ".tsv",
		DatasetDigest: datasetDigest,
		ConfigDigest:  "config-" + id,
		ResultDigest:  "result-" + id,
		Config:        json.RawMessage(`{"alpha":0.05}`),
		Report:        json.RawMessage(`{"run_id":"` + id + `"}`),
		Environment:   Environment{GoVersion: "go1.25.0", OS: "linux", Arch: "amd64"},
	}
}
