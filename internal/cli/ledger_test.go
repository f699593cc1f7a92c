package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/richness/internal/testutil"
)

// recordAnalysis analyses path into the ledger at db and returns the run ID.
func recordAnalysis(t *testing.T, db, path string) string {
	t.Helper()
	stdout, _, code := execute(t, "--format", "json", "analyze", "--db", db, path)
	require.Equal(t, ExitSuccess, code, stdout)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotEmpty(t, resp.RunID)
	return resp.RunID
}

func TestHistory_ListsRecordedRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	path := testutil.ReferencePath(t)
	first := recordAnalysis(t, db, path)
	second := recordAnalysis(t, db, path)

	stdout, _, code := execute(t, "history", "--db", db)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, first)
	assert.Contains(t, stdout, second)
	assert.Less(t, strings.Index(stdout, first), strings.Index(stdout, second))

	stdout, _, code = execute(t, "--format", "json", "history", "--db", db, "--limit", "1")
	require.Equal(t, ExitSuccess, code)
	var resp struct {
		Data []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, second, resp.Data[0].ID)
	assert.Equal(t, path, resp.Data[0].DatasetPath)
}

func TestHistory_FilterByDataset(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	ref := testutil.ReferencePath(t)
	flat := testutil.WriteFile(t, "flat.tsv", testutil.FlatLociTSV())
	recordAnalysis(t, db, ref)
	flatID := recordAnalysis(t, db, flat)

	stdout, _, code := execute(t, "--format", "json", "history", "--db", db, "--dataset", flat)
	require.Equal(t, ExitSuccess, code)
	var resp struct {
		Data []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, flatID, resp.Data[0].ID)
	assert.Equal(t, 2, resp.Data[0].Warnings)
}

func TestHistory_MissingLedger(t *testing.T) {
	stdout, _, code := execute(t, "history", "--db", filepath.Join(t.TempDir(), "absent.db"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, "Error [E005]")
}

func TestAnalyze_FailureRecordsNothing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	path := testutil.WriteFile(t, "table.tsv", "locality\thabitat\tlocus\tallelic_richness\nL1\tCity\tCa2\tx\n")
	_, _, code := execute(t, "analyze", "--db", db, path)
	require.Equal(t, ExitFailure, code)

	// A failed analysis records nothing and creates no ledger.
	_, err := os.Stat(db)
	assert.True(t, os.IsNotExist(err))
}

func TestVerify_Reproduces(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	id := recordAnalysis(t, db, testutil.ReferencePath(t))

	stdout, _, code := execute(t, "verify", "--db", db, id)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "✓ "+id+" reproduced within 1e-06")

	stdout, _, code = execute(t, "--format", "json", "verify", "--db", db, id)
	require.Equal(t, ExitSuccess, code)
	var resp struct {
		Status string       `json:"status"`
		Data   VerifyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Deterministic)
	assert.True(t, resp.Data.DatasetMatch)
	assert.NotEqual(t, id, resp.Data.RerunID)
}

func TestVerify_RelativePathFromAnotherDirectory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	path := testutil.ReferencePath(t)
	t.Chdir(filepath.Dir(path))
	id := recordAnalysis(t, db, filepath.Base(path))

	t.Chdir(t.TempDir())
	stdout, _, code := execute(t, "--format", "json", "verify", "--db", db, id)
	require.Equal(t, ExitSuccess, code, stdout)
	var resp struct {
		Data VerifyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.True(t, resp.Data.Deterministic)
	assert.True(t, filepath.IsAbs(resp.Data.DatasetPath), resp.Data.DatasetPath)
}

func TestVerify_DatasetChanged(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	path := testutil.ReferencePath(t)
	id := recordAnalysis(t, db, path)

	// Nudge one value so the rerun sees a different table.
	changed := strings.Replace(testutil.ReferenceTSV, "4.34", "4.44", 1)
	require.NoError(t, os.WriteFile(path, []byte(changed), 0o644))

	stdout, _, code := execute(t, "verify", "--db", db, id)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "changed since the run was recorded")
}

func TestVerify_UnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	recordAnalysis(t, db, testutil.ReferencePath(t))

	stdout, _, code := execute(t, "verify", "--db", db, "no-such-run")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, "Error [E005]")
}
