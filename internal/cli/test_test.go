package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestTestCommand_HarnessScenarios(t *testing.T) {
	stdout, _, code := execute(t, "test", harnessScenarios)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "✓ reference_habitats")
	assert.Contains(t, stdout, "✓ flat_loci")
	assert.Contains(t, stdout, "0 failed")
}

func TestTestCommand_Filter(t *testing.T) {
	stdout, _, code := execute(t, "--format", "json", "test", harnessScenarios, "--filter", "flat*")
	require.Equal(t, ExitSuccess, code, stdout)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "flat_loci", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	scenario := `name: wrong
description: expects a parse error from a valid table
table: |
  locality	habitat	locus	allelic_richness
  L1	City	Ca2	3.0
  L2	Island	Ca2	4.0
  L1	City	Mk6	5.0
  L2	Island	Mk6	6.5
expect:
  error: parse
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(scenario), 0o644))

	stdout, _, code := execute(t, "test", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "✗ wrong")
	assert.Contains(t, stdout, "expected parse error")
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	scenario := "name: no_locus\ndescription: missing column\ntable: |\n  locality\thabitat\n  L1\tCity\nexpect:\n  error: missing_column\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "no_locus.yaml"), []byte(scenario), 0o644))

	stdout, _, code := execute(t, "test", dir, "--update")
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "golden updated")

	golden, err := os.ReadFile(filepath.Join(root, "golden", "no_locus.golden"))
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"missing_column","pass":true,"scenario":"no_locus"}`, string(golden))

	// A stale golden file fails the scenario.
	require.NoError(t, os.WriteFile(filepath.Join(root, "golden", "no_locus.golden"), []byte("{}"), 0o644))
	stdout, _, code = execute(t, "test", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "does not match golden file")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, stderr, code := execute(t, "test", "/nonexistent/scenarios")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "scenarios directory not found")
}

func TestTestCommand_NoScenarios(t *testing.T) {
	stdout, _, code := execute(t, "test", t.TempDir())
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "No scenarios found.")
}
