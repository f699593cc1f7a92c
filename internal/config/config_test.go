package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/richness/internal/testutil"
)

func hasFieldError(err error, field string) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	for _, f := range ve.Fields {
		if f.Path == field || strings.HasSuffix(f.Path, "."+field) {
			return true
		}
	}
	return false
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse_EmptyYieldsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_OverridesKeepOtherDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
reference_level: Natural
alpha: 0.01
optimizer:
  max_iterations: 250
columns:
  response: ar
`))
	require.NoError(t, err)

	assert.Equal(t, "Natural", cfg.ReferenceLevel)
	assert.Equal(t, 0.01, cfg.Alpha)
	assert.Equal(t, 250, cfg.Optimizer.MaxIterations)
	assert.Equal(t, Default().Optimizer.Tolerance, cfg.Optimizer.Tolerance)
	assert.Equal(t, "ar", cfg.Columns.Response)
	assert.Equal(t, "locus", cfg.Columns.Locus)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("refernce_level: Natural\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refernce_level")
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"alpha zero", "alpha: 0\n", "alpha"},
		{"alpha above one", "alpha: 1.5\n", "alpha"},
		{"negative tolerance", "optimizer:\n  tolerance: -1\n", "tolerance"},
		{"zero iterations", "optimizer:\n  max_iterations: 0\n", "max_iterations"},
		{"empty column", "columns:\n  locus: \"\"\n", "locus"},
		{"bad delimiter", "delimiter: pipes\n", "delimiter"},
		{"quote delimiter", "delimiter: '\"'\n", "delimiter"},
		{"newline delimiter", "delimiter: \"\\n\"\n", "delimiter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, IsValidation(err), "got %v", err)
			assert.True(t, hasFieldError(err, tt.field), "got %v", err)
		})
	}
}

func TestParse_HashDelimiter(t *testing.T) {
	cfg, err := Parse([]byte("delimiter: \"#\"\n"))
	require.NoError(t, err)
	opts, err := cfg.LoadOptions()
	require.NoError(t, err)
	assert.Equal(t, '#', opts.Delimiter)
}

func TestParse_CollectsEveryViolation(t *testing.T) {
	_, err := Parse([]byte("alpha: 2\ndeterminism_tolerance: 0\n"))
	require.Error(t, err)
	assert.True(t, hasFieldError(err, "alpha"))
	assert.True(t, hasFieldError(err, "determinism_tolerance"))
}

func TestDelimiterRune(t *testing.T) {
	tests := map[string]rune{
		"":          '\t',
		"tab":       '\t',
		"comma":     ',',
		"semicolon": ';',
		"|":         '|',
	}
	for name, want := range tests {
		got, err := Config{Delimiter: name}.DelimiterRune()
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := Config{Delimiter: "||"}.DelimiterRune()
	assert.Error(t, err)
}

func TestLoadOptions(t *testing.T) {
	cfg := Default()
	cfg.Delimiter = "comma"
	cfg.ReferenceLevel = "Island"

	opts, err := cfg.LoadOptions()
	require.NoError(t, err)
	assert.Equal(t, ',', opts.Delimiter)
	assert.Equal(t, "Island", opts.Reference)
	assert.Equal(t, cfg.Columns, opts.Columns)
}

func TestLoad_File(t *testing.T) {
	path := testutil.WriteFile(t, "richness.yaml", "alpha: 0.1\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.Alpha)

	_, err = Load(path + ".missing")
	assert.Error(t, err)
}
