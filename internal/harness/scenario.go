package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/richness/internal/analysis"
	"github.com/roach88/richness/internal/config"
)

// Scenario defines one analysis scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Data is the path of the table to analyse. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Data string `yaml:"data,omitempty"`

	// Table is an inline table, used instead of Data.
	Table string `yaml:"table,omitempty"`

	// Config holds configuration overrides applied over the defaults.
	Config yaml.Node `yaml:"config,omitempty"`

	// RunID is the fixed run identifier. Empty uses "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Expect lists the outcome checks. Unset fields are not checked.
	Expect Expectation `yaml:"expect"`
}

// Expectation describes the expected outcome of a scenario.
type Expectation struct {
	// Error is the expected error category (see analysis.ErrorKind).
	// Empty means the run must succeed.
	Error string `yaml:"error,omitempty"`

	Singular              *bool    `yaml:"singular,omitempty"`
	Comparisons           *int     `yaml:"comparisons,omitempty"`
	ConditionalGtMarginal *bool    `yaml:"conditional_gt_marginal,omitempty"`
	MinConditionalR2      *float64 `yaml:"min_conditional_r2,omitempty"`
	MaxMarginalR2         *float64 `yaml:"max_marginal_r2,omitempty"`
	LRTDF                 *int     `yaml:"lrt_df,omitempty"`
	MaxLRTP               *float64 `yaml:"max_lrt_p,omitempty"`
	MinLRTP               *float64 `yaml:"min_lrt_p,omitempty"`

	// Significant is the exact set of comparison labels ("A - B") whose
	// adjusted p-value is below the configured alpha.
	Significant *[]string `yaml:"significant,omitempty"`
}

var knownKinds = map[analysis.ErrorKind]bool{
	analysis.KindParse:               true,
	analysis.KindMissingColumn:       true,
	analysis.KindDuplicate:           true,
	analysis.KindInconsistentHabitat: true,
	analysis.KindEmpty:               true,
	analysis.KindUnknownLevel:        true,
	analysis.KindConfig:              true,
	analysis.KindDesign:              true,
	analysis.KindConvergence:         true,
	analysis.KindMismatch:            true,
	analysis.KindUnderdetermined:     true,
	analysis.KindOther:               true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so that typos in expectation names surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Data != "" && !filepath.IsAbs(s.Data) {
		s.Data = filepath.Join(filepath.Dir(path), s.Data)
	}
	if s.Data != "" {
		if _, err := os.Stat(s.Data); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("invalid scenario: data file not found: %s", s.Data)
		}
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML. Data paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	switch {
	case s.Data == "" && s.Table == "":
		return errors.New("one of data or table is required")
	case s.Data != "" && s.Table != "":
		return errors.New("data and table are mutually exclusive")
	}
	if s.Expect.Error != "" && !knownKinds[analysis.ErrorKind(s.Expect.Error)] {
		return fmt.Errorf("expect.error: unknown error category %q", s.Expect.Error)
	}
	if s.Expect.Error != "" && s.Expect.hasReportChecks() {
		return errors.New("expect.error cannot be combined with report expectations")
	}
	return nil
}

func (e Expectation) hasReportChecks() bool {
	return e.Singular != nil || e.Comparisons != nil || e.ConditionalGtMarginal != nil ||
		e.MinConditionalR2 != nil || e.MaxMarginalR2 != nil || e.LRTDF != nil ||
		e.MaxLRTP != nil || e.MinLRTP != nil || e.Significant != nil
}

// config applies the scenario's overrides over the defaults.
func (s *Scenario) config() (config.Config, error) {
	if s.Config.Kind == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return config.Parse(data)
}
