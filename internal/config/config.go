// Package config loads and validates the analysis configuration.
//
// A config file is YAML. Fields left out keep their defaults, unknown
// fields are rejected, and the merged result is checked against an
// embedded CUE schema so range constraints live in one declarative place.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/richness/internal/dataset"
	"github.com/roach88/richness/internal/lmm"
)

//go:embed schema.cue
var schemaSource string

// Config is the full set of analysis settings.
type Config struct {
	Columns              dataset.Columns `json:"columns" yaml:"columns"`
	Delimiter            string          `json:"delimiter" yaml:"delimiter"`
	ReferenceLevel       string          `json:"reference_level" yaml:"reference_level"`
	Optimizer            lmm.Options     `json:"optimizer" yaml:"optimizer"`
	Alpha                float64         `json:"alpha" yaml:"alpha"`
	DeterminismTolerance float64         `json:"determinism_tolerance" yaml:"determinism_tolerance"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Columns:              dataset.DefaultColumns(),
		Delimiter:            "tab",
		Optimizer:            lmm.DefaultOptions(),
		Alpha:                0.05,
		DeterminismTolerance: 1e-6,
	}
}

// FieldError is one schema violation.
type FieldError struct {
	// Path is the dotted field path, e.g. "optimizer.tolerance".
	Path    string
	Message string
}

func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationError collects every schema violation of a config.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Load reads the YAML file at path over the defaults and validates the
// result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Empty
// input yields the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks c against the schema. It returns a *ValidationError
// listing every violation.
func (c Config) Validate() error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	value := ctx.CompileBytes(data, cue.Filename("config.json"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("load config value: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	ve := &ValidationError{}
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		fe := FieldError{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if key := fe.Error(); !seen[key] {
			seen[key] = true
			ve.Fields = append(ve.Fields, fe)
		}
	}
	if len(ve.Fields) == 0 {
		ve.Fields = []FieldError{{Message: err.Error()}}
	}
	return ve
}

// DelimiterRune resolves the configured delimiter name.
func (c Config) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "", "tab":
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	}
	if utf8.RuneCountInString(c.Delimiter) == 1 {
		r, _ := utf8.DecodeRuneInString(c.Delimiter)
		return r, nil
	}
	return 0, fmt.Errorf("delimiter %q: must be tab, comma, semicolon or a single character", c.Delimiter)
}

// LoadOptions returns the dataset options described by c.
func (c Config) LoadOptions() (dataset.LoadOptions, error) {
	delim, err := c.DelimiterRune()
	if err != nil {
		return dataset.LoadOptions{}, err
	}
	return dataset.LoadOptions{
		Columns:   c.Columns,
		Delimiter: delim,
		Reference: c.ReferenceLevel,
	}, nil
}
