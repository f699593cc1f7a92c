package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// LoadOptions controls how a table file is read.
type LoadOptions struct {
	// Columns maps variables to header names. Empty names use the defaults.
	Columns Columns

	// Delimiter separates cells. Zero means tab.
	Delimiter rune

	// Reference moves the named habitat level to the front (the baseline).
	Reference string
}

var (
	errNotFinite = errors.New("value is not finite")
	errNegative  = errors.New("allelic richness must be non-negative")
	errEmpty     = errors.New("empty label")
)

// Load reads and validates the table at path.
func Load(path string, opts LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	return Read(f, opts)
}

// Read parses a delimited table from r and validates its invariants.
func Read(r io.Reader, opts LoadOptions) (*Table, error) {
	cols := opts.Columns.withDefaults()

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	if cr.Comma == 0 {
		cr.Comma = '\t'
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	pos, err := locate(header, cols)
	if err != nil {
		return nil, err
	}

	var rows []Observation
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}
		obs, err := parseRow(rec, line, cols, pos)
		if err != nil {
			return nil, err
		}
		rows = append(rows, obs)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	t := New(cols, rows)
	if err := Validate(t); err != nil {
		return nil, err
	}
	return t.WithReference(normalize(opts.Reference))
}

// columnPositions holds the header index of each required column.
type columnPositions struct {
	locality, habitat, locus, response int
}

// locate finds each required column in the header. Matching ignores case
// and surrounding whitespace.
func locate(header []string, cols Columns) (columnPositions, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := headerKey(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	find := func(name string) (int, error) {
		i, ok := index[headerKey(name)]
		if !ok {
			return -1, &MissingColumnError{Column: name, Header: header}
		}
		return i, nil
	}

	var p columnPositions
	var err error
	if p.locality, err = find(cols.Locality); err != nil {
		return p, err
	}
	if p.habitat, err = find(cols.Habitat); err != nil {
		return p, err
	}
	if p.locus, err = find(cols.Locus); err != nil {
		return p, err
	}
	if p.response, err = find(cols.Response); err != nil {
		return p, err
	}
	return p, nil
}

func parseRow(rec []string, line int, cols Columns, p columnPositions) (Observation, error) {
	cell := func(i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}
	label := func(i int, name string) (string, error) {
		v := normalize(cell(i))
		if v == "" {
			return "", &ParseError{Line: line, Column: name, Value: cell(i), Err: errEmpty}
		}
		return v, nil
	}

	var obs Observation
	var err error
	obs.Line = line
	if obs.Locality, err = label(p.locality, cols.Locality); err != nil {
		return obs, err
	}
	if obs.Habitat, err = label(p.habitat, cols.Habitat); err != nil {
		return obs, err
	}
	if obs.Locus, err = label(p.locus, cols.Locus); err != nil {
		return obs, err
	}

	raw := cell(p.response)
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return obs, &ParseError{Line: line, Column: cols.Response, Value: raw, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return obs, &ParseError{Line: line, Column: cols.Response, Value: raw, Err: errNotFinite}
	}
	if v < 0 {
		return obs, &ParseError{Line: line, Column: cols.Response, Value: raw, Err: errNegative}
	}
	obs.Richness = v
	return obs, nil
}

// normalize trims a label and applies Unicode NFC so that visually
// identical labels compare equal.
func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func headerKey(s string) string {
	return strings.ToLower(normalize(s))
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
