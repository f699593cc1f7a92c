package dataset

import (
	"fmt"
	"slices"
)

// Default header names.
const (
	DefaultLocality = "locality"
	DefaultHabitat  = "habitat"
	DefaultLocus    = "locus"
	DefaultResponse = "allelic_richness"
)

// Columns names the header cells that carry each required variable.
type Columns struct {
	Locality string `json:"locality" yaml:"locality"`
	Habitat  string `json:"habitat" yaml:"habitat"`
	Locus    string `json:"locus" yaml:"locus"`
	Response string `json:"response" yaml:"response"`
}

// DefaultColumns returns the conventional header names.
func DefaultColumns() Columns {
	return Columns{
		Locality: DefaultLocality,
		Habitat:  DefaultHabitat,
		Locus:    DefaultLocus,
		Response: DefaultResponse,
	}
}

// withDefaults fills empty names with the conventional ones.
func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.Locality == "" {
		c.Locality = d.Locality
	}
	if c.Habitat == "" {
		c.Habitat = d.Habitat
	}
	if c.Locus == "" {
		c.Locus = d.Locus
	}
	if c.Response == "" {
		c.Response = d.Response
	}
	return c
}

// Observation is one measurement tuple.
type Observation struct {
	Locality string  `json:"locality"`
	Habitat  string  `json:"habitat"`
	Locus    string  `json:"locus"`
	Richness float64 `json:"allelic_richness"`

	// Line is the source line the observation was read from (0 if built in memory).
	Line int `json:"-"`
}

// Factor is a categorical variable and its level set.
type Factor struct {
	Name   string   `json:"name"`
	Levels []string `json:"levels"`
}

// Index returns the position of level in f.Levels, or -1.
func (f Factor) Index(level string) int {
	return slices.Index(f.Levels, level)
}

// Len returns the number of levels.
func (f Factor) Len() int {
	return len(f.Levels)
}

// Table is an in-memory observation table with its factor level sets.
type Table struct {
	Columns  Columns       `json:"columns"`
	Rows     []Observation `json:"rows"`
	Locality Factor        `json:"locality"`
	Habitat  Factor        `json:"habitat"`
	Locus    Factor        `json:"locus"`
}

// New builds a table from observations, collecting factor levels in
// lexicographic order.
func New(cols Columns, rows []Observation) *Table {
	cols = cols.withDefaults()
	t := &Table{
		Columns: cols,
		Rows:    slices.Clone(rows),
	}
	t.Locality = collect(cols.Locality, rows, func(o Observation) string { return o.Locality })
	t.Habitat = collect(cols.Habitat, rows, func(o Observation) string { return o.Habitat })
	t.Locus = collect(cols.Locus, rows, func(o Observation) string { return o.Locus })
	return t
}

func collect(name string, rows []Observation, key func(Observation) string) Factor {
	seen := make(map[string]struct{})
	var levels []string
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		levels = append(levels, k)
	}
	slices.Sort(levels)
	return Factor{Name: name, Levels: levels}
}

// Len returns the number of observations.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Responses returns the response column.
func (t *Table) Responses() []float64 {
	y := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		y[i] = r.Richness
	}
	return y
}

// HabitatIndex returns, for each row, the index of its habitat in t.Habitat.Levels.
func (t *Table) HabitatIndex() []int {
	return t.index(t.Habitat, func(o Observation) string { return o.Habitat })
}

// LocusIndex returns, for each row, the index of its locus in t.Locus.Levels.
func (t *Table) LocusIndex() []int {
	return t.index(t.Locus, func(o Observation) string { return o.Locus })
}

func (t *Table) index(f Factor, key func(Observation) string) []int {
	pos := make(map[string]int, len(f.Levels))
	for i, l := range f.Levels {
		pos[l] = i
	}
	idx := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		idx[i] = pos[key(r)]
	}
	return idx
}

// WithReference returns a copy of t whose habitat levels start with level.
// The remaining levels keep their order. An empty level returns t unchanged.
func (t *Table) WithReference(level string) (*Table, error) {
	if level == "" {
		return t, nil
	}
	i := t.Habitat.Index(level)
	if i < 0 {
		return nil, fmt.Errorf("reference %q for %s (levels %v): %w", level, t.Habitat.Name, t.Habitat.Levels, ErrUnknownLevel)
	}
	out := *t
	levels := make([]string, 0, len(t.Habitat.Levels))
	levels = append(levels, level)
	levels = append(levels, t.Habitat.Levels[:i]...)
	levels = append(levels, t.Habitat.Levels[i+1:]...)
	out.Habitat = Factor{Name: t.Habitat.Name, Levels: levels}
	return &out, nil
}
