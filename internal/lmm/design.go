package lmm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/roach88/richness/internal/dataset"
)

// design is the model matrix of one fit: treatment-coded fixed effects with
// the first level as baseline, plus the group membership of every row.
type design struct {
	spec    Spec
	formula string
	x       *mat.Dense
	y       []float64
	group   []int
	terms   []string
	levels  []string
	groups  []string
}

func (d *design) n() int { return len(d.y) }

func (d *design) p() int { return len(d.terms) }

// buildDesign validates spec against the table's columns and assembles X.
func buildDesign(t *dataset.Table, spec Spec) (*design, error) {
	formula := spec.Formula()
	bad := func(format string, args ...any) error {
		return &DesignError{Formula: formula, Reason: fmt.Sprintf(format, args...)}
	}

	if spec.Response != t.Columns.Response {
		return nil, bad("unknown response %q", spec.Response)
	}
	if spec.Group != t.Columns.Locus {
		return nil, bad("unknown grouping factor %q", spec.Group)
	}
	if spec.HasFixed() && spec.Fixed != t.Columns.Habitat {
		return nil, bad("unknown fixed factor %q", spec.Fixed)
	}
	if t.Locus.Len() < 2 {
		return nil, bad("random intercept needs at least 2 levels of %s, got %d", spec.Group, t.Locus.Len())
	}

	d := &design{
		spec:    spec,
		formula: formula,
		y:       t.Responses(),
		group:   t.LocusIndex(),
		terms:   []string{InterceptTerm},
		groups:  append([]string(nil), t.Locus.Levels...),
	}

	var level []int
	if spec.HasFixed() {
		d.levels = append([]string(nil), t.Habitat.Levels...)
		for _, l := range d.levels[1:] {
			d.terms = append(d.terms, spec.Fixed+l)
		}
		level = t.HabitatIndex()
	}

	n, p := d.n(), d.p()
	// Two variance parameters on top of the fixed effects.
	if n < p+2 {
		return nil, bad("%d observations cannot identify %d parameters", n, p+2)
	}

	d.x = mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		d.x.Set(i, 0, 1)
		if level != nil && level[i] > 0 {
			d.x.Set(i, level[i], 1)
		}
	}
	return d, nil
}
