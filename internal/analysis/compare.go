package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// absoluteFloor keeps values near zero (tiny p-values, zero variances) from
// failing a purely relative comparison.
const absoluteFloor = 1e-12

// Difference is a quantity on which two reports disagree. A quantity
// present in only one report has NaN on the other side.
type Difference struct {
	Name string  `json:"name"`
	A    float64 `json:"a"`
	B    float64 `json:"b"`
}

// Compare returns every quantity of a and b that differs by more than the
// relative tolerance rel. An empty result means the runs agree.
func Compare(a, b *Report, rel float64) []Difference {
	bv := make(map[string]float64)
	var order []string
	for _, q := range b.Quantities() {
		bv[q.Name] = q.Value
		order = append(order, q.Name)
	}

	var diffs []Difference
	seen := make(map[string]bool)
	for _, q := range a.Quantities() {
		seen[q.Name] = true
		other, ok := bv[q.Name]
		if !ok {
			diffs = append(diffs, Difference{Name: q.Name, A: q.Value, B: math.NaN()})
			continue
		}
		if !scalar.EqualWithinAbsOrRel(q.Value, other, absoluteFloor, rel) {
			diffs = append(diffs, Difference{Name: q.Name, A: q.Value, B: other})
		}
	}
	for _, name := range order {
		if !seen[name] {
			diffs = append(diffs, Difference{Name: name, A: math.NaN(), B: bv[name]})
		}
	}
	return diffs
}
