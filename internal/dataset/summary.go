package dataset

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// GroupSummary describes the response within one factor level.
type GroupSummary struct {
	Factor string  `json:"factor"`
	Level  string  `json:"level"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	SD     float64 `json:"sd"`
}

// Summary returns per-level response summaries for the habitat factor
// followed by the locus factor, each in level order.
func Summary(t *Table) []GroupSummary {
	out := summarize(t.Habitat, t.HabitatIndex(), t.Responses())
	return append(out, summarize(t.Locus, t.LocusIndex(), t.Responses())...)
}

func summarize(f Factor, idx []int, y []float64) []GroupSummary {
	buckets := make([][]float64, f.Len())
	for i, k := range idx {
		buckets[k] = append(buckets[k], y[i])
	}

	out := make([]GroupSummary, f.Len())
	for k, level := range f.Levels {
		values := buckets[k]
		s := GroupSummary{Factor: f.Name, Level: level, N: len(values)}
		if len(values) > 0 {
			s.Mean = stat.Mean(values, nil)
		}
		if len(values) > 1 {
			s.SD = math.Sqrt(stat.Variance(values, nil))
		}
		out[k] = s
	}
	return out
}
