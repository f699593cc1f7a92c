// Package diagnostics derives residual-versus-fitted data from a fitted
// model so the homoscedasticity assumption can be checked, numerically here
// or visually by an external plotting tool.
package diagnostics

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/roach88/richness/internal/lmm"
)

// Point pairs one observation's conditional fitted value with its residual.
type Point struct {
	Index    int     `json:"index"`
	Locality string  `json:"locality"`
	Habitat  string  `json:"habitat"`
	Locus    string  `json:"locus"`
	Observed float64 `json:"observed"`
	Fitted   float64 `json:"fitted"`
	Residual float64 `json:"residual"`
}

// Residuals returns one point per observation, in table order. Fitted values
// include the predicted locus intercepts.
func Residuals(m *lmm.FittedModel) []Point {
	fitted := m.Fitted()
	y := m.Responses()
	rows := m.Table().Rows

	points := make([]Point, len(y))
	for i := range y {
		points[i] = Point{
			Index:    i,
			Locality: rows[i].Locality,
			Habitat:  rows[i].Habitat,
			Locus:    rows[i].Locus,
			Observed: y[i],
			Fitted:   fitted[i],
			Residual: y[i] - fitted[i],
		}
	}
	return points
}

// Summary condenses the residual distribution.
type Summary struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`

	// SpreadCorrelation is the Pearson correlation between |residual| and
	// the fitted value. Values far from zero suggest the residual spread
	// changes with the mean. Zero when either side is constant.
	SpreadCorrelation float64 `json:"spread_correlation"`
}

// Summarize computes residual summary statistics.
func Summarize(points []Point) Summary {
	s := Summary{N: len(points)}
	if len(points) == 0 {
		return s
	}

	res := make([]float64, len(points))
	abs := make([]float64, len(points))
	fit := make([]float64, len(points))
	for i, p := range points {
		res[i] = p.Residual
		abs[i] = math.Abs(p.Residual)
		fit[i] = p.Fitted
	}

	s.Mean = stat.Mean(res, nil)
	s.Min = floats.Min(res)
	s.Max = floats.Max(res)
	if len(points) > 1 {
		s.SD = math.Sqrt(stat.Variance(res, nil))
		if r := stat.Correlation(abs, fit, nil); !math.IsNaN(r) {
			s.SpreadCorrelation = r
		}
	}
	return s
}

// WriteTSV writes the points as a tab-separated table with a header row.
func WriteTSV(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write([]string{"index", "locality", "habitat", "locus", "observed", "fitted", "residual"}); err != nil {
		return fmt.Errorf("write residuals header: %w", err)
	}
	for _, p := range points {
		rec := []string{
			strconv.Itoa(p.Index),
			p.Locality,
			p.Habitat,
			p.Locus,
			formatFloat(p.Observed),
			formatFloat(p.Fitted),
			formatFloat(p.Residual),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write residual %d: %w", p.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
