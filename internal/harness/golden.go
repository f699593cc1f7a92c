package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/richness/internal/digest"
)

// Snapshot is the float-free summary of a scenario outcome that golden
// files record.
type Snapshot struct {
	Scenario    string
	RunID       string
	Pass        bool
	Kind        string
	NObs        int
	Habitats    []string
	Formulas    []string
	Singular    bool
	LRTDF       int
	Comparisons int
	Significant []string
	Warnings    int
}

// NewSnapshot summarizes a result.
func NewSnapshot(r *Result) Snapshot {
	s := Snapshot{
		Scenario: r.Scenario,
		Pass:     r.Pass,
		Kind:     string(r.Kind),
	}
	rep := r.Report
	if rep == nil {
		return s
	}
	s.RunID = rep.RunID
	s.NObs = rep.NObs
	s.Formulas = []string{rep.Full.Formula, rep.Null.Formula}
	s.Singular = rep.Full.Singular
	s.LRTDF = rep.LRT.DF
	s.Habitats = rep.Posthoc.Levels
	s.Comparisons = len(rep.Posthoc.Comparisons)
	s.Significant = significantLabels(rep)
	s.Warnings = len(rep.Warnings)
	return s
}

// MarshalCanonical encodes the snapshot as canonical JSON.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	obj := map[string]any{
		"scenario": s.Scenario,
		"pass":     s.Pass,
	}
	if s.Kind != "" {
		obj["kind"] = s.Kind
	}
	if s.RunID != "" {
		obj["run_id"] = s.RunID
		obj["n_obs"] = s.NObs
		obj["habitats"] = s.Habitats
		obj["formulas"] = s.Formulas
		obj["singular"] = s.Singular
		obj["lrt_df"] = s.LRTDF
		obj["comparisons"] = s.Comparisons
		obj["significant"] = s.Significant
		obj["warnings"] = s.Warnings
	}
	return digest.MarshalCanonical(obj)
}

// AssertGolden compares the result's snapshot against
// testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := NewSnapshot(result).MarshalCanonical()
	if err != nil {
		t.Fatalf("snapshot %s: %v", name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

// RunWithGolden runs a scenario and compares its snapshot with the golden
// file named after the scenario.
func RunWithGolden(t *testing.T, s *Scenario) *Result {
	t.Helper()

	result, err := Run(t.Context(), s)
	if err != nil {
		t.Fatalf("run %s: %v", s.Name, err)
	}
	AssertGolden(t, s.Name, result)
	return result
}
