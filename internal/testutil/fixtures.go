package testutil

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ReferenceTSV is a 24-locality x 5-locus allelic-richness table with four
// habitats (City, Disturbed, Island, Natural). Locus means differ by several
// alleles while habitat shifts are a fraction of an allele, so marker
// variability dominates the variance.
//
//go:embed testdata/allelic_richness.tsv
var ReferenceTSV string

// FlatLociTSV returns a table in which every locus carries exactly the same
// values across localities. The between-locus variance is therefore zero and
// a random intercept per locus fits at the boundary.
func FlatLociTSV() string {
	values := map[string]float64{
		"L1": 5.1, "L2": 5.6, "L3": 4.8, "L4": 5.3,
		"L5": 6.0, "L6": 5.4, "L7": 6.2, "L8": 5.7,
	}
	habitat := func(loc string) string {
		if loc <= "L4" {
			return "Natural"
		}
		return "City"
	}

	var b strings.Builder
	b.WriteString("locality\thabitat\tlocus\tallelic_richness\n")
	for _, locus := range []string{"Ca2", "Mk6", "Lv2"} {
		for i := 1; i <= 8; i++ {
			loc := fmt.Sprintf("L%d", i)
			fmt.Fprintf(&b, "%s\t%s\t%s\t%.1f\n", loc, habitat(loc), locus, values[loc])
		}
	}
	return b.String()
}

// SingleHabitatTSV returns a table whose habitat factor has one level.
func SingleHabitatTSV() string {
	return "locality\thabitat\tlocus\tallelic_richness\n" +
		"L1\tNatural\tCa2\t4.2\n" +
		"L1\tNatural\tMk6\t8.1\n" +
		"L1\tNatural\tLv2\t11.0\n" +
		"L2\tNatural\tCa2\t4.6\n" +
		"L2\tNatural\tMk6\t7.7\n" +
		"L2\tNatural\tLv2\t11.4\n" +
		"L3\tNatural\tCa2\t3.9\n" +
		"L3\tNatural\tMk6\t8.4\n" +
		"L3\tNatural\tLv2\t10.8\n"
}

// WriteFile writes content to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// ReferencePath writes ReferenceTSV to a temporary file and returns its path.
func ReferencePath(t *testing.T) string {
	t.Helper()
	return WriteFile(t, "allelic_richness.tsv", ReferenceTSV)
}
