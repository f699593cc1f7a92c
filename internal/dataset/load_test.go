package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/richness/internal/testutil"
)

func TestRead_ReferenceTable(t *testing.T) {
	tbl, err := Read(strings.NewReader(testutil.ReferenceTSV), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 120, tbl.Len())
	assert.Equal(t, []string{"City", "Disturbed", "Island", "Natural"}, tbl.Habitat.Levels)
	assert.Equal(t, []string{"Ca2", "Lv2", "Mk6", "Pm13", "Tr7"}, tbl.Locus.Levels)
	assert.Equal(t, 24, tbl.Locality.Len())

	first := tbl.Rows[0]
	assert.Equal(t, "L01", first.Locality)
	assert.Equal(t, "Natural", first.Habitat)
	assert.Equal(t, "Ca2", first.Locus)
	assert.InDelta(t, 4.34, first.Richness, 1e-12)
	assert.Equal(t, 2, first.Line)
}

func TestRead_ColumnOrderIrrelevantAndExtraIgnored(t *testing.T) {
	input := "notes\tallelic_richness\tlocus\thabitat\tlocality\n" +
		"x\t3.5\tA\tCity\tL1\n" +
		"y\t4.5\tB\tCity\tL1\n"

	tbl, err := Read(strings.NewReader(input), LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "L1", tbl.Rows[1].Locality)
	assert.Equal(t, "B", tbl.Rows[1].Locus)
	assert.InDelta(t, 4.5, tbl.Rows[1].Richness, 1e-12)
}

func TestRead_HeaderMatchingIgnoresCase(t *testing.T) {
	input := "Locality\tHABITAT\t Locus \tAllelic_Richness\nL1\tCity\tA\t2\n"

	tbl, err := Read(strings.NewReader(input), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestRead_CustomColumnsAndDelimiter(t *testing.T) {
	input := "site,habitat_type,marker,ar\nS1,Island,M1,2.25\nS2,City,M1,3.5\n"

	tbl, err := Read(strings.NewReader(input), LoadOptions{
		Delimiter: ',',
		Columns:   Columns{Locality: "site", Habitat: "habitat_type", Locus: "marker", Response: "ar"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"City", "Island"}, tbl.Habitat.Levels)
	assert.Equal(t, "habitat_type", tbl.Habitat.Name)
}

func TestRead_MissingColumn(t *testing.T) {
	input := "locality\thabitat\tallelic_richness\nL1\tCity\t2\n"

	_, err := Read(strings.NewReader(input), LoadOptions{})
	require.Error(t, err)
	assert.True(t, IsMissingColumn(err))

	var me *MissingColumnError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "locus", me.Column)
}

func TestRead_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "abc"},
		{"empty", ""},
		{"negative", "-1.5"},
		{"nan", "NaN"},
		{"inf", "Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "locality\thabitat\tlocus\tallelic_richness\n" +
				"L1\tCity\tA\t2.0\n" +
				"L2\tCity\tA\t" + tt.value + "\n"

			_, err := Read(strings.NewReader(input), LoadOptions{})
			require.Error(t, err)
			assert.True(t, IsParseError(err))

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 3, pe.Line)
			assert.Equal(t, "allelic_richness", pe.Column)
		})
	}
}

func TestRead_EmptyLabelIsParseError(t *testing.T) {
	input := "locality\thabitat\tlocus\tallelic_richness\nL1\t \tA\t2.0\n"

	_, err := Read(strings.NewReader(input), LoadOptions{})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "habitat", pe.Column)
}

func TestRead_LabelsAreNFCNormalized(t *testing.T) {
	// Precomposed and decomposed spellings of the same label are one level.
	input := "locality\thabitat\tlocus\tallelic_richness\n" +
		"L1\t\u00cele\tA\t2.0\n" +
		"L2\tI\u0302le\tA\t3.0\n"

	tbl, err := Read(strings.NewReader(input), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"\u00cele"}, tbl.Habitat.Levels)
}

func TestRead_SkipsBlankLines(t *testing.T) {
	input := "locality\thabitat\tlocus\tallelic_richness\n" +
		"L1\tCity\tA\t2.0\n" +
		"\t\t\t\n" +
		"L2\tCity\tA\t3.0\n"

	tbl, err := Read(strings.NewReader(input), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestRead_KeepsHashPrefixedLocality(t *testing.T) {
	input := "locality\thabitat\tlocus\tallelic_richness\n" +
		"#12\tNatural\tCa2\t4.2\n" +
		"#12\tNatural\tMk6\t8.1\n" +
		"P3\tCity\tCa2\t3.9\n" +
		"P3\tCity\tMk6\t7.0\n"

	tbl, err := Read(strings.NewReader(input), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, []string{"#12", "P3"}, tbl.Locality.Levels)
	assert.Equal(t, []string{"City", "Natural"}, tbl.Habitat.Levels)
}

func TestRead_HashDelimiter(t *testing.T) {
	input := "locality#habitat#locus#allelic_richness\n" +
		"L1#City#A#2.0\n" +
		"L2#Island#A#3.0\n"

	tbl, err := Read(strings.NewReader(input), LoadOptions{Delimiter: '#'})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""), LoadOptions{})
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Read(strings.NewReader("locality\thabitat\tlocus\tallelic_richness\n"), LoadOptions{})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRead_Reference(t *testing.T) {
	tbl, err := Read(strings.NewReader(testutil.ReferenceTSV), LoadOptions{Reference: "Natural"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Natural", "City", "Disturbed", "Island"}, tbl.Habitat.Levels)

	_, err = Read(strings.NewReader(testutil.ReferenceTSV), LoadOptions{Reference: "Forest"})
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestLoad_File(t *testing.T) {
	path := testutil.ReferencePath(t)

	tbl, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 120, tbl.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/table.tsv", LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open table")
}
