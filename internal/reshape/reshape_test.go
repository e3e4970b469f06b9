package reshape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
)

var layout = Layout{
	SubjectColumn:  "Animal ID",
	SubjectColumns: []string{"Animal ID", "genotype"},
	Outcomes:       []string{"HR"},
}

func longFixture() *dataset.Table {
	t := dataset.NewTable("Animal ID", "genotype", "timepoint", "Series Date", "HR")
	add := func(id, g, tp, date string, hr float64) {
		t.Append(dataset.Row{"Animal ID": id, "genotype": g, "timepoint": tp, "Series Date": date, "HR": hr})
	}
	add("M2", "KO", "wk4", "2021-04-01", 390)
	add("M1", "WT", "baseline", "2021-03-04", 400)
	add("M2", "KO", "baseline", "2021-03-04", 380)
	add("M1", "WT", "wk4", "2021-04-01", 420)
	add("M3", "KO", "baseline", "2021-03-04", 370)
	return t
}

func TestHorizontalPivotsLevels(t *testing.T) {
	h, err := Horizontal(longFixture(), []string{"timepoint", "genotype"}, layout)
	require.NoError(t, err)
	require.Equal(t, 3, h.Len())

	assert.Equal(t, []string{
		"Animal ID", "genotype", "timepoint_[baseline]", "Series Date_[baseline]", "HR_[baseline]",
		"Series Date_[wk4]", "HR_[wk4]",
	}, h.ColumnNames())
	assert.Equal(t, []any{"M1", "M2", "M3"}, h.Column("Animal ID"))
	assert.Equal(t, []any{400.0, 380.0, 370.0}, h.Column("HR_[baseline]"))
	assert.Equal(t, []any{420.0, 390.0, nil}, h.Column("HR_[wk4]"))
}

func TestHorizontalSingleLevelKeepsRows(t *testing.T) {
	long := longFixture().Filter(func(r dataset.Row) bool { return r["timepoint"] == "baseline" })
	h, err := Horizontal(long, []string{"timepoint"}, layout)
	require.NoError(t, err)
	assert.Equal(t, long.Len(), h.Len())
	assert.True(t, h.Has("HR_[baseline]"))
	assert.False(t, h.Has("HR"))
}

func TestHorizontalErrors(t *testing.T) {
	_, err := Horizontal(longFixture(), nil, layout)
	assert.ErrorIs(t, err, ErrNoFactors)
	_, err = Horizontal(longFixture(), []string{"cohort"}, layout)
	assert.Error(t, err)
}

func TestSplitRowCountIsSumOfGroups(t *testing.T) {
	h, err := Horizontal(longFixture(), []string{"timepoint", "genotype"}, layout)
	require.NoError(t, err)
	s, err := Split(h, []string{"timepoint", "genotype"})
	require.NoError(t, err)

	// WT has one subject, KO two
	require.Equal(t, 3, s.Len())
	names := s.ColumnNames()
	assert.Contains(t, names, "HR_[WT]_[baseline]")
	assert.Contains(t, names, "HR_[KO]_[wk4]")
	assert.Contains(t, names, "Animal ID_[KO]")
	assert.IsNonDecreasing(t, names)

	assert.Equal(t, []any{400.0, "", ""}, s.Column("HR_[WT]_[baseline]"))
	assert.Equal(t, []any{"", 380.0, 370.0}, s.Column("HR_[KO]_[baseline]"))
	assert.Equal(t, []any{"", 390.0, ""}, s.Column("HR_[KO]_[wk4]"))
}

func TestSplitResolvesTaggedGroupColumn(t *testing.T) {
	h, err := Horizontal(longFixture(), []string{"timepoint"}, layout)
	require.NoError(t, err)
	g, ok := GroupColumn(h, "timepoint")
	require.True(t, ok)
	assert.Equal(t, "timepoint_[baseline]", g)

	s, err := Split(h, []string{"timepoint"})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has("HR_[baseline]_[wk4]"))
}

func TestSplitMissingFactor(t *testing.T) {
	h := dataset.NewTable("Animal ID")
	h.Append(dataset.Row{"Animal ID": "M1"})
	_, err := Split(h, []string{"genotype"})
	assert.Error(t, err)
}
