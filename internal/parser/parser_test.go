package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/echoloom-cli/internal/parser"
)

const sampleReport = `"Study Name","Cardiac Aging"
"Exported By","lab"
Version Information
"Software","Build"
"VevoLab 5.6","1234"

Series Name,"M1 baseline"
Animal ID,M1
Series Date,2021-03-04 10:22:01
Sex,F

Calculation
LV Mass,mg,PLAX,101.5
LV Mass,mg,PLAX,102.5

Measurement
HR1,B-Mode,bpm,x,400
HR2,B-Mode,bpm,x,420
LVID;d,M-Mode,mm,x,3.1
short,row

Series Name,"M2 baseline"
Animal ID,M2
Series Date,2021-03-04
Study Name,Override

Measurement
HR,B-Mode,bpm,x,380
HR,B-Mode,bpm,x,n/a
`

func TestMeasurementKeyStripsTrailingDigits(t *testing.T) {
	cases := map[string]string{
		"LV_Mass_Calc1": "LV_Mass_Calc",
		"HR12":          "HR",
		"HR":            "HR",
		"1234":          "",
		"A1B":           "A1B",
	}
	for in, want := range cases {
		assert.Equal(t, want, parser.StripReplicateSuffix(in), in)
	}
	assert.Equal(t, "HR_B-Mode_bpm", parser.MeasurementKey([]string{"HR2", "B-Mode", "bpm", "x", "1"}))
}

func TestParseReportSeriesAndStudy(t *testing.T) {
	r := parser.ParseReport("a.csv", sampleReport, parser.Options{})
	require.Len(t, r.Series, 2)

	m1 := r.Series[0]
	assert.Equal(t, "M1 baseline", m1.Name)
	assert.Equal(t, "M1", m1.Scalar(parser.FieldAnimalID))
	assert.Equal(t, "M1 baseline", m1.Scalar(parser.FieldSeriesName))
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), m1.Scalar(parser.FieldSeriesDate))

	// calculation rows keep the last occurrence
	assert.Equal(t, 102.5, m1.Scalar("LV Mass"))
	assert.True(t, m1.IsOutcome("LV Mass"))

	v, ok := m1.Get("HR_B-Mode_bpm")
	require.True(t, ok)
	assert.Equal(t, parser.Replicates{"400", "420"}, v)

	// study metadata is copied onto each series
	assert.Equal(t, "Cardiac Aging", m1.Scalar("Study Name"))
	assert.Equal(t, "VevoLab 5.6,1234", m1.Scalar("Software,Build"))
	assert.Equal(t, "Override", r.Series[1].Scalar("Study Name"))
	assert.Equal(t, "lab", r.Study["Exported By"])
}

func TestParseReportSkipsShortRows(t *testing.T) {
	r := parser.ParseReport("a.csv", sampleReport, parser.Options{})
	require.NotEmpty(t, r.Issues)
	var fe *parser.FieldError
	require.True(t, errors.As(r.Issues[0], &fe))
	assert.Equal(t, "M1 baseline", fe.Series)
	assert.Equal(t, "Measurement", fe.Section)
	assert.Equal(t, 5, fe.Need)
	assert.Equal(t, 2, fe.Got)
	assert.Contains(t, r.Warnings()[0], "skipped")
}

func TestParseReportMergesDuplicateSeries(t *testing.T) {
	text := "Series Name,S1\nAnimal ID,A\n\nSeries Name,S1\nSex,M\n"
	r := parser.ParseReport("dup.csv", text, parser.Options{})
	require.Len(t, r.Series, 1)
	assert.Equal(t, "A", r.Series[0].Scalar("Animal ID"))
	assert.Equal(t, "M", r.Series[0].Scalar("Sex"))
}

func TestParseReportKeepsUnparseableDate(t *testing.T) {
	r := parser.ParseReport("d.csv", "Series Name,S1\nSeries Date,someday\n", parser.Options{})
	require.Len(t, r.Series, 1)
	assert.Equal(t, "someday", r.Series[0].Scalar(parser.FieldSeriesDate))
}

func TestAggregateMeansAndSentinel(t *testing.T) {
	r := parser.ParseReport("a.csv", sampleReport, parser.Options{})
	before := len(r.Issues)
	parser.Aggregate(r, "", nil)

	assert.Equal(t, 410.0, r.Series[0].Scalar("HR_B-Mode_bpm"))
	assert.Equal(t, 3.1, r.Series[0].Scalar("LVID;d_M-Mode_mm"))
	assert.Equal(t, parser.DefaultErrorSentinel, r.Series[1].Scalar("HR_B-Mode_bpm"))

	require.Len(t, r.Issues, before+1)
	var ae *parser.AggregationError
	require.True(t, errors.As(r.Issues[before], &ae))
	assert.Equal(t, "M2 baseline", ae.Series)
	assert.Equal(t, "HR_B-Mode_bpm", ae.Key)
	assert.Equal(t, "n/a", ae.Value)
}

func TestReportTable(t *testing.T) {
	r := parser.ParseReport("a.csv", sampleReport, parser.Options{})
	parser.Aggregate(r, "ERR", nil)
	tbl := r.Table()
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "Series Name", tbl.ColumnNames()[0])
	assert.Equal(t, "ERR", tbl.Value(1, "HR_B-Mode_bpm"))
	assert.Nil(t, tbl.Value(1, "LV Mass"))
}

func TestScanColumns(t *testing.T) {
	r := parser.ParseReport("a.csv", sampleReport, parser.Options{})
	cols := parser.ScanColumns([]*parser.Report{r})
	assert.Equal(t, []string{"HR_B-Mode_bpm", "LV Mass", "LVID;d_M-Mode_mm"}, cols.Outcomes)
	assert.Contains(t, cols.Metadata, "Animal ID")
	assert.Contains(t, cols.Metadata, "Exported By")
	assert.NotContains(t, cols.Metadata, "LV Mass")
}

func TestParseFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(p, []byte(sampleReport), 0o644))
	r, err := parser.ParseFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, "report.csv", r.Source)

	_, err = parser.ParseFile(filepath.Join(t.TempDir(), "missing.csv"), parser.Options{})
	assert.Error(t, err)
}
