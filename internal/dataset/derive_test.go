package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveComputesIncludedMetrics(t *testing.T) {
	tbl := NewTable("date", "DOB", "Study Start Date")
	tbl.Append(Row{"date": day(2021, 3, 4), "DOB": day(2021, 1, 1), "Study Start Date": "2021-03-01"})
	tbl.Append(Row{"date": day(2021, 3, 4), "DOB": nil, "Study Start Date": nil})

	out, warnings := Derive(tbl, []DerivedSetting{
		{Calculation: "Age(days)", Include: true},
		{Calculation: "Age(wks)", Include: true},
		{Calculation: "Age(Mo)", Include: false},
		{Calculation: "TimeInStudy(days)", Include: true},
	})
	assert.Empty(t, warnings)
	assert.True(t, out.Has("Age(days)"))
	assert.True(t, out.Has("Age(wks)"))
	assert.False(t, out.Has("Age(Mo)"))
	assert.Equal(t, 62, out.Value(0, "Age(days)"))
	assert.Equal(t, 8, out.Value(0, "Age(wks)"))
	assert.Equal(t, 3, out.Value(0, "TimeInStudy(days)"))
	assert.Nil(t, out.Value(1, "Age(days)"))
}

func TestDeriveMissingAnchorDisablesOnlyThatMetric(t *testing.T) {
	tbl := NewTable("date", "Treatment Date")
	tbl.Append(Row{"date": day(2021, 3, 4), "Treatment Date": day(2021, 3, 1)})

	out, warnings := Derive(tbl, []DerivedSetting{
		{Calculation: "Age(days)", Include: true},
		{Calculation: "PostTreat(days)", Include: true},
	})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Age(days)")
	assert.False(t, out.Has("Age(days)"))
	assert.Equal(t, 3, out.Value(0, "PostTreat(days)"))
}

func TestDeriveNonDateDisablesMetric(t *testing.T) {
	tbl := NewTable("date", "DOB")
	tbl.Append(Row{"date": day(2021, 3, 4), "DOB": "unknown"})
	out, warnings := Derive(tbl, []DerivedSetting{{Calculation: "Age(days)", Include: true}})
	assert.Len(t, warnings, 1)
	assert.False(t, out.Has("Age(days)"))
}

func TestDeriveFloorsNegativeSpans(t *testing.T) {
	tbl := NewTable("date", "DOB")
	tbl.Append(Row{"date": day(2021, 3, 1), "DOB": day(2021, 3, 4)})
	out, _ := Derive(tbl, []DerivedSetting{{Calculation: "Age(wks)", Include: true}})
	assert.Equal(t, -1, out.Value(0, "Age(wks)"))
}

func TestDeriveWarnsOnUnknownCalculation(t *testing.T) {
	_, warnings := Derive(NewTable("date"), []DerivedSetting{
		{Calculation: "KOMP_STYLE", Include: true},
		{Calculation: "Age(years)", Include: true},
	})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Age(years)")
}
