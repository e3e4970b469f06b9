package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeveneMedianCentred(t *testing.T) {
	w, p, err := levene([]sample{{1, 2, 3, 4}, {2, 4, 6, 8}})
	require.NoError(t, err)
	assert.InDelta(t, 2.4, w, 1e-12)
	assert.InDelta(t, 0.1723, p, 1e-3)

	_, _, err = levene([]sample{{1, 2}})
	assert.Error(t, err)
	_, _, err = levene([]sample{{1}, {2}})
	assert.Error(t, err)

	w, p, err = levene([]sample{{10, 10}, {20, 20}})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(w))
	assert.True(t, math.IsNaN(p))
}

func TestShapiroWilk(t *testing.T) {
	w, p, err := shapiroWilk(sample{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1, w, 1e-9)
	assert.InDelta(t, 1, p, 1e-6)

	_, p, err = shapiroWilk(sample{-1.5, -1, -0.5, 0, 0.5, 1, 1.5})
	require.NoError(t, err)
	assert.Greater(t, p, 0.1)

	_, p, err = shapiroWilk(sample{1, 1.1, 1.2, 1.3, 1.4, 1.5, 1.6, 1.7, 1.8, 1.9, 2, 2.1, 50})
	require.NoError(t, err)
	assert.Less(t, p, 0.001)

	_, _, err = shapiroWilk(sample{1, 2})
	assert.Error(t, err)
	_, _, err = shapiroWilk(sample{4, 4, 4, 4})
	assert.Error(t, err)
}

func TestNormalityTakesMinimumAcrossGroups(t *testing.T) {
	p, err := normality([]sample{{1, 2, 3}, {1, 1.1, 1.2, 1.3, 1.4, 1.5, 1.6, 1.7, 1.8, 1.9, 2, 2.1, 50}})
	require.NoError(t, err)
	assert.Less(t, p, 0.001)

	_, err = normality([]sample{{1, 2, 3}, {1, 2}})
	assert.Error(t, err)
}

func oneWay(groups map[string][]float64, order []string) ([]float64, *design) {
	d := &design{names: []string{"g"}, levels: [][]string{order}}
	var y []float64
	for _, g := range order {
		for _, v := range groups[g] {
			y = append(y, v)
			d.labels = append(d.labels, []string{g})
		}
	}
	return y, d
}

func TestAnovaOneWay(t *testing.T) {
	y, d := oneWay(map[string][]float64{"A": {1, 2, 3}, "B": {4, 5, 6}}, []string{"A", "B"})
	rows, err := anovaTypeIII(y, d)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "g", rows[0].Source)
	assert.InDelta(t, 13.5, rows[0].SS, 1e-9)
	assert.Equal(t, 1, rows[0].DF)
	assert.InDelta(t, 13.5, rows[0].F, 1e-9)
	assert.InDelta(t, 0.0213, rows[0].P, 1e-3)
	assert.InDelta(t, 13.5/17.5, rows[0].NP2, 1e-9)

	assert.Equal(t, ResidualSource, rows[1].Source)
	assert.InDelta(t, 4, rows[1].SS, 1e-9)
	assert.Equal(t, 4, rows[1].DF)
	assert.True(t, math.IsNaN(rows[1].F))
}

func TestAnovaTwoWayBalanced(t *testing.T) {
	cells := []struct {
		a, b string
		y    []float64
	}{
		{"a1", "b1", []float64{1, 3}},
		{"a1", "b2", []float64{5, 7}},
		{"a2", "b1", []float64{3, 5}},
		{"a2", "b2", []float64{11, 13}},
	}
	d := &design{names: []string{"A", "B"}, levels: [][]string{{"a1", "a2"}, {"b1", "b2"}}}
	var y []float64
	for _, c := range cells {
		for _, v := range c.y {
			y = append(y, v)
			d.labels = append(d.labels, []string{c.a, c.b})
		}
	}
	rows, err := anovaTypeIII(y, d)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	want := []struct {
		src string
		ss  float64
		f   float64
	}{{"A", 32, 16}, {"B", 72, 36}, {"A * B", 8, 4}}
	for i, w := range want {
		assert.Equal(t, w.src, rows[i].Source)
		assert.InDelta(t, w.ss, rows[i].SS, 1e-9, w.src)
		assert.InDelta(t, w.f, rows[i].F, 1e-9, w.src)
		assert.Equal(t, 1, rows[i].DF)
	}
	assert.InDelta(t, 8, rows[3].SS, 1e-9)
	assert.Equal(t, 4, rows[3].DF)
}

func TestAnovaRejectsSingleLevelFactor(t *testing.T) {
	y, d := oneWay(map[string][]float64{"A": {1, 2, 3}}, []string{"A"})
	_, err := anovaTypeIII(y, d)
	assert.Error(t, err)
}

func TestTTest(t *testing.T) {
	r := independentTTest(sample{1, 2, 3}, sample{4, 5, 6})
	assert.False(t, r.Welch)
	assert.InDelta(t, 13.5, r.T*r.T, 1e-9)
	assert.Less(t, r.T, 0.0)
	assert.Equal(t, 4.0, r.DOF)
	assert.InDelta(t, 0.0213, r.P, 1e-3)
	assert.InDelta(t, 3, r.CohenD, 1e-9)
	assert.Less(t, r.CI[0], -3.0)
	assert.Greater(t, r.CI[1], -3.0)

	w := independentTTest(sample{1, 2, 3}, sample{4, 5, 6, 7})
	assert.True(t, w.Welch)
	assert.Less(t, w.DOF, 5.0)

	z := independentTTest(sample{10, 10}, sample{20, 20})
	assert.True(t, math.IsInf(z.T, -1))
	assert.Equal(t, 0.0, z.P)
}

func TestMannWhitney(t *testing.T) {
	r := mannWhitneyU(sample{1, 2, 3}, sample{4, 5, 6})
	assert.True(t, r.Exact)
	assert.Equal(t, 0.0, r.U)
	assert.InDelta(t, 0.1, r.P, 1e-12)
	assert.Equal(t, 0.0, r.CLES)

	tied := mannWhitneyU(sample{10, 10}, sample{20, 20})
	assert.False(t, tied.Exact)
	assert.InDelta(t, 0.1939, tied.P, 1e-3)

	assert.InDelta(t, 1.0, exactUSurvival(0, 3, 3), 1e-12)
	assert.InDelta(t, 1.0/20, exactUSurvival(9, 3, 3), 1e-12)
}

func TestCombinationsOrder(t *testing.T) {
	var got [][]int
	combinations(3, func(s []int) { got = append(got, s) })
	assert.Equal(t, [][]int{{0}, {1}, {2}, {0, 1}, {0, 2}, {1, 2}, {0, 1, 2}}, got)
}
