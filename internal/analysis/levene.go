package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var errTooFewGroups = errors.New("need at least two groups")

// levene runs the median-centred (Brown-Forsythe) Levene test. W and p are
// NaN when every group has zero spread.
func levene(groups []sample) (w, p float64, err error) {
	k := len(groups)
	if k < 2 {
		return 0, 0, errTooFewGroups
	}
	n := 0
	z := make([]sample, k)
	for i, g := range groups {
		if len(g) == 0 {
			return 0, 0, errors.New("empty group")
		}
		med := g.median()
		z[i] = make(sample, len(g))
		for j, v := range g {
			z[i][j] = math.Abs(v - med)
		}
		n += len(g)
	}
	if n-k < 1 {
		return 0, 0, errors.New("no within-group degrees of freedom")
	}

	var grand float64
	for _, zi := range z {
		for _, v := range zi {
			grand += v
		}
	}
	grand /= float64(n)

	var between, within float64
	for _, zi := range z {
		m := zi.mean()
		between += float64(len(zi)) * (m - grand) * (m - grand)
		for _, v := range zi {
			within += (v - m) * (v - m)
		}
	}
	d1, d2 := float64(k-1), float64(n-k)
	w = (d2 / d1) * between / within
	return w, fSurvival(w, d1, d2), nil
}

// fSurvival is P(F > f), with the limits at +Inf and NaN made explicit.
func fSurvival(f, d1, d2 float64) float64 {
	switch {
	case math.IsNaN(f) || d1 <= 0 || d2 <= 0:
		return math.NaN()
	case math.IsInf(f, 1):
		return 0
	}
	return distuv.F{D1: d1, D2: d2}.Survival(f)
}
