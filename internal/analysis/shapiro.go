package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Royston (1992, 1995) polynomial coefficients for the Shapiro-Wilk weights
// and the W significance approximation.
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swG  = []float64{-2.273, 0.459}
	swC3 = []float64{0.5440, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
)

const maxShapiroN = 5000

func poly(c []float64, x float64) float64 {
	r := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		r = r*x + c[i]
	}
	return r
}

// shapiroWilk returns the W statistic and its p-value.
func shapiroWilk(s sample) (w, p float64, err error) {
	n := len(s)
	if n < 3 {
		return 0, 0, errors.New("need at least three observations")
	}
	if n > maxShapiroN {
		return 0, 0, errors.New("too many observations")
	}
	x := s.sorted()
	if x[n-1]-x[0] < 1e-19 {
		return 0, 0, errors.New("all values identical")
	}

	a := swWeights(n)
	mean := s.mean()
	var num, ssq float64
	for i, v := range x {
		num += a[i] * v
		ssq += (v - mean) * (v - mean)
	}
	w = num * num / ssq
	if w > 1 {
		w = 1
	}
	return w, swPValue(w, n), nil
}

// swWeights returns the antisymmetric coefficient vector for sorted data.
func swWeights(n int) []float64 {
	a := make([]float64, n)
	if n == 3 {
		a[0], a[2] = -math.Sqrt2/2, math.Sqrt2/2
		return a
	}
	norm := distuv.UnitNormal
	an25 := float64(n) + 0.25
	m := make([]float64, n)
	var summ2 float64
	for i := range m {
		m[i] = norm.Quantile((float64(i+1) - 0.375) / an25)
		summ2 += m[i] * m[i]
	}
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(float64(n))

	an := m[n-1]/ssumm2 + poly(swC1, rsn)
	a[n-1], a[0] = an, -an
	lo := 1
	var phi float64
	if n > 5 {
		an1 := m[n-2]/ssumm2 + poly(swC2, rsn)
		a[n-2], a[1] = an1, -an1
		lo = 2
		phi = (summ2 - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*an*an - 2*an1*an1)
	} else {
		phi = (summ2 - 2*m[n-1]*m[n-1]) / (1 - 2*an*an)
	}
	fac := math.Sqrt(phi)
	for i := lo; i < n-lo; i++ {
		a[i] = m[i] / fac
	}
	return a
}

func swPValue(w float64, n int) float64 {
	if n == 3 {
		p := 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Pi/3)
		return math.Max(p, 0)
	}
	y := math.Log(1 - w)
	fn := float64(n)
	var mu, sigma float64
	if n <= 11 {
		gamma := poly(swG, fn)
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		mu = poly(swC3, fn)
		sigma = math.Exp(poly(swC4, fn))
	} else {
		ln := math.Log(fn)
		mu = poly(swC5, ln)
		sigma = math.Exp(poly(swC6, ln))
	}
	return distuv.UnitNormal.Survival((y - mu) / sigma)
}

// normality returns the smallest Shapiro-Wilk p-value across groups. Any
// group that cannot be tested fails the whole check.
func normality(groups []sample) (float64, error) {
	if len(groups) == 0 {
		return 0, errors.New("no groups")
	}
	minP := math.Inf(1)
	for _, g := range groups {
		_, p, err := shapiroWilk(g)
		if err != nil {
			return 0, err
		}
		minP = math.Min(minP, p)
	}
	return minP, nil
}
