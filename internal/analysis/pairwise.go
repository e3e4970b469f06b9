package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Alternative is the only hypothesis direction the engine tests.
const Alternative = "two-sided"

// tTest is an independent two-sample t-test.
type tTest struct {
	T      float64
	DOF    float64
	CI     [2]float64
	CohenD float64
	P      float64
	Welch  bool
}

// independentTTest uses Student's pooled test when the groups are the same
// size and Welch's test otherwise.
func independentTTest(x, y sample) tTest {
	nx, ny := float64(len(x)), float64(len(y))
	mx, my := x.mean(), y.mean()
	vx, vy := x.variance(), y.variance()
	diff := mx - my

	var r tTest
	pooledDOF := nx + ny - 2
	pooled := ((nx-1)*vx + (ny-1)*vy) / pooledDOF
	var se float64
	if len(x) != len(y) {
		r.Welch = true
		a, b := vx/nx, vy/ny
		se = math.Sqrt(a + b)
		r.DOF = (a + b) * (a + b) / (a*a/(nx-1) + b*b/(ny-1))
	} else {
		se = math.Sqrt(pooled * (1/nx + 1/ny))
		r.DOF = pooledDOF
	}
	r.T = ratio(diff, se)
	r.CohenD = math.Abs(ratio(diff, math.Sqrt(pooled)))

	if math.IsNaN(r.DOF) || r.DOF <= 0 {
		r.DOF = pooledDOF
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: r.DOF}
	switch {
	case math.IsNaN(r.T):
		r.P = math.NaN()
	case math.IsInf(r.T, 0):
		r.P = 0
	default:
		r.P = math.Min(1, 2*dist.Survival(math.Abs(r.T)))
	}
	crit := dist.Quantile(0.975)
	r.CI = [2]float64{diff - crit*se, diff + crit*se}
	return r
}

// ratio divides, giving a signed infinity for a non-zero numerator over
// zero and NaN for 0/0.
func ratio(num, den float64) float64 {
	if den == 0 {
		switch {
		case num > 0:
			return math.Inf(1)
		case num < 0:
			return math.Inf(-1)
		}
		return math.NaN()
	}
	return num / den
}

// mannWhitney is a two-sided Mann-Whitney U test.
type mannWhitney struct {
	U     float64 // U statistic of the first sample
	P     float64
	RBC   float64
	CLES  float64
	Exact bool
}

const exactMWULimit = 8

// mannWhitneyU computes U from midranks. Small samples without ties use
// the exact null distribution; otherwise the normal approximation with tie
// and continuity correction.
func mannWhitneyU(x, y sample) mannWhitney {
	n1, n2 := len(x), len(y)
	type obs struct {
		v     float64
		first bool
	}
	all := make([]obs, 0, n1+n2)
	for _, v := range x {
		all = append(all, obs{v, true})
	}
	for _, v := range y {
		all = append(all, obs{v, false})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].v < all[j].v })

	var r1, tieTerm float64
	ties := false
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].v == all[i].v {
			j++
		}
		rank := float64(i+j+1) / 2
		t := float64(j - i)
		if t > 1 {
			ties = true
			tieTerm += t*t*t - t
		}
		for k := i; k < j; k++ {
			if all[k].first {
				r1 += rank
			}
		}
		i = j
	}

	f1, f2 := float64(n1), float64(n2)
	u1 := r1 - f1*(f1+1)/2
	u2 := f1*f2 - u1
	big := math.Max(u1, u2)
	res := mannWhitney{U: u1, RBC: 1 - 2*u1/(f1*f2), CLES: cles(x, y)}

	if !ties && n1 <= exactMWULimit && n2 <= exactMWULimit {
		res.Exact = true
		res.P = math.Min(1, 2*exactUSurvival(int(math.Round(big)), n1, n2))
		return res
	}
	n := f1 + f2
	mu := f1 * f2 / 2
	sigma := math.Sqrt(f1 * f2 / 12 * ((n + 1) - tieTerm/(n*(n-1))))
	if sigma == 0 {
		res.P = math.NaN()
		return res
	}
	z := (big - mu - 0.5) / sigma
	res.P = math.Min(1, 2*distuv.UnitNormal.Survival(z))
	return res
}

// exactUSurvival is P(U >= u) under the null for sample sizes m and n.
func exactUSurvival(u, m, n int) float64 {
	maxU := m * n
	// counts[i][j][k] built incrementally as ways(k; i, j)
	prev := make([][]float64, n+1)
	for j := range prev {
		prev[j] = make([]float64, maxU+1)
		prev[j][0] = 1
	}
	for i := 1; i <= m; i++ {
		cur := make([][]float64, n+1)
		cur[0] = make([]float64, maxU+1)
		cur[0][0] = 1
		for j := 1; j <= n; j++ {
			cur[j] = make([]float64, maxU+1)
			for k := 0; k <= i*j; k++ {
				// the largest observation belongs to the first sample
				// (adds j to U) or to the second.
				if k-j >= 0 {
					cur[j][k] += prev[j][k-j]
				}
				cur[j][k] += cur[j-1][k]
			}
		}
		prev = cur
	}
	counts := prev[n]
	var total, tail float64
	for k, c := range counts {
		total += c
		if k >= u {
			tail += c
		}
	}
	return tail / total
}

// cles is the common-language effect size P(X > Y) + 0.5 P(X == Y).
func cles(x, y sample) float64 {
	var s float64
	for _, a := range x {
		for _, b := range y {
			switch {
			case a > b:
				s++
			case a == b:
				s += 0.5
			}
		}
	}
	return s / float64(len(x)*len(y))
}
