package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// sample is one group of observations.
type sample []float64

func (s sample) mean() float64 { return stat.Mean(s, nil) }

// variance is the unbiased (n-1) variance; NaN below two observations.
func (s sample) variance() float64 {
	if len(s) < 2 {
		return math.NaN()
	}
	return stat.Variance(s, nil)
}

// sem is the standard error of the mean (ddof 1).
func (s sample) sem() float64 {
	return math.Sqrt(s.variance() / float64(len(s)))
}

func (s sample) sorted() []float64 {
	cp := append([]float64(nil), s...)
	sort.Float64s(cp)
	return cp
}

func (s sample) median() float64 { return quantile(s.sorted(), 0.5) }

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// combinations calls fn with every non-empty index subset of 0..k-1, by
// size and then lexicographically.
func combinations(k int, fn func([]int)) {
	idx := make([]int, 0, k)
	var rec func(start, size int)
	rec = func(start, size int) {
		if len(idx) == size {
			fn(append([]int(nil), idx...))
			return
		}
		for i := start; i < k; i++ {
			idx = append(idx, i)
			rec(i+1, size)
			idx = idx[:len(idx)-1]
		}
	}
	for size := 1; size <= k; size++ {
		rec(0, size)
	}
}
