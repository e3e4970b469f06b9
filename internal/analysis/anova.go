package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ResidualSource labels the error row of an ANOVA table.
const ResidualSource = "Residual"

// anovaTerm is one model term. Factors index into the design's factor
// names, so labels never pass through the fitted model.
type anovaTerm struct {
	factors []int
	lo, hi  int // design-matrix column span
}

// anovaFit is one source row of a Type III table.
type anovaFit struct {
	Source string
	SS     float64
	DF     int
	MS     float64
	F      float64
	P      float64
	NP2    float64
}

// design holds sum-to-zero coded factors for a set of observations.
type design struct {
	names  []string
	labels [][]string // labels[obs][factor]
	levels [][]string // sorted distinct labels per factor
}

// coding returns the deviation-coded columns of factor f for obs i.
func (d *design) coding(f, i int) []float64 {
	lv := d.levels[f]
	out := make([]float64, len(lv)-1)
	label := d.labels[i][f]
	if label == lv[len(lv)-1] {
		for j := range out {
			out[j] = -1
		}
		return out
	}
	for j := range out {
		if lv[j] == label {
			out[j] = 1
		}
	}
	return out
}

// anovaTypeIII fits the full factorial model with all interactions and
// returns one row per term plus the residual row.
func anovaTypeIII(y []float64, d *design) ([]anovaFit, error) {
	n := len(y)
	k := len(d.names)
	if k == 0 {
		return nil, errors.New("no factors")
	}
	for f, lv := range d.levels {
		if len(lv) < 2 {
			return nil, fmt.Errorf("factor %q has a single level", d.names[f])
		}
	}

	var terms []anovaTerm
	width := 1
	combinations(k, func(fs []int) {
		w := 1
		for _, f := range fs {
			w *= len(d.levels[f]) - 1
		}
		terms = append(terms, anovaTerm{factors: fs, lo: width, hi: width + w})
		width += w
	})

	x := mat.NewDense(n, width, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for _, t := range terms {
			cols := []float64{1}
			for _, f := range t.factors {
				c := d.coding(f, i)
				next := make([]float64, 0, len(cols)*len(c))
				for _, a := range cols {
					for _, b := range c {
						next = append(next, a*b)
					}
				}
				cols = next
			}
			for j, v := range cols {
				x.Set(i, t.lo+j, v)
			}
		}
	}

	tss := 0.0
	ybar := sample(y).mean()
	for _, v := range y {
		tss += (v - ybar) * (v - ybar)
	}

	rssFull, rankFull, err := leastSquares(x, y)
	if err != nil {
		return nil, err
	}
	if rssFull < 1e-10*tss {
		rssFull = 0
	}
	dfRes := n - rankFull
	msRes := math.NaN()
	if dfRes > 0 {
		msRes = rssFull / float64(dfRes)
	}

	rows := make([]anovaFit, 0, len(terms)+1)
	for _, t := range terms {
		rss, rank, err := leastSquares(dropColumns(x, t.lo, t.hi), y)
		if err != nil {
			return nil, err
		}
		ss := math.Max(rss-rssFull, 0)
		if ss < 1e-10*tss {
			ss = 0
		}
		df := rankFull - rank
		row := anovaFit{Source: d.termLabel(t), SS: ss, DF: df, MS: math.NaN(), F: math.NaN(), P: math.NaN(), NP2: math.NaN()}
		if df > 0 {
			row.MS = ss / float64(df)
			row.F = fRatio(row.MS, msRes)
			row.P = fSurvival(row.F, float64(df), float64(dfRes))
			if ss+rssFull > 0 {
				row.NP2 = ss / (ss + rssFull)
			}
		}
		rows = append(rows, row)
	}
	rows = append(rows, anovaFit{
		Source: ResidualSource, SS: rssFull, DF: dfRes, MS: msRes,
		F: math.NaN(), P: math.NaN(), NP2: math.NaN(),
	})
	return rows, nil
}

func (d *design) termLabel(t anovaTerm) string {
	parts := make([]string, len(t.factors))
	for i, f := range t.factors {
		parts[i] = d.names[f]
	}
	return strings.Join(parts, " * ")
}

func fRatio(ms, msRes float64) float64 {
	switch {
	case math.IsNaN(msRes):
		return math.NaN()
	case msRes == 0 && ms > 0:
		return math.Inf(1)
	case msRes == 0:
		return math.NaN()
	}
	return ms / msRes
}

func dropColumns(x *mat.Dense, lo, hi int) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c-(hi-lo), nil)
	for i := 0; i < r; i++ {
		k := 0
		for j := 0; j < c; j++ {
			if j >= lo && j < hi {
				continue
			}
			out.Set(i, k, x.At(i, j))
			k++
		}
	}
	return out
}

// leastSquares projects y onto the column space of x via a thin SVD and
// returns the residual sum of squares and the numerical rank of x.
func leastSquares(x *mat.Dense, y []float64) (float64, int, error) {
	r, c := x.Dims()
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return 0, 0, errors.New("svd did not converge")
	}
	sv := svd.Values(nil)
	if len(sv) == 0 {
		return 0, 0, errors.New("empty design")
	}
	tol := sv[0] * float64(max(r, c)) * 2.220446049250313e-16
	rank := 0
	for _, s := range sv {
		if s > tol {
			rank++
		}
	}
	var u mat.Dense
	svd.UTo(&u)
	yv := mat.NewVecDense(r, append([]float64(nil), y...))
	fitted := mat.NewVecDense(r, nil)
	for j := 0; j < rank; j++ {
		col := u.ColView(j)
		fitted.AddScaledVec(fitted, mat.Dot(col, yv), col)
	}
	var rss float64
	for i := 0; i < r; i++ {
		e := yv.AtVec(i) - fitted.AtVec(i)
		rss += e * e
	}
	return rss, rank, nil
}
