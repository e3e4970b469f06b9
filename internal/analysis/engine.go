// Package analysis runs the per-outcome statistics over the long study
// table: homogeneity and normality checks, a Type III factorial ANOVA, group
// summaries for charting, and exhaustive pairwise comparisons.
package analysis

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
)

// UnableToTest replaces a normality p-value that could not be computed.
const UnableToTest = "unable to test"

// CannotCompare notes a pair with fewer than two observations on a side.
const CannotCompare = "cannot compare"

// Options controls a statistics run.
type Options struct {
	Logger *slog.Logger
}

// TestError reports a statistical test that could not run for an outcome.
type TestError struct {
	Test    string
	Outcome string
	Err     error
}

func (e *TestError) Error() string {
	return fmt.Sprintf("%s failed for %q: %v", e.Test, e.Outcome, e.Err)
}

func (e *TestError) Unwrap() error { return e.Err }

// AnovaRow is one source term of an outcome's ANOVA.
type AnovaRow struct {
	Outcome string
	Source  string
	SS      float64
	DF      int
	MS      float64
	F       float64
	P       float64
	NP2     float64
	Levene  float64
	// Normality is a float64 p-value or UnableToTest. It is the smallest
	// Shapiro-Wilk p-value over NormalityGroups factor cells.
	Normality       any
	NormalityGroups int
}

// GroupSummary is the mean and standard error for one factor combination.
type GroupSummary struct {
	Outcome string
	Levels  []string
	Axis    string
	Mean    float64
	N       int
	SEM     float64
}

// PairwiseRow compares two compound-label groups for one outcome.
type PairwiseRow struct {
	Outcome    string
	Factors    string
	Comparison string
	Tested     bool
	T          float64
	DOF        float64
	CILow      float64
	CIHigh     float64
	CohenD     float64
	TTestP     float64
	U          float64
	RBC        float64
	CLES       float64
	MWUP       float64
	Notes      string
}

// Result collects every outcome's statistics.
type Result struct {
	Factors   []string
	Stats     []AnovaRow
	Summaries []GroupSummary
	Pairwise  []PairwiseRow
	Errors    []error
	Warnings  []string
}

// observation is one row that survived coercion.
type observation struct {
	y      float64
	values []any    // factor cells, used for ordering
	labels []string // rendered factor levels
}

// Run computes statistics for each outcome column. A failing outcome is
// recorded in Result.Errors and skipped; later outcomes still run.
func Run(long *dataset.Table, factors, outcomes []string, opt Options) *Result {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	res := &Result{Factors: append([]string(nil), factors...)}
	for _, c := range outcomes {
		if err := res.outcome(long, c); err != nil {
			res.Errors = append(res.Errors, err)
			res.Warnings = append(res.Warnings, err.Error())
			log.Warn("outcome skipped", slog.String("outcome", c), slog.String("error", err.Error()))
		}
	}
	return res
}

func (res *Result) outcome(long *dataset.Table, c string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TestError{Test: "statistics", Outcome: c, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	obs := collect(long, c, res.Factors)
	if len(obs) == 0 {
		return &TestError{Test: "coercion", Outcome: c, Err: fmt.Errorf("no numeric observations")}
	}

	cells := groupBy(obs, allIndexes(len(res.Factors)), "\x1f")
	groups := make([]sample, len(cells))
	for i, g := range cells {
		groups[i] = g.values
	}
	_, lp, err := levene(groups)
	if err != nil {
		return &TestError{Test: "levene", Outcome: c, Err: err}
	}
	var norm any = UnableToTest
	if p, err := normality(groups); err == nil {
		norm = p
	}

	d := &design{names: res.Factors, labels: make([][]string, len(obs)), levels: make([][]string, len(res.Factors))}
	y := make([]float64, len(obs))
	for i, o := range obs {
		y[i] = o.y
		d.labels[i] = o.labels
	}
	for f := range res.Factors {
		d.levels[f] = sortedLevels(obs, f)
	}
	fits, err := anovaTypeIII(y, d)
	if err != nil {
		return &TestError{Test: "anova", Outcome: c, Err: err}
	}
	for _, f := range fits {
		res.Stats = append(res.Stats, AnovaRow{
			Outcome: c, Source: f.Source, SS: f.SS, DF: f.DF, MS: f.MS, F: f.F, P: f.P, NP2: f.NP2,
			Levene: lp, Normality: norm, NormalityGroups: len(groups),
		})
	}

	res.summarize(c, obs)
	res.compare(c, obs)
	return nil
}

func collect(long *dataset.Table, c string, factors []string) []observation {
	var out []observation
	for _, r := range long.Rows() {
		y, ok := dataset.ToFloat(r[c])
		if !ok {
			continue
		}
		o := observation{y: y, values: make([]any, len(factors)), labels: make([]string, len(factors))}
		for i, f := range factors {
			v := r[f]
			if dataset.IsMissing(v) {
				ok = false
				break
			}
			o.values[i] = v
			o.labels[i] = dataset.FormatValue(v)
		}
		if ok {
			out = append(out, o)
		}
	}
	return out
}

func allIndexes(k int) []int {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// cell is the observations sharing one label over a factor subset.
type cell struct {
	label  string
	first  observation
	values sample
}

// groupBy buckets observations by their labels on the given factors, in
// order of first appearance.
func groupBy(obs []observation, factors []int, sep string) []*cell {
	var cells []*cell
	index := map[string]*cell{}
	for _, o := range obs {
		parts := make([]string, len(factors))
		for i, f := range factors {
			parts[i] = o.labels[f]
		}
		key := strings.Join(parts, sep)
		c, ok := index[key]
		if !ok {
			c = &cell{label: key, first: o}
			index[key] = c
			cells = append(cells, c)
		}
		c.values = append(c.values, o.y)
	}
	return cells
}

func sortedLevels(obs []observation, f int) []string {
	seen := map[string]any{}
	for _, o := range obs {
		if _, ok := seen[o.labels[f]]; !ok {
			seen[o.labels[f]] = o.values[f]
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := dataset.CompareValues(seen[out[i]], seen[out[j]]); c != 0 {
			return c < 0
		}
		return out[i] < out[j]
	})
	return out
}

func (res *Result) summarize(c string, obs []observation) {
	cells := groupBy(obs, allIndexes(len(res.Factors)), "\x1f")
	sort.SliceStable(cells, func(i, j int) bool {
		a, b := cells[i].first.values, cells[j].first.values
		for k := range a {
			if d := dataset.CompareValues(a[k], b[k]); d != 0 {
				return d < 0
			}
		}
		return false
	})
	for _, g := range cells {
		res.Summaries = append(res.Summaries, GroupSummary{
			Outcome: c,
			Levels:  append([]string(nil), g.first.labels...),
			Axis:    strings.Join(g.first.labels, "_"),
			Mean:    g.values.mean(),
			N:       len(g.values),
			SEM:     g.values.sem(),
		})
	}
}

func (res *Result) compare(c string, obs []observation) {
	combinations(len(res.Factors), func(subset []int) {
		names := make([]string, len(subset))
		for i, f := range subset {
			names[i] = res.Factors[f]
		}
		factorLabel := strings.Join(names, " * ")
		cells := groupBy(obs, subset, " * ")
		for i := 0; i < len(cells); i++ {
			for j := i + 1; j < len(cells); j++ {
				a, b := cells[i], cells[j]
				row := PairwiseRow{Outcome: c, Factors: factorLabel, Comparison: a.label + " vs " + b.label}
				if len(a.values) < 2 || len(b.values) < 2 {
					row.Notes = CannotCompare
					res.Pairwise = append(res.Pairwise, row)
					continue
				}
				t := independentTTest(a.values, b.values)
				u := mannWhitneyU(a.values, b.values)
				row.Tested = true
				row.T, row.DOF, row.CohenD, row.TTestP = t.T, t.DOF, t.CohenD, t.P
				row.CILow, row.CIHigh = t.CI[0], t.CI[1]
				row.U, row.RBC, row.CLES, row.MWUP = u.U, u.RBC, u.CLES, u.P
				res.Pairwise = append(res.Pairwise, row)
			}
		}
	})
}
