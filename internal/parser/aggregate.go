package parser

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
)

// DefaultErrorSentinel marks a measurement whose replicates could not be
// averaged.
const DefaultErrorSentinel = "ERROR_NA"

// Aggregate collapses every Replicates field to the arithmetic mean of its
// readings. A field with any non-numeric reading becomes sentinel and an
// AggregationError is recorded on the report.
func Aggregate(r *Report, sentinel string, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	if sentinel == "" {
		sentinel = DefaultErrorSentinel
	}
	for _, s := range r.Series {
		for _, k := range s.keys {
			reps, ok := s.fields[k].(Replicates)
			if !ok {
				continue
			}
			mean, bad, ok := meanOf(reps)
			if ok {
				s.fields[k] = Scalar{V: mean}
				continue
			}
			e := &AggregationError{File: r.Source, Series: s.Name, Key: k, Value: bad}
			r.Issues = append(r.Issues, e)
			log.Warn("cannot average replicates", slog.String("file", r.Source), slog.String("series", s.Name), slog.String("field", k), slog.String("value", bad))
			s.fields[k] = Scalar{V: sentinel}
		}
	}
}

func meanOf(reps Replicates) (float64, string, bool) {
	if len(reps) == 0 {
		return 0, "", false
	}
	var sum float64
	for _, raw := range reps {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0, raw, false
		}
		sum += f
	}
	return sum / float64(len(reps)), "", true
}

// Table renders the report as one row per series. Columns follow the
// first-seen order of keys across series.
func (r *Report) Table() *dataset.Table {
	t := dataset.NewTable()
	for _, s := range r.Series {
		row := make(dataset.Row, len(s.keys))
		for _, k := range s.keys {
			switch v := s.fields[k].(type) {
			case Scalar:
				row[k] = v.V
			case Replicates:
				row[k] = strings.Join(v, ";")
			}
		}
		t.AppendOrdered(row, s.keys)
	}
	return t
}
