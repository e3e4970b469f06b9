package parser

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
)

// SeriesSeparator delimits series blocks in a report export.
const SeriesSeparator = "Series Name,"

// Field names copied onto a series regardless of the active section.
const (
	FieldSeriesDate = "Series Date"
	FieldAnimalID   = "Animal ID"
	FieldSex        = "Sex"
	FieldWeight     = "Weight"
	FieldStudyName  = "Study Name"
	FieldSeriesName = "Series Name"
)

var fixedFields = map[string]bool{
	FieldSeriesDate: true,
	FieldAnimalID:   true,
	FieldSex:        true,
	FieldWeight:     true,
	FieldStudyName:  true,
	FieldSeriesName: true,
}

// Value is a series field value: either a Scalar or, before aggregation,
// the Replicates collected for a measurement.
type Value interface{ isValue() }

// Scalar holds a single resolved value (string, float64 or time.Time).
type Scalar struct{ V any }

// Replicates holds the raw readings of a repeated measurement.
type Replicates []string

func (Scalar) isValue()     {}
func (Replicates) isValue() {}

// Series is one subject-timepoint session parsed from a report.
type Series struct {
	Name   string
	keys   []string
	fields map[string]Value
	// outcome marks keys read from Calculation or Measurement sections.
	outcome map[string]bool
}

func newSeries(name string) *Series {
	s := &Series{Name: name, fields: map[string]Value{}, outcome: map[string]bool{}}
	s.Set(FieldSeriesName, name)
	return s
}

// Set stores a scalar, replacing any previous value for key.
func (s *Series) Set(key string, v any) { s.put(key, Scalar{V: v}) }

func (s *Series) put(key string, v Value) {
	if _, ok := s.fields[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.fields[key] = v
}

func (s *Series) addReplicate(key, raw string) {
	s.outcome[key] = true
	if r, ok := s.fields[key].(Replicates); ok {
		s.fields[key] = append(r, raw)
		return
	}
	s.put(key, Replicates{raw})
}

// Get returns the value stored for key.
func (s *Series) Get(key string) (Value, bool) {
	v, ok := s.fields[key]
	return v, ok
}

// Scalar returns the resolved value for key, or nil when the key is absent
// or still holds replicates.
func (s *Series) Scalar(key string) any {
	if v, ok := s.fields[key].(Scalar); ok {
		return v.V
	}
	return nil
}

// IsOutcome reports whether key came from a Calculation or Measurement
// section.
func (s *Series) IsOutcome(key string) bool { return s.outcome[key] }

// Keys returns field keys in first-seen order.
func (s *Series) Keys() []string { return append([]string(nil), s.keys...) }

// Report is the parsed content of one export file.
type Report struct {
	Source string
	// Study holds file-level metadata from the preamble block and any
	// Version Information section.
	Study     map[string]string
	studyKeys []string
	Series    []*Series
	byName    map[string]*Series
	Issues    []error
}

// Warnings renders the issues collected while parsing and aggregating.
func (r *Report) Warnings() []string {
	out := make([]string, len(r.Issues))
	for i, e := range r.Issues {
		out[i] = e.Error()
	}
	return out
}

func (r *Report) setStudy(k, v string) {
	if _, ok := r.Study[k]; !ok {
		r.studyKeys = append(r.studyKeys, k)
	}
	r.Study[k] = v
}

func (r *Report) series(name string) *Series {
	if s, ok := r.byName[name]; ok {
		return s
	}
	s := newSeries(name)
	r.byName[name] = s
	r.Series = append(r.Series, s)
	return s
}

// Options controls report parsing.
type Options struct {
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ParseFile reads and parses one export file.
func ParseFile(path string, opt Options) (*Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return ParseReport(filepath.Base(path), string(b), opt), nil
}

// ParseReport parses export text into per-series records. Measurement
// fields are left as Replicates; see Aggregate.
func ParseReport(source, text string, opt Options) *Report {
	log := opt.logger()
	r := &Report{Source: source, Study: map[string]string{}, byName: map[string]*Series{}}
	text = strings.ReplaceAll(text, `"`, "")
	for bi, block := range strings.Split(text, SeriesSeparator) {
		rows := strings.Split(block, "\n")
		bp := blockParser{report: r, log: log}
		start := 0
		if bi > 0 {
			bp.series = r.series(strings.TrimSpace(strings.TrimRight(rows[0], "\r")))
			start = 1
		}
		for i := start; i < len(rows); i++ {
			bp.row(i+1, strings.Split(strings.TrimRight(rows[i], "\r"), ","))
		}
	}
	// Study metadata is file-scoped; series-level values win.
	for _, s := range r.Series {
		for _, k := range r.studyKeys {
			if _, ok := s.fields[k]; !ok {
				s.Set(k, r.Study[k])
			}
		}
	}
	log.Debug("parsed report", slog.String("file", source), slog.Int("series", len(r.Series)), slog.Int("issues", len(r.Issues)))
	return r
}

// blockParser walks the rows of one block. series is nil for the preamble.
type blockParser struct {
	report     *Report
	series     *Series
	log        *slog.Logger
	state      section
	versionRow int
	header     []string
}

func (bp *blockParser) seriesName() string {
	if bp.series == nil {
		return "(study)"
	}
	return bp.series.Name
}

func (bp *blockParser) skip(row int, sec string, need, got int) {
	e := &FieldError{File: bp.report.Source, Series: bp.seriesName(), Row: row, Section: sec, Need: need, Got: got}
	bp.report.Issues = append(bp.report.Issues, e)
	bp.log.Warn("malformed report row", slog.String("file", e.File), slog.String("series", e.Series), slog.Int("row", row), slog.String("section", sec))
}

func (bp *blockParser) row(n int, fields []string) {
	first := strings.TrimSpace(fields[0])
	next, marker := transition(bp.state, first)
	if marker {
		bp.state = next
		bp.versionRow = 0
		return
	}
	if fixedFields[first] && bp.series != nil {
		if len(fields) < 2 {
			bp.skip(n, first, 2, len(fields))
			return
		}
		bp.series.Set(first, bp.fixedValue(first, fields[1]))
		return
	}
	if need := bp.state.minFields(); len(fields) < need {
		bp.skip(n, bp.state.String(), need, len(fields))
		return
	}
	switch bp.state {
	case sectionNone:
		if bp.series == nil {
			bp.report.setStudy(first, fields[1])
			return
		}
		bp.series.Set(first, fields[1])
	case sectionCalculation:
		if bp.series != nil {
			bp.series.Set(first, scalarValue(fields[3]))
			bp.series.outcome[first] = true
		}
	case sectionMeasurement:
		if bp.series != nil {
			bp.series.addReplicate(MeasurementKey(fields), fields[4])
		}
	case sectionVersionInfo:
		if bp.versionRow%2 == 0 {
			bp.header = append([]string(nil), fields...)
		} else {
			bp.report.setStudy(strings.Join(bp.header, ","), strings.Join(fields, ","))
		}
		bp.versionRow++
	}
}

func (bp *blockParser) fixedValue(key, raw string) any {
	raw = strings.TrimSpace(raw)
	if key != FieldSeriesDate {
		return raw
	}
	if d, ok := dataset.ParseDate(raw); ok {
		return d
	}
	bp.log.Warn("unparseable series date", slog.String("file", bp.report.Source), slog.String("series", bp.seriesName()), slog.String("value", raw))
	return raw
}

// scalarValue keeps numeric text as a number so it exports as one.
func scalarValue(raw string) any {
	s := strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// MeasurementKey joins the first three fields of a measurement row with
// "_" after stripping any trailing digit run from the first field, so
// auto-numbered replicates share one key.
func MeasurementKey(fields []string) string {
	parts := make([]string, 0, 3)
	for i := 0; i < 3 && i < len(fields); i++ {
		parts = append(parts, fields[i])
	}
	if len(parts) > 0 {
		parts[0] = StripReplicateSuffix(parts[0])
	}
	return strings.Join(parts, "_")
}

// StripReplicateSuffix removes the maximal trailing run of ASCII digits.
func StripReplicateSuffix(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[:i]
}
