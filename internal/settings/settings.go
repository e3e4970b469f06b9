package settings

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
	"github.com/KaramelBytes/echoloom-cli/internal/parser"
)

// Table names, as used for workbook sheets.
const (
	TableSubjects   = "animal data"
	TableTimepoints = "timepoint data"
	TableModel      = "model"
	TableColumns    = "column names"
	TableDerived    = "derived data"
)

// Column headers of the fixed-layout tables.
const (
	HeaderFactors     = "factors"
	HeaderSource      = "VevoLab Measurement_Mode_Parameter or Calculation"
	HeaderOutput      = "Output Name"
	HeaderCalculation = "calculation"
	HeaderInclude     = "Include"
)

// MissingTableError reports an absent or empty configuration table. The
// features that depend on it are skipped.
type MissingTableError struct {
	Table string
	Path  string
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("settings %s: table %q not found or empty", e.Path, e.Table)
}

// Settings are the configuration tables of one run.
type Settings struct {
	Source     string
	Subjects   *dataset.Table
	Timepoints *dataset.Table
	Factors    []string
	Derived    []dataset.DerivedSetting
	Columns    []dataset.ColumnMapping
	Missing    []error
}

func (s *Settings) HasSubjects() bool   { return s != nil && !s.Subjects.Empty() }
func (s *Settings) HasTimepoints() bool { return s != nil && !s.Timepoints.Empty() }
func (s *Settings) HasModel() bool      { return s != nil && len(s.Factors) > 0 }
func (s *Settings) HasDerived() bool    { return s != nil && len(s.Derived) > 0 }
func (s *Settings) HasColumns() bool    { return s != nil && len(s.Columns) > 0 }

// Complete reports whether the wide views and statistics can run: subject
// metadata, timepoints, derived settings and the model must all be present.
func (s *Settings) Complete() bool {
	return s.HasSubjects() && s.HasTimepoints() && s.HasDerived() && s.HasModel()
}

// SubjectColumns lists the subject-metadata columns.
func (s *Settings) SubjectColumns() []string {
	if !s.HasSubjects() {
		return nil
	}
	return s.Subjects.ColumnNames()
}

// Load reads settings from a workbook (.xlsx, .xlsm) or YAML (.yaml, .yml).
func Load(path string) (*Settings, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadWorkbook(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	}
	return nil, fmt.Errorf("unsupported settings format: %s", filepath.Ext(path))
}

// Save writes settings in the format implied by the path's extension.
func Save(s *Settings, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return SaveWorkbook(s, path)
	case ".yaml", ".yml":
		return SaveYAML(s, path)
	}
	return fmt.Errorf("unsupported settings format: %s", filepath.Ext(path))
}

// IdentityColumns maps every scanned outcome key to itself.
func IdentityColumns(cols parser.Columns) []dataset.ColumnMapping {
	out := make([]dataset.ColumnMapping, 0, len(cols.Outcomes))
	for _, k := range cols.Outcomes {
		out = append(out, dataset.ColumnMapping{Source: k, Output: k})
	}
	return out
}

// dateColumns are converted to calendar dates when loaded.
func dateColumns() map[string]bool {
	m := map[string]bool{dataset.DateColumn: true}
	for _, d := range dataset.Derivations {
		m[d.Anchor] = true
	}
	return m
}

func normalizeDates(t *dataset.Table) *dataset.Table {
	if t == nil {
		return nil
	}
	out := t
	for c := range dateColumns() {
		if !out.Has(c) {
			continue
		}
		out = out.WithColumn(dataset.Plain(c), func(r dataset.Row) any {
			if d, ok := dataset.ToDate(r[c]); ok {
				return d
			}
			return r[c]
		})
	}
	return out
}

// truthy reads an Include cell.
func truthy(v any) bool {
	if f, ok := dataset.ToFloat(v); ok {
		return f == 1
	}
	s := strings.ToLower(strings.TrimSpace(dataset.FormatValue(v)))
	if s == "yes" {
		return true
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// canonical folds a table name for lookup: case, spaces and underscores are
// ignored, so "ColumnNames" matches "column names".
func canonical(name string) string {
	r := strings.NewReplacer(" ", "", "_", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(name)))
}

// headerIndex finds a header by canonical name, falling back to position.
func headerIndex(header []string, want string, fallback int) int {
	for i, h := range header {
		if canonical(h) == canonical(want) {
			return i
		}
	}
	if fallback < len(header) {
		return fallback
	}
	return -1
}

// fromModel reads the ordered factor list.
func (s *Settings) fromModel(t *dataset.Table) {
	col := pick(t, HeaderFactors, 0)
	if col == "" {
		return
	}
	for _, v := range t.Column(col) {
		if !dataset.IsMissing(v) {
			s.Factors = append(s.Factors, strings.TrimSpace(dataset.FormatValue(v)))
		}
	}
}

func (s *Settings) fromDerived(t *dataset.Table) {
	calc, inc := pick(t, HeaderCalculation, 0), pick(t, HeaderInclude, 1)
	if calc == "" {
		return
	}
	for _, r := range t.Rows() {
		name := strings.TrimSpace(dataset.FormatValue(r[calc]))
		if name == "" {
			continue
		}
		s.Derived = append(s.Derived, dataset.DerivedSetting{Calculation: name, Include: inc != "" && truthy(r[inc])})
	}
}

func (s *Settings) fromColumns(t *dataset.Table) {
	src, dst := pick(t, HeaderSource, 0), pick(t, HeaderOutput, 1)
	if src == "" || dst == "" {
		return
	}
	for _, r := range t.Rows() {
		k := strings.TrimSpace(dataset.FormatValue(r[src]))
		o := strings.TrimSpace(dataset.FormatValue(r[dst]))
		if k == "" {
			continue
		}
		if o == "" {
			o = k
		}
		s.Columns = append(s.Columns, dataset.ColumnMapping{Source: k, Output: o})
	}
}

func pick(t *dataset.Table, want string, fallback int) string {
	names := t.ColumnNames()
	if i := headerIndex(names, want, fallback); i >= 0 {
		return names[i]
	}
	return ""
}

func (s *Settings) missing(table string) {
	s.Missing = append(s.Missing, &MissingTableError{Table: table, Path: s.Source})
}

// modelTable, derivedTable and columnsTable render list settings back
// into tables for saving.
func (s *Settings) modelTable() *dataset.Table {
	t := dataset.NewTable(HeaderFactors)
	for _, f := range s.Factors {
		t.Append(dataset.Row{HeaderFactors: f})
	}
	return t
}

func (s *Settings) derivedTable() *dataset.Table {
	t := dataset.NewTable(HeaderCalculation, HeaderInclude)
	for _, d := range s.Derived {
		inc := 0
		if d.Include {
			inc = 1
		}
		t.Append(dataset.Row{HeaderCalculation: d.Calculation, HeaderInclude: inc})
	}
	return t
}

func (s *Settings) columnsTable() *dataset.Table {
	t := dataset.NewTable(HeaderSource, HeaderOutput)
	for _, c := range s.Columns {
		t.Append(dataset.Row{HeaderSource: c.Source, HeaderOutput: c.Output})
	}
	return t
}
