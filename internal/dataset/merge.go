package dataset

import "fmt"

// Fixed column names shared by the merge stages.
const (
	DefaultSubjectColumn = "Animal ID"
	SeriesDateColumn     = "Series Date"
	DateColumn           = "date"
)

// ColumnMapping renames one raw report key to an output column.
type ColumnMapping struct {
	Source string `yaml:"source"`
	Output string `yaml:"output"`
}

// MergeInput carries the configuration tables consumed by Merge. Nil or
// empty tables are skipped.
type MergeInput struct {
	Columns       []ColumnMapping
	Timepoints    *Table
	Subjects      *Table
	SubjectColumn string
}

// Outputs returns the mapped output names in order, without duplicates.
func (in MergeInput) Outputs() []string {
	return OutputNames(in.Columns)
}

// OutputNames lists the distinct output names of a column map in order.
func OutputNames(cols []ColumnMapping) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range cols {
		if m.Output == "" || seen[m.Output] {
			continue
		}
		seen[m.Output] = true
		out = append(out, m.Output)
	}
	return out
}

// Stack appends the records of one file to the accumulated table. It is a
// pure reduction step: neither argument is modified.
func Stack(acc, next *Table) *Table {
	return Concat(acc, next)
}

// Merge renames and projects the stacked records, then right-joins the
// timepoint map on the series date and the subject table on the subject
// column. Every stacked record survives both joins.
func Merge(stacked *Table, in MergeInput) (*Table, []string) {
	var warnings []string
	subject := in.SubjectColumn
	if subject == "" {
		subject = DefaultSubjectColumn
	}

	rename := make(map[string]string, len(in.Columns))
	for _, m := range in.Columns {
		if m.Source != "" && m.Output != "" {
			rename[m.Source] = m.Output
		}
	}
	names := []string{subject, SeriesDateColumn}
	seen := map[string]bool{subject: true, SeriesDateColumn: true}
	for _, o := range in.Outputs() {
		if !seen[o] {
			seen[o] = true
			names = append(names, o)
		}
	}
	long := stacked.Rename(rename).Select(names...)

	if !in.Timepoints.Empty() {
		if !in.Timepoints.Has(DateColumn) {
			warnings = append(warnings, fmt.Sprintf("timepoint table has no %q column; timepoints not merged", DateColumn))
		} else {
			long = rightJoin(in.Timepoints, long, func(m, r Row) bool {
				return SameValue(m[DateColumn], r[SeriesDateColumn])
			})
			long = long.WithColumn(Plain(DateColumn), func(r Row) any {
				if d, ok := ToDate(r[DateColumn]); ok {
					return d
				}
				if d, ok := ToDate(r[SeriesDateColumn]); ok {
					return d
				}
				return r[DateColumn]
			})
		}
	}

	if !in.Subjects.Empty() {
		if !in.Subjects.Has(subject) {
			warnings = append(warnings, fmt.Sprintf("subject table has no %q column; subjects not merged", subject))
		} else {
			long = rightJoin(in.Subjects, long, func(m, r Row) bool {
				return SameValue(m[subject], r[subject])
			})
		}
	}
	return long, warnings
}

// rightJoin keeps every row of long, extended with the columns of each
// matching meta row. Meta columns lead. Long values win on shared names.
func rightJoin(meta, long *Table, match func(m, r Row) bool) *Table {
	out := &Table{cols: meta.Columns()}
	for _, c := range long.cols {
		if out.index(c.Name()) < 0 {
			out.cols = append(out.cols, c)
		}
	}
	for _, r := range long.rows {
		matched := false
		for _, m := range meta.rows {
			if !match(m, r) {
				continue
			}
			matched = true
			nr := cloneRow(m)
			for k, v := range r {
				if !IsMissing(v) || IsMissing(nr[k]) {
					nr[k] = v
				}
			}
			out.rows = append(out.rows, nr)
		}
		if !matched {
			out.rows = append(out.rows, cloneRow(r))
		}
	}
	return out
}
