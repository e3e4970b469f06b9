// Package reshape builds the wide views of the long study table: the
// horizontal (repeated-measures) view keyed on the first model factor and
// the split (group by timepoint) view keyed on the last.
package reshape

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
)

// ErrNoFactors is returned when the model declares no factors.
var ErrNoFactors = errors.New("model has no factors")

// Layout names the long-table columns the views treat specially.
type Layout struct {
	SubjectColumn string
	// SubjectColumns are the subject-metadata columns; the anchor level
	// leaves them untagged.
	SubjectColumns []string
	Outcomes       []string
}

func (l Layout) subject() string {
	if l.SubjectColumn == "" {
		return dataset.DefaultSubjectColumn
	}
	return l.SubjectColumn
}

// LevelLabel renders a factor level for use as a column tag.
func LevelLabel(v any) string { return dataset.FormatValue(v) }

// Horizontal pivots the long table to one row per subject. Rows at the
// lowest level of factors[0] keep every column, tagged with that level
// except subject metadata. Each later level contributes the series date and
// outcome columns tagged with the level, outer-joined on subject.
func Horizontal(long *dataset.Table, factors []string, in Layout) (*dataset.Table, error) {
	if len(factors) == 0 {
		return nil, ErrNoFactors
	}
	h := factors[0]
	if !long.Has(h) {
		return nil, fmt.Errorf("horizontal view: factor %q is not a column", h)
	}
	levels := long.Distinct(h)
	if len(levels) == 0 {
		return nil, fmt.Errorf("horizontal view: factor %q has no values", h)
	}
	subject := in.subject()
	untagged := map[string]bool{subject: true}
	for _, c := range in.SubjectColumns {
		untagged[c] = true
	}

	first := LevelLabel(levels[0])
	acc := atLevel(long, h, levels[0]).Relabel(func(c dataset.Column) dataset.Column {
		if untagged[c.Name()] {
			return c
		}
		return c.WithTag(first)
	})
	keep := append([]string{subject, dataset.SeriesDateColumn}, in.Outcomes...)
	for _, lv := range levels[1:] {
		tag := LevelLabel(lv)
		sub := atLevel(long, h, lv).Select(keep...).Relabel(func(c dataset.Column) dataset.Column {
			if c.Name() == subject {
				return c
			}
			return c.WithTag(tag)
		})
		acc = outerJoin(acc, sub, subject)
	}
	return acc.SortBy(subject), nil
}

func atLevel(t *dataset.Table, col string, level any) *dataset.Table {
	return t.Filter(func(r dataset.Row) bool { return dataset.SameValue(r[col], level) })
}

// outerJoin matches rows of a and b on key. Unmatched rows from either side
// are kept with empty cells for the other side's columns.
func outerJoin(a, b *dataset.Table, key string) *dataset.Table {
	cols := a.Columns()
	for _, c := range b.Columns() {
		if !a.Has(c.Name()) {
			cols = append(cols, c)
		}
	}
	out := dataset.NewTableOf(cols)
	used := make([]bool, b.Len())
	for _, ar := range a.Rows() {
		matched := false
		for j, br := range b.Rows() {
			if !dataset.SameValue(ar[key], br[key]) {
				continue
			}
			matched, used[j] = true, true
			row := dataset.Row{}
			for k, v := range ar {
				row[k] = v
			}
			for k, v := range br {
				row[k] = v
			}
			out.Append(row)
		}
		if !matched {
			out.Append(ar)
		}
	}
	for j, br := range b.Rows() {
		if !used[j] {
			out.Append(br)
		}
	}
	return out
}

// GroupColumn resolves the split factor in the horizontal view: the plain
// column when present, otherwise the first tagged column with that base.
func GroupColumn(horizontal *dataset.Table, factor string) (string, bool) {
	if horizontal.Has(factor) {
		return factor, true
	}
	for _, c := range horizontal.Columns() {
		if c.Base == factor && len(c.Tags) > 0 {
			return c.Name(), true
		}
	}
	return "", false
}

// Split prefixes every column of each horizontal row with the row's level
// of the last factor, so groups occupy disjoint column families. Rows keep
// their horizontal order; the row count is the sum of the group sizes.
// Columns are sorted by name and empty cells become "".
func Split(horizontal *dataset.Table, factors []string) (*dataset.Table, error) {
	if len(factors) == 0 {
		return nil, ErrNoFactors
	}
	g, ok := GroupColumn(horizontal, factors[len(factors)-1])
	if !ok {
		return nil, fmt.Errorf("split view: factor %q is not a column", factors[len(factors)-1])
	}
	groups := horizontal.Distinct(g)
	src := horizontal.Columns()

	var cols []dataset.Column
	for _, lv := range groups {
		tag := LevelLabel(lv)
		for _, c := range src {
			cols = append(cols, c.WithLeadingTag(tag))
		}
	}
	out := dataset.NewTableOf(cols)
	for _, r := range horizontal.Rows() {
		tag, ok := groupOf(groups, r[g])
		if !ok {
			continue
		}
		row := make(dataset.Row, len(src))
		for _, c := range src {
			row[c.WithLeadingTag(tag).Name()] = r[c.Name()]
		}
		out.Append(row)
	}
	return out.SortColumns().FillMissing(""), nil
}

func groupOf(groups []any, v any) (string, bool) {
	for _, lv := range groups {
		if dataset.SameValue(lv, v) {
			return LevelLabel(lv), true
		}
	}
	return "", false
}
