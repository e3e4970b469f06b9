package dataset

import (
	"sort"
)

// Row maps rendered column names to cell values.
type Row map[string]any

// Table is an ordered set of columns over map-backed rows. Operations return
// new tables and leave their receiver untouched.
type Table struct {
	cols []Column
	rows []Row
}

// NewTable creates an empty table with the given plain column names.
func NewTable(names ...string) *Table {
	t := &Table{}
	for _, n := range names {
		t.cols = append(t.cols, Plain(n))
	}
	return t
}

// NewTableOf creates an empty table with structured columns.
func NewTableOf(cols []Column) *Table {
	return &Table{cols: append([]Column(nil), cols...)}
}

// Len returns the row count. A nil table has no rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Empty reports whether the table is nil or has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Columns returns a copy of the column identifiers.
func (t *Table) Columns() []Column {
	if t == nil {
		return nil
	}
	return append([]Column(nil), t.cols...)
}

// ColumnNames returns rendered column names in order.
func (t *Table) ColumnNames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name()
	}
	return out
}

// Has reports whether a column with the rendered name exists.
func (t *Table) Has(name string) bool {
	return t.index(name) >= 0
}

func (t *Table) index(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.cols {
		if c.Name() == name {
			return i
		}
	}
	return -1
}

// Rows returns the rows. Callers must not mutate them.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	return t.rows
}

// Value returns the cell at row i, column name.
func (t *Table) Value(i int, name string) any {
	return t.rows[i][name]
}

// Column returns all values of one column.
func (t *Table) Column(name string) []any {
	out := make([]any, t.Len())
	for i, r := range t.Rows() {
		out[i] = r[name]
	}
	return out
}

// Clone deep-copies the table structure and rows.
func (t *Table) Clone() *Table {
	if t == nil {
		return &Table{}
	}
	out := &Table{cols: make([]Column, len(t.cols)), rows: make([]Row, len(t.rows))}
	for i, c := range t.cols {
		out.cols[i] = Column{Base: c.Base, Tags: append([]string(nil), c.Tags...)}
	}
	for i, r := range t.rows {
		out.rows[i] = cloneRow(r)
	}
	return out
}

func cloneRow(r Row) Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Append adds a row in place, registering unseen keys as plain columns in
// sorted order. Used while building a table.
func (t *Table) Append(r Row) {
	var unseen []string
	for k := range r {
		if t.index(k) < 0 {
			unseen = append(unseen, k)
		}
	}
	sort.Strings(unseen)
	for _, k := range unseen {
		t.cols = append(t.cols, Plain(k))
	}
	t.rows = append(t.rows, cloneRow(r))
}

// AppendOrdered adds a row in place; keys are registered in the given order
// when they are not yet columns.
func (t *Table) AppendOrdered(r Row, order []string) {
	for _, k := range order {
		if _, ok := r[k]; ok && t.index(k) < 0 {
			t.cols = append(t.cols, Plain(k))
		}
	}
	t.Append(r)
}

// WithColumn returns a copy with column c added (or kept) and every row's
// value computed by fn. A nil fn leaves the column empty.
func (t *Table) WithColumn(c Column, fn func(Row) any) *Table {
	out := t.Clone()
	name := c.Name()
	if out.index(name) < 0 {
		out.cols = append(out.cols, c)
	}
	for _, r := range out.rows {
		if fn == nil {
			if _, ok := r[name]; !ok {
				r[name] = nil
			}
			continue
		}
		r[name] = fn(r)
	}
	return out
}

// Select projects onto the named columns, creating empty ones that are
// missing.
func (t *Table) Select(names ...string) *Table {
	out := &Table{}
	for _, n := range names {
		if i := t.index(n); i >= 0 {
			out.cols = append(out.cols, t.cols[i])
		} else {
			out.cols = append(out.cols, Plain(n))
		}
	}
	for _, r := range t.Rows() {
		nr := make(Row, len(names))
		for _, n := range names {
			nr[n] = r[n]
		}
		out.rows = append(out.rows, nr)
	}
	return out
}

// Rename maps rendered names to new plain names. Unmapped columns keep their
// identity. When two columns collapse onto one name the later one wins.
func (t *Table) Rename(mapping map[string]string) *Table {
	return t.Relabel(func(c Column) Column {
		if n, ok := mapping[c.Name()]; ok {
			return Plain(n)
		}
		return c
	})
}

// Relabel rewrites every column identifier with fn.
func (t *Table) Relabel(fn func(Column) Column) *Table {
	out := &Table{}
	newNames := make([]string, len(t.cols))
	seen := map[string]int{}
	for i, c := range t.cols {
		nc := fn(c)
		newNames[i] = nc.Name()
		if j, ok := seen[newNames[i]]; ok {
			out.cols[j] = nc
			continue
		}
		seen[newNames[i]] = len(out.cols)
		out.cols = append(out.cols, nc)
	}
	for _, r := range t.Rows() {
		nr := make(Row, len(r))
		for i, c := range t.cols {
			if v, ok := r[c.Name()]; ok {
				nr[newNames[i]] = v
			}
		}
		out.rows = append(out.rows, nr)
	}
	return out
}

// Filter keeps rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{cols: t.Columns()}
	for _, r := range t.Rows() {
		if keep(r) {
			out.rows = append(out.rows, cloneRow(r))
		}
	}
	return out
}

// Concat stacks rows of b under a, outer-joining on columns.
func Concat(a, b *Table) *Table {
	out := a.Clone()
	for _, c := range b.Columns() {
		if out.index(c.Name()) < 0 {
			out.cols = append(out.cols, c)
		}
	}
	for _, r := range b.Rows() {
		out.rows = append(out.rows, cloneRow(r))
	}
	return out
}

// SortBy returns a copy ordered by the given columns ascending. Missing
// cells sort last; the sort is stable.
func (t *Table) SortBy(names ...string) *Table {
	out := t.Clone()
	sort.SliceStable(out.rows, func(i, j int) bool {
		for _, n := range names {
			a, b := out.rows[i][n], out.rows[j][n]
			am, bm := IsMissing(a), IsMissing(b)
			switch {
			case am && bm:
				continue
			case am:
				return false
			case bm:
				return true
			}
			if c := CompareValues(a, b); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out
}

// SortColumns orders columns by rendered name.
func (t *Table) SortColumns() *Table {
	out := t.Clone()
	sort.SliceStable(out.cols, func(i, j int) bool { return out.cols[i].Name() < out.cols[j].Name() })
	return out
}

// FillMissing replaces missing cells in every column with v.
func (t *Table) FillMissing(v any) *Table {
	out := t.Clone()
	for _, r := range out.rows {
		for _, c := range out.cols {
			if IsMissing(r[c.Name()]) {
				r[c.Name()] = v
			}
		}
	}
	return out
}

// Distinct returns the non-missing distinct values of a column sorted
// ascending.
func (t *Table) Distinct(name string) []any {
	var out []any
	for _, r := range t.Rows() {
		v := r[name]
		if IsMissing(v) {
			continue
		}
		dup := false
		for _, s := range out {
			if SameValue(s, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return CompareValues(out[i], out[j]) < 0 })
	return out
}

// Records renders the table as a header row plus raw cell rows.
func (t *Table) Records() ([]string, [][]any) {
	names := t.ColumnNames()
	rows := make([][]any, 0, t.Len())
	for _, r := range t.Rows() {
		rec := make([]any, len(names))
		for i, n := range names {
			rec[i] = r[n]
		}
		rows = append(rows, rec)
	}
	return names, rows
}
