package dataset

import (
	"fmt"
	"math"
	"strings"
)

// KompStyle names the derived-data entry that enables the flat CSV export.
const KompStyle = "KOMP_STYLE"

// DerivedSetting is one row of the derived-data table.
type DerivedSetting struct {
	Calculation string `yaml:"calculation"`
	Include     bool   `yaml:"include"`
}

// Derivation computes floor((date - anchor) / unit days).
type Derivation struct {
	Name   string
	Anchor string
	Unit   int
}

// Derivations lists the supported calculations in output order.
var Derivations = []Derivation{
	{"Age(days)", "DOB", 1},
	{"Age(wks)", "DOB", 7},
	{"Age(Mo)", "DOB", 28},
	{"PostTreat(days)", "Treatment Date", 1},
	{"PostTreat(wks)", "Treatment Date", 7},
	{"PostTreat(Mo)", "Treatment Date", 28},
	{"TimeInStudy(days)", "Study Start Date", 1},
	{"TimeInStudy(wks)", "Study Start Date", 7},
	{"TimeInStudy(Mo)", "Study Start Date", 28},
}

// Included reports whether the named calculation is switched on.
func Included(settings []DerivedSetting, name string) bool {
	for _, s := range settings {
		if strings.TrimSpace(s.Calculation) == name {
			return s.Include
		}
	}
	return false
}

// Derive adds one integer column per included calculation. A calculation
// whose columns are missing or hold non-date values is skipped with a
// warning; the others still run.
func Derive(t *Table, settings []DerivedSetting) (*Table, []string) {
	var warnings []string
	known := map[string]bool{KompStyle: true}
	for _, d := range Derivations {
		known[d.Name] = true
	}
	for _, s := range settings {
		if name := strings.TrimSpace(s.Calculation); name != "" && !known[name] {
			warnings = append(warnings, fmt.Sprintf("unknown derived calculation %q ignored", name))
		}
	}

	out := t
	for _, d := range Derivations {
		if !Included(settings, d.Name) {
			continue
		}
		next, err := d.apply(out)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s not calculated: %v", d.Name, err))
			continue
		}
		out = next
	}
	return out, warnings
}

func (d Derivation) apply(t *Table) (*Table, error) {
	for _, c := range []string{DateColumn, d.Anchor} {
		if !t.Has(c) {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}
	vals := make([]any, t.Len())
	for i, r := range t.Rows() {
		ev, an := r[DateColumn], r[d.Anchor]
		if IsMissing(ev) || IsMissing(an) {
			continue
		}
		e, ok := ToDate(ev)
		if !ok {
			return nil, fmt.Errorf("row %d: %q is not a date", i+1, FormatValue(ev))
		}
		a, ok := ToDate(an)
		if !ok {
			return nil, fmt.Errorf("row %d: %s %q is not a date", i+1, d.Anchor, FormatValue(an))
		}
		days := math.Round(e.Sub(a).Hours() / 24)
		vals[i] = int(math.Floor(days / float64(d.Unit)))
	}
	i := -1
	return t.WithColumn(Plain(d.Name), func(Row) any {
		i++
		return vals[i]
	}), nil
}
