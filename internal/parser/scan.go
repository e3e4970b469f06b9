package parser

import "sort"

// Columns lists the field names seen across a set of reports.
type Columns struct {
	Metadata []string
	Outcomes []string
}

// ScanColumns collects sorted, de-duplicated metadata field names and
// measurement/calculation keys from parsed reports.
func ScanColumns(reports []*Report) Columns {
	meta, out := map[string]bool{}, map[string]bool{}
	for _, r := range reports {
		for k := range r.Study {
			meta[k] = true
		}
		for _, s := range r.Series {
			for _, k := range s.keys {
				if s.outcome[k] {
					out[k] = true
				} else {
					meta[k] = true
				}
			}
		}
	}
	return Columns{Metadata: sortedKeys(meta), Outcomes: sortedKeys(out)}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
