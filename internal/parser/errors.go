package parser

import "fmt"

// FieldError reports a row too short for the section it appeared in. The
// row is skipped; parsing continues.
type FieldError struct {
	File    string
	Series  string
	Row     int
	Section string
	Need    int
	Got     int
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: series %q row %d: %s row has %d fields, need %d; skipped",
		e.File, e.Series, e.Row, e.Section, e.Got, e.Need)
}

// AggregationError reports a replicate value that is not numeric. The field
// is replaced by the error sentinel.
type AggregationError struct {
	File   string
	Series string
	Key    string
	Value  string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s: series %q field %q: non-numeric replicate %q", e.File, e.Series, e.Key, e.Value)
}
