package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
	"github.com/KaramelBytes/echoloom-cli/internal/utils"
)

// Column names of the flat export.
const (
	FlatSubjectColumn = "Animal_ID"
	FlatDateColumn    = "Study_Date"
	FlatExtraColumn   = "Respiration"
	DefaultFlatLayout = "02-Jan-06"
)

// FlatOptions controls the flat CSV export.
type FlatOptions struct {
	SubjectColumn string
	DateLayout    string
}

// FlatTable renames the subject and series-date columns, formats the date
// with the configured layout and appends an empty Respiration column.
func FlatTable(long *dataset.Table, opt FlatOptions) *dataset.Table {
	subject := opt.SubjectColumn
	if subject == "" {
		subject = dataset.DefaultSubjectColumn
	}
	layout := opt.DateLayout
	if layout == "" {
		layout = DefaultFlatLayout
	}
	out := long.Rename(map[string]string{subject: FlatSubjectColumn, dataset.SeriesDateColumn: FlatDateColumn})
	if out.Has(FlatDateColumn) {
		out = out.WithColumn(dataset.Plain(FlatDateColumn), func(r dataset.Row) any {
			if d, ok := dataset.ToDate(r[FlatDateColumn]); ok {
				return d.Format(layout)
			}
			return r[FlatDateColumn]
		})
	}
	return out.WithColumn(dataset.Plain(FlatExtraColumn), func(dataset.Row) any { return "" })
}

// WriteFlatCSV writes the flat export of the long table to path.
func WriteFlatCSV(path string, long *dataset.Table, opt FlatOptions) error {
	header, rows := FlatTable(long, opt).Records()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return &Error{Path: path, Err: err}
	}
	for _, r := range rows {
		rec := make([]string, len(r))
		for i, v := range r {
			rec[i] = dataset.FormatValue(v)
		}
		if err := w.Write(rec); err != nil {
			return &Error{Path: path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &Error{Path: path, Err: fmt.Errorf("flush csv: %w", err)}
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}
