package export

import (
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
	"github.com/KaramelBytes/echoloom-cli/internal/utils"
)

// Sheet names of the output workbook.
const (
	SheetVertical   = "vertical"
	SheetHorizontal = "horizontal"
	SheetSplit      = "split"
	SheetGraphs     = "graphs"
	SheetStats      = "stats"
	SheetPairwise   = "pairwise"
)

// Error is a failed write of a run output.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("export %s: %v", e.Path, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Bundle holds the tables of one run. Nil tables are not written.
type Bundle struct {
	Vertical   *dataset.Table
	Horizontal *dataset.Table
	Split      *dataset.Table
	Graphs     *dataset.Table
	Stats      *dataset.Table
	Pairwise   *dataset.Table
}

func (b Bundle) sheets() []namedTable {
	return []namedTable{
		{SheetVertical, b.Vertical},
		{SheetHorizontal, b.Horizontal},
		{SheetSplit, b.Split},
		{SheetGraphs, b.Graphs},
		{SheetStats, b.Stats},
		{SheetPairwise, b.Pairwise},
	}
}

type namedTable struct {
	name  string
	table *dataset.Table
}

// WriteWorkbook writes every present table of b to its own sheet.
func WriteWorkbook(path string, b Bundle) error {
	f := excelize.NewFile()
	defer f.Close()
	var sheets []namedTable
	for _, s := range b.sheets() {
		if s.table != nil {
			sheets = append(sheets, s)
		}
	}
	if len(sheets) == 0 {
		return &Error{Path: path, Err: fmt.Errorf("nothing to write")}
	}
	for _, s := range sheets {
		if err := AddSheet(f, s.name, s.table); err != nil {
			return &Error{Path: path, Err: err}
		}
	}
	if err := SaveFile(f, path); err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}

// AddSheet writes t as a header row plus data rows. The workbook's default
// sheet is renamed for the first table added.
func AddSheet(f *excelize.File, name string, t *dataset.Table) error {
	list := f.GetSheetList()
	if len(list) == 1 && list[0] == "Sheet1" && name != "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("new sheet %s: %w", name, err)
	}
	header, rows := t.Records()
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &head); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	for i, r := range rows {
		vals := make([]any, len(r))
		for j, v := range r {
			vals[j] = CellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &vals); err != nil {
			return fmt.Errorf("write %s row %d: %w", name, i+2, err)
		}
	}
	return nil
}

// CellValue converts a table cell for a spreadsheet: non-finite numbers
// become text and dates are rendered as YYYY-MM-DD.
func CellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		switch {
		case math.IsNaN(x):
			return "nan"
		case math.IsInf(x, 1):
			return "inf"
		case math.IsInf(x, -1):
			return "-inf"
		}
		return x
	case time.Time:
		return x.Format(dataset.DateLayout)
	}
	return v
}

// SaveFile serialises the workbook and moves it into place atomically.
func SaveFile(f *excelize.File, path string) error {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("serialise workbook: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
