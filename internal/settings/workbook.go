package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
	"github.com/KaramelBytes/echoloom-cli/internal/export"
	"github.com/KaramelBytes/echoloom-cli/internal/parser"
)

// LoadWorkbook reads settings from an Excel workbook, one sheet per table.
// Sheet names match case-, space- and underscore-insensitively, so the
// legacy "ColumnNames" and "DerivedData" sheets are accepted. Absent sheets
// are recorded in Settings.Missing.
func LoadWorkbook(path string) (*Settings, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open settings workbook: %w", err)
	}
	defer f.Close()

	s := &Settings{Source: path}
	read := func(name string) *dataset.Table {
		sheet, ok := findSheet(f, name)
		if !ok {
			s.missing(name)
			return nil
		}
		t, err := readSheet(f, sheet)
		if err != nil || t.Empty() {
			s.missing(name)
			return nil
		}
		return t
	}
	s.Subjects = normalizeDates(read(TableSubjects))
	s.Timepoints = normalizeDates(read(TableTimepoints))
	if t := read(TableModel); t != nil {
		s.fromModel(t)
	}
	if t := read(TableDerived); t != nil {
		s.fromDerived(t)
	}
	if t := read(TableColumns); t != nil {
		s.fromColumns(t)
	}
	return s, nil
}

func findSheet(f *excelize.File, name string) (string, bool) {
	for _, sh := range f.GetSheetList() {
		if canonical(sh) == canonical(name) {
			return sh, true
		}
	}
	return "", false
}

// readSheet loads a sheet whose first row is the header. Text cells stay
// strings, numeric cells become float64 and blank cells are left out.
func readSheet(f *excelize.File, sheet string) (*dataset.Table, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return dataset.NewTable(), nil
	}
	var header []string
	var idx []int
	for i, h := range rows[0] {
		if h = strings.TrimSpace(h); h != "" {
			header = append(header, h)
			idx = append(idx, i)
		}
	}
	t := dataset.NewTable(header...)
	for r, raw := range rows[1:] {
		row := dataset.Row{}
		for k, i := range idx {
			if i >= len(raw) || strings.TrimSpace(raw[i]) == "" {
				continue
			}
			row[header[k]] = cellValue(f, sheet, i+1, r+2, raw[i])
		}
		if len(row) > 0 {
			t.Append(row)
		}
	}
	return t, nil
}

func cellValue(f *excelize.File, sheet string, col, row int, raw string) any {
	s := strings.TrimSpace(raw)
	if ref, err := excelize.CoordinatesToCellName(col, row); err == nil {
		if typ, err := f.GetCellType(sheet, ref); err == nil {
			switch typ {
			case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
				return s
			}
		}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

// SaveWorkbook writes the non-empty tables of s to a workbook.
func SaveWorkbook(s *Settings, path string) error {
	f := excelize.NewFile()
	defer f.Close()
	tables := []struct {
		name string
		t    *dataset.Table
		ok   bool
	}{
		{TableSubjects, s.Subjects, s.HasSubjects()},
		{TableTimepoints, s.Timepoints, s.HasTimepoints()},
		{TableModel, s.modelTable(), s.HasModel()},
		{TableDerived, s.derivedTable(), s.HasDerived()},
		{TableColumns, s.columnsTable(), s.HasColumns()},
	}
	wrote := 0
	for _, tb := range tables {
		if !tb.ok {
			continue
		}
		if err := export.AddSheet(f, tb.name, tb.t); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		wrote++
	}
	if wrote == 0 {
		return fmt.Errorf("save settings: no tables to write")
	}
	if err := export.SaveFile(f, path); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// WriteTemplate writes a starter workbook: a column-name sheet mapping every
// scanned outcome key to itself, plus empty subject, timepoint and model
// sheets and a derived-data sheet listing every calculation switched off.
func WriteTemplate(path string, cols parser.Columns, subjectColumn string) error {
	if subjectColumn == "" {
		subjectColumn = dataset.DefaultSubjectColumn
	}
	s := &Settings{
		Subjects:   dataset.NewTable(subjectColumn),
		Timepoints: dataset.NewTable(dataset.DateColumn, "timepoint"),
		Columns:    IdentityColumns(cols),
	}
	for _, d := range dataset.Derivations {
		s.Derived = append(s.Derived, dataset.DerivedSetting{Calculation: d.Name})
	}
	s.Derived = append(s.Derived, dataset.DerivedSetting{Calculation: dataset.KompStyle})

	f := excelize.NewFile()
	defer f.Close()
	for _, tb := range []struct {
		name string
		t    *dataset.Table
	}{
		{TableColumns, s.columnsTable()},
		{TableSubjects, s.Subjects},
		{TableTimepoints, s.Timepoints},
		{TableModel, s.modelTable()},
		{TableDerived, s.derivedTable()},
	} {
		if err := export.AddSheet(f, tb.name, tb.t); err != nil {
			return fmt.Errorf("write template: %w", err)
		}
	}
	if err := export.SaveFile(f, path); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}
