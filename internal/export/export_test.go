package export

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
)

func longTable() *dataset.Table {
	t := dataset.NewTable("Animal ID", "Series Date", "HR")
	t.Append(dataset.Row{"Animal ID": "M1", "Series Date": time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), "HR": 410.0})
	t.Append(dataset.Row{"Animal ID": "M2", "Series Date": nil, "HR": math.Inf(1)})
	return t
}

func TestWriteWorkbookPresentSheetsOnly(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteWorkbook(p, Bundle{Vertical: longTable(), Stats: dataset.NewTable("Source")}))

	f, err := excelize.OpenFile(p)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetVertical, SheetStats}, f.GetSheetList())

	rows, err := f.GetRows(SheetVertical)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Animal ID", "Series Date", "HR"}, rows[0])
	assert.Equal(t, []string{"M1", "2021-03-04", "410"}, rows[1])
	assert.Equal(t, "inf", rows[2][2])

	_, err = os.Stat(p + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteWorkbookFailureIsExportError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "missing-dir", "out.xlsx")
	err := WriteWorkbook(p, Bundle{Vertical: longTable()})
	require.Error(t, err)
	var ee *Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, p, ee.Path)

	err = WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), Bundle{})
	assert.True(t, errors.As(err, &ee))
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, "nan", CellValue(math.NaN()))
	assert.Equal(t, "-inf", CellValue(math.Inf(-1)))
	assert.Equal(t, 1.5, CellValue(1.5))
	assert.Equal(t, "2021-03-04", CellValue(time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, CellValue(nil))
}

func TestWriteFlatCSV(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.xlsx.csv")
	require.NoError(t, WriteFlatCSV(p, longTable(), FlatOptions{}))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Animal_ID,Study_Date,HR,Respiration", lines[0])
	assert.Equal(t, "M1,04-Mar-21,410,", lines[1])
	assert.Equal(t, "M2,,+Inf,", lines[2])
}

func TestWriteRunSummary(t *testing.T) {
	p := filepath.Join(t.TempDir(), "run.yaml")
	s := RunSummary{RunID: "abc", Reports: []string{"a.csv"}, Output: "out.xlsx", Rows: map[string]int{"vertical": 2}, Warnings: []string{"w"}}
	require.NoError(t, WriteRunSummary(p, s))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	var got RunSummary
	require.NoError(t, yaml.Unmarshal(b, &got))
	assert.Equal(t, "abc", got.RunID)
	assert.Equal(t, 2, got.Rows["vertical"])
	assert.Equal(t, []string{"w"}, got.Warnings)
}
