package parser_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/yearlens/internal/parser"
)

func writeWorkbook(t *testing.T, sheets map[string][][]interface{}, order []string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			vals := row
			require.NoError(t, f.SetSheetRow(name, cell, &vals))
		}
	}
	p := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(p))
	return p
}

func TestReadXLSX_FirstSheetByDefault(t *testing.T) {
	p := writeWorkbook(t, map[string][][]interface{}{
		"Sales": {
			{"name", "code", "2024-01", "2024-02"},
			{"Green Tea", "GT", 100, 120},
			{},
			{"Oolong", "OL", 80, 90},
		},
		"Notes": {{"memo"}},
	}, []string{"Sales", "Notes"})

	tbl, err := parser.ReadFile(p, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, "book.xlsx (sheet: Sales)", tbl.Name)
	assert.Equal(t, []string{"name", "code", "2024-01", "2024-02"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Oolong", "OL", "80", "90"}, tbl.Rows[1])
}

func TestReadXLSX_SheetSelection(t *testing.T) {
	p := writeWorkbook(t, map[string][][]interface{}{
		"Sales": {{"name", "2024-01"}, {"A", 1}},
		"Other": {{"product", "2023-12"}, {"B", 2}},
	}, []string{"Sales", "Other"})

	tbl, err := parser.ReadFile(p, parser.Options{Sheet: "other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"product", "2023-12"}, tbl.Header)

	tbl, err = parser.ReadFile(p, parser.Options{SheetIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"product", "2023-12"}, tbl.Header)

	_, err = parser.ReadFile(p, parser.Options{Sheet: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets: Sales, Other")

	_, err = parser.ReadFile(p, parser.Options{SheetIndex: 5})
	require.Error(t, err)
}
