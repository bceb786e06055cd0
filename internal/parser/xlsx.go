package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/yearlens/internal/analysis"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

// Read loads one sheet. Cell values come back formatted, so date headers read
// the way the workbook displays them.
func (xlsxReader) Read(path string, opt Options) (analysis.WideTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return analysis.WideTable{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	sheet := ""
	if opt.Sheet != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return analysis.WideTable{}, fmt.Errorf("sheet '%s' not found in workbook '%s'. Available sheets: %s",
				opt.Sheet, filepath.Base(path), strings.Join(sheets, ", "))
		}
	} else {
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return analysis.WideTable{}, fmt.Errorf("sheet index %d out of range: workbook '%s' has %d sheets",
				idx, filepath.Base(path), len(sheets))
		}
		sheet = sheets[idx-1]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return analysis.WideTable{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	t := analysis.WideTable{Name: fmt.Sprintf("%s (sheet: %s)", filepath.Base(path), sheet)}
	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		if isBlankRow(row) {
			continue
		}
		if t.Header == nil {
			t.Header = row
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	if t.Header == nil {
		return analysis.WideTable{}, fmt.Errorf("read header: %w", ErrEmptyTable)
	}
	return t, nil
}
