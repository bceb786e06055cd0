package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/KaramelBytes/yearlens/internal/analysis"
	"github.com/KaramelBytes/yearlens/internal/utils"
)

// utf8BOM lets spreadsheet tools detect UTF-8 product names.
const utf8BOM = "\ufeff"

// YearColumns is the header of WriteYearCSV.
var YearColumns = []string{"product_code", "product_name", "month", "amount", "year_sum", "yoy", "delta", "slope_beta", "slope6m", "std6m", "hhi_share"}

// WriteYearCSV writes the year-rolling table. Null cells are empty.
func WriteYearCSV(w io.Writer, rows []analysis.YearRecord) error {
	return writeCSV(w, YearColumns, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.ProductCode, r.ProductName, r.Month.String(),
			r.Amount.String(), r.YearSum.String(), r.YoY.String(), r.Delta.String(),
			r.SlopeBeta.String(), r.Slope6M.String(), r.Std6M.String(), r.HHIShare.String(),
		}
	})
}

// WriteAlertsCSV writes one row per alert.
func WriteAlertsCSV(w io.Writer, alerts []analysis.AlertRecord) error {
	header := []string{"product_code", "product_name", "month", "year_sum", "yoy", "delta", "slope_beta", "metrics", "reason"}
	return writeCSV(w, header, len(alerts), func(i int) []string {
		a := alerts[i]
		return []string{
			a.ProductCode, a.ProductName, a.Month.String(),
			a.YearSum.String(), a.YoY.String(), a.Delta.String(), a.SlopeBeta.String(),
			strings.Join(a.Metrics, "|"), a.Reason,
		}
	})
}

// WriteAnomaliesCSV writes flagged anomaly points.
func WriteAnomaliesCSV(w io.Writer, recs []analysis.AnomalyRecord) error {
	header := []string{"product_code", "product_name", "month", "value", "expected", "residual", "score", "threshold", "robust"}
	return writeCSV(w, header, len(recs), func(i int) []string {
		r := recs[i]
		return []string{
			r.ProductCode, r.ProductName, r.Month.String(),
			ftoa(r.Value), ftoa(r.Expected), ftoa(r.Residual), ftoa(r.Score), ftoa(r.Threshold),
			strconv.FormatBool(r.Robust),
		}
	})
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func writeCSV(w io.Writer, header []string, n int, row func(int) []string) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteFile renders through write into memory, then writes path atomically.
func WriteFile(path string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
