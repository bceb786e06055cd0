package report

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/yearlens/internal/analysis"
)

// IngestMarkdown renders the import quality check.
func IngestMarkdown(rep *analysis.IngestReport) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if rep.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", rep.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", rep.Rows)
	fmt.Fprintf(&b, "Products: %d\n", rep.Products)
	fmt.Fprintf(&b, "Records: %d\n", rep.Records)
	if len(rep.MonthColumns) > 0 {
		fmt.Fprintf(&b, "Months: %s .. %s (%d columns)\n", rep.FirstMonth, rep.LastMonth, len(rep.MonthColumns))
	}
	b.WriteString("\n[DATA QUALITY]\n")
	fmt.Fprintf(&b, "- missing cells: %d\n", rep.MissingCells)
	fmt.Fprintf(&b, "- non-numeric cells: %d\n", rep.NonNumericCells)
	fmt.Fprintf(&b, "- duplicate rows merged: %d\n", rep.DuplicateRows)
	fmt.Fprintf(&b, "- rows skipped: %d\n", rep.SkippedRows)
	if rep.CodeCollisions > 0 {
		fmt.Fprintf(&b, "- names given hashed codes (slug taken): %d\n", rep.CodeCollisions)
	}
	if len(rep.IgnoredColumns) > 0 {
		fmt.Fprintf(&b, "- ignored columns: %s\n", strings.Join(rep.IgnoredColumns, ", "))
	}
	return b.String()
}

// Dashboard gathers the portfolio view at one month.
type Dashboard struct {
	Overview   analysis.Overview
	ABC        []analysis.ABCRow
	TopYearSum []analysis.YearRecord
	TopYoY     []analysis.YearRecord
	Growth     []analysis.Growth
	// GrowthWindow is the span in months behind Growth.
	GrowthWindow int
	Unit         string
}

// Markdown renders the dashboard KPIs, ABC mix and quick picks.
func (d Dashboard) Markdown() string {
	ov := d.Overview
	var b strings.Builder
	fmt.Fprintf(&b, "[OVERVIEW %s]\n", ov.Month)
	fmt.Fprintf(&b, "- year total: %s\n", AmountUnit(ov.TotalYearSum, d.Unit))
	fmt.Fprintf(&b, "- yoy: %s\n", Percent(ov.YoY))
	fmt.Fprintf(&b, "- delta: %s\n", AmountUnit(ov.Delta, d.Unit))
	fmt.Fprintf(&b, "- hhi: %s\n", Number(ov.HHI))
	fmt.Fprintf(&b, "- products: %d\n", ov.Products)

	if len(d.ABC) > 0 {
		counts := analysis.ABCCounts(d.ABC)
		b.WriteString("\n[ABC]\n")
		fmt.Fprintf(&b, "- A: %d, B: %d, C: %d\n", counts["A"], counts["B"], counts["C"])
	}
	if len(d.TopYearSum) > 0 {
		b.WriteString("\n[TOP BY YEAR TOTAL]\n")
		for i, r := range d.TopYearSum {
			fmt.Fprintf(&b, "%d. %s %s: %s (yoy %s)\n", i+1, r.ProductCode, safe(r.ProductName), AmountUnit(r.YearSum, d.Unit), Percent(r.YoY))
		}
	}
	if len(d.TopYoY) > 0 {
		b.WriteString("\n[TOP BY YOY]\n")
		for i, r := range d.TopYoY {
			fmt.Fprintf(&b, "%d. %s %s: %s\n", i+1, r.ProductCode, safe(r.ProductName), Percent(r.YoY))
		}
	}
	if len(d.Growth) > 0 {
		fmt.Fprintf(&b, "\n[TOP GROWTH %dM]\n", d.GrowthWindow)
		for i, g := range d.Growth {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, g.ProductCode, Percent(analysis.Some(g.Rate)))
		}
	}
	return b.String()
}

// AlertsMarkdown lists alerts with the thresholds that produced them.
func AlertsMarkdown(month analysis.Month, alerts []analysis.AlertRecord, th analysis.AlertThresholds, unit string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[ALERTS %s]\n", month)
	fmt.Fprintf(&b, "Thresholds: yoy <= %s, delta <= %s, slope_beta <= %s\n", Percent(th.YoY), AmountUnit(th.Delta, unit), Number(th.Slope))
	if len(alerts) == 0 {
		b.WriteString("(no alerts)\n")
		return b.String()
	}
	for _, a := range alerts {
		fmt.Fprintf(&b, "- %s %s: year total %s; %s\n", a.ProductCode, safe(a.ProductName), AmountUnit(a.YearSum, unit), a.Reason)
	}
	return b.String()
}

// AnomaliesMarkdown lists flagged points, largest |score| first.
func AnomaliesMarkdown(recs []analysis.AnomalyRecord, sum analysis.AnomalySummary, unit string) string {
	var b strings.Builder
	b.WriteString("[ANOMALIES]\n")
	fmt.Fprintf(&b, "Flagged: %d across %d products (up %d, down %d)\n", sum.Total, sum.Products, sum.Up, sum.Down)
	if len(recs) == 0 {
		b.WriteString("(none)\n")
		return b.String()
	}
	kind := "z"
	if recs[0].Robust {
		kind = "robust z"
	}
	for _, r := range recs {
		fmt.Fprintf(&b, "- %s %s %s: %s vs expected %s (%s %+.2f, |%s| >= %.1f)\n",
			r.Month, r.ProductCode, safe(r.ProductName),
			AmountUnit(analysis.Some(r.Value), unit), AmountUnit(analysis.Some(r.Expected), unit),
			kind, r.Score, kind, r.Threshold)
	}
	return b.String()
}

// CorrelationMarkdown renders the pair table followed by narrated insights.
// Warnings, such as columns left untransformed, are listed first.
func CorrelationMarkdown(method analysis.CorrMethod, pairs []analysis.CorrelationPair, insights []analysis.Insight, warnings []string) string {
	var b strings.Builder
	if len(warnings) > 0 {
		b.WriteString("[WARNINGS]\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "[CORRELATIONS (%s)]\n", method)
	if len(pairs) == 0 {
		b.WriteString("(not enough overlapping data)\n")
	}
	for _, p := range pairs {
		sig := ""
		if p.Significant {
			sig = " *"
		}
		fmt.Fprintf(&b, "- %s ~ %s: r=%s [%s, %s] n=%d%s\n", p.X, p.Y, Number(p.R), Number(p.CILow), Number(p.CIHigh), p.N, sig)
	}
	if len(insights) > 0 {
		b.WriteString("\n[INSIGHTS]\n")
		for _, in := range insights {
			fmt.Fprintf(&b, "- %s and %s: %s %s correlation (r=%s, 95%% CI %s..%s, n=%d)\n",
				in.XLabel, in.YLabel, in.Strength, in.Direction, Number(in.R), Number(in.CILow), Number(in.CIHigh), in.N)
		}
	}
	return b.String()
}

// BandMarkdown renders a band selection over a snapshot.
func BandMarkdown(mode string, low, high float64, ok bool, snapshot []analysis.YearRecord, codes []string, unit string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[BAND %s]\n", mode)
	if !ok {
		b.WriteString("(band could not be resolved)\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Range: %s .. %s\n", AmountUnit(analysis.Some(low), unit), AmountUnit(analysis.Some(high), unit))
	fmt.Fprintf(&b, "Selected: %d\n", len(codes))
	by := make(map[string]analysis.YearRecord, len(snapshot))
	for _, r := range snapshot {
		by[r.ProductCode] = r
	}
	for _, c := range codes {
		r := by[c]
		fmt.Fprintf(&b, "- %s %s: %s (yoy %s, slope %s)\n", c, safe(r.ProductName), AmountUnit(r.YearSum, unit), Percent(r.YoY), Number(r.SlopeBeta))
	}
	return b.String()
}
