package analysis

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// LatestSnapshot returns the rows at month, largest year_sum first with null
// year_sum last and ties broken by code.
func LatestSnapshot(rows []YearRecord, month Month) []YearRecord {
	var snap []YearRecord
	for _, r := range rows {
		if r.Month == month {
			snap = append(snap, r)
		}
	}
	sort.SliceStable(snap, func(a, b int) bool {
		x, y := snap[a].YearSum, snap[b].YearSum
		if x.Valid != y.Valid {
			return x.Valid
		}
		if x.Valid && x.Value != y.Value {
			return x.Value > y.Value
		}
		return snap[a].ProductCode < snap[b].ProductCode
	})
	return snap
}

// Overview holds the portfolio KPIs at one month.
type Overview struct {
	Month        Month `json:"month"`
	TotalYearSum Float `json:"total_year_sum"`
	YoY          Float `json:"yoy"`
	Delta        Float `json:"delta"`
	HHI          Float `json:"hhi"`
	Products     int   `json:"products"`
}

// totalSeries sums the defined year_sum values per month. Months where no
// product has a defined year_sum are absent.
func totalSeries(rows []YearRecord) map[Month]decimal.Decimal {
	totals := map[Month]decimal.Decimal{}
	for _, r := range rows {
		if r.YearSum.Valid {
			totals[r.Month] = totals[r.Month].Add(decimal.NewFromFloat(r.YearSum.Value))
		}
	}
	return totals
}

// AggregateOverview totals year_sum at month, skipping nulls, and derives
// yoy and delta from the total series rather than from per-product ratios.
func AggregateOverview(rows []YearRecord, month Month) Overview {
	totals := totalSeries(rows)
	ov := Overview{Month: month, HHI: ComputeHHI(rows, month)}
	for _, r := range rows {
		if r.Month == month && r.YearSum.Valid {
			ov.Products++
		}
	}
	cur, ok := totals[month]
	if !ok {
		return ov
	}
	ov.TotalYearSum = Some(cur.InexactFloat64())
	if prev, ok := totals[month.Add(-1)]; ok {
		ov.Delta = Some(cur.Sub(prev).InexactFloat64())
	}
	if base, ok := totals[month.Add(-12)]; ok && !base.IsZero() {
		ov.YoY = Some(cur.InexactFloat64()/base.InexactFloat64() - 1)
	}
	return ov
}

// ComputeHHI returns the sum of squared year_sum shares at month, or null when
// the total is zero or no product has a defined year_sum.
func ComputeHHI(rows []YearRecord, month Month) Float {
	var vals []float64
	total := decimal.Zero
	for _, r := range rows {
		if r.Month == month && r.YearSum.Valid {
			vals = append(vals, r.YearSum.Value)
			total = total.Add(decimal.NewFromFloat(r.YearSum.Value))
		}
	}
	if len(vals) == 0 || total.IsZero() {
		return Null
	}
	t := total.InexactFloat64()
	var hhi float64
	for _, v := range vals {
		s := v / t
		hhi += s * s
	}
	return Some(hhi)
}

// ABCRow is one product's Pareto class.
type ABCRow struct {
	ProductCode string  `json:"product_code"`
	YearSum     float64 `json:"year_sum"`
	Share       float64 `json:"share"`
	CumShare    float64 `json:"cum_share"`
	Class       string  `json:"class"`
}

// ABCClassification ranks the snapshot by year_sum and classes products by
// cumulative share: A up to 80%, B up to 95%, C beyond. Null year_sum rows are
// skipped; a non-positive total yields nil.
func ABCClassification(snapshot []YearRecord) []ABCRow {
	var rows []ABCRow
	var total float64
	for _, r := range snapshot {
		if r.YearSum.Valid {
			rows = append(rows, ABCRow{ProductCode: r.ProductCode, YearSum: r.YearSum.Value})
			total += r.YearSum.Value
		}
	}
	if total <= 0 {
		return nil
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].YearSum != rows[b].YearSum {
			return rows[a].YearSum > rows[b].YearSum
		}
		return rows[a].ProductCode < rows[b].ProductCode
	})
	var cum float64
	for i := range rows {
		rows[i].Share = rows[i].YearSum / total
		cum += rows[i].Share
		rows[i].CumShare = cum
		switch {
		case cum <= 0.80+1e-12:
			rows[i].Class = "A"
		case cum <= 0.95+1e-12:
			rows[i].Class = "B"
		default:
			rows[i].Class = "C"
		}
	}
	return rows
}

// ABCCounts tallies classes.
func ABCCounts(rows []ABCRow) map[string]int {
	out := map[string]int{"A": 0, "B": 0, "C": 0}
	for _, r := range rows {
		out[r.Class]++
	}
	return out
}

// TopByYearSum returns the k largest snapshot rows by year_sum.
func TopByYearSum(snapshot []YearRecord, k int) []YearRecord {
	return topBy(snapshot, k, MetricYearSum)
}

// TopByYoY returns the k snapshot rows with the highest defined yoy.
func TopByYoY(snapshot []YearRecord, k int) []YearRecord {
	return topBy(snapshot, k, MetricYoY)
}

func topBy(snapshot []YearRecord, k int, m Metric) []YearRecord {
	var out []YearRecord
	for _, r := range snapshot {
		if m.Of(r).Valid {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		x, y := m.Of(out[a]).Value, m.Of(out[b]).Value
		if x != y {
			return x > y
		}
		return out[a].ProductCode < out[b].ProductCode
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// Growth is a product's relative year_sum change over a span of months.
type Growth struct {
	ProductCode string  `json:"product_code"`
	Rate        float64 `json:"rate"`
}

// TopGrowth ranks products by year_sum(end)/year_sum(end-window) - 1.
// Products without both values, or with a non-positive base, are skipped.
func TopGrowth(rows []YearRecord, end Month, window, top int) []Growth {
	start := end.Add(-window)
	type pair struct{ base, last Float }
	by := map[string]*pair{}
	for _, r := range rows {
		if r.Month != start && r.Month != end {
			continue
		}
		p := by[r.ProductCode]
		if p == nil {
			p = &pair{}
			by[r.ProductCode] = p
		}
		if r.Month == start {
			p.base = r.YearSum
		} else {
			p.last = r.YearSum
		}
	}
	var out []Growth
	for code, p := range by {
		if !p.base.Valid || !p.last.Valid || p.base.Value <= 0 {
			continue
		}
		rate := p.last.Value/p.base.Value - 1
		if math.IsNaN(rate) || math.IsInf(rate, 0) {
			continue
		}
		out = append(out, Growth{ProductCode: code, Rate: rate})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Rate != out[b].Rate {
			return out[a].Rate > out[b].Rate
		}
		return out[a].ProductCode < out[b].ProductCode
	})
	if top >= 0 && len(out) > top {
		out = out[:top]
	}
	return out
}

// TopGrowthCodes returns the codes of TopGrowth.
func TopGrowthCodes(rows []YearRecord, end Month, window, top int) []string {
	g := TopGrowth(rows, end, window, top)
	codes := make([]string, len(g))
	for i, x := range g {
		codes[i] = x.ProductCode
	}
	return codes
}
