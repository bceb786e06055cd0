package analysis

import (
	"math"
	"sort"
)

// Default anomaly settings. Robust scores run higher for the same surprise,
// hence the larger MAD threshold.
const (
	DefaultAnomalyWindow       = 12
	DefaultAnomalyThreshold    = 3.0
	DefaultAnomalyMADThreshold = 3.5

	madScale = 0.6745
	// dispersionFloorRatio scales a flat window's level into a residual unit.
	dispersionFloorRatio = 0.05
)

// SeriesPoint is one value of a single-product series.
type SeriesPoint struct {
	Month Month
	Value Float
}

// AnomalyRecord is the score of one point against its trailing local trend.
type AnomalyRecord struct {
	ProductCode string  `json:"product_code,omitempty"`
	ProductName string  `json:"product_name,omitempty"`
	Month       Month   `json:"month"`
	Value       float64 `json:"value"`
	Expected    float64 `json:"expected"`
	Residual    float64 `json:"residual"`
	Score       float64 `json:"score"`
	Threshold   float64 `json:"threshold"`
	Robust      bool    `json:"robust"`
	IsAnomaly   bool    `json:"is_anomaly"`
	YearSum     Float   `json:"year_sum"`
	YoY         Float   `json:"yoy"`
	Delta       Float   `json:"delta"`
}

// DetectLinearAnomalies scores every non-null point that has at least window
// non-null predecessors. The line is fitted on those predecessors only and the
// residual at the point is divided by the window residuals' standard deviation,
// or by MAD/0.6745 when robust.
//
// A window with zero dispersion scores a matching point 0. A point that breaks
// a perfectly flat window is scaled against 5% of the window's mean absolute
// level instead, so small wiggles after a flat run stay below the usual
// thresholds; with a zero level too the score is 0.
func DetectLinearAnomalies(series []SeriesPoint, window int, threshold float64, robust bool) []AnomalyRecord {
	if window < 2 {
		return nil
	}
	var pts []SeriesPoint
	for _, p := range series {
		if p.Value.Valid {
			pts = append(pts, p)
		}
	}
	sort.SliceStable(pts, func(a, b int) bool { return pts[a].Month < pts[b].Month })

	var out []AnomalyRecord
	x := make([]float64, window)
	y := make([]float64, window)
	res := make([]float64, window)
	for t := window; t < len(pts); t++ {
		origin := pts[t-window].Month
		for k := 0; k < window; k++ {
			p := pts[t-window+k]
			x[k] = float64(p.Month - origin)
			y[k] = p.Value.Value
		}
		slope, intercept, ok := olsFit(x, y)
		if !ok {
			continue
		}
		var level float64
		for k := range res {
			res[k] = y[k] - (intercept + slope*x[k])
			level += math.Abs(y[k])
		}
		level /= float64(window)

		cur := pts[t].Value.Value
		expected := intercept + slope*float64(pts[t].Month-origin)
		residual := cur - expected

		var dispersion float64
		if robust {
			_, mad := medianMAD(res)
			dispersion = mad / madScale
		} else {
			dispersion = stddev(res)
		}
		eps := 1e-12 * math.Max(level, 1)
		var score float64
		switch {
		case dispersion > eps:
			score = residual / dispersion
		case math.Abs(residual) <= eps || level == 0:
			score = 0
		default:
			score = residual / (dispersionFloorRatio * level)
			if robust {
				score *= madScale
			}
		}
		out = append(out, AnomalyRecord{
			Month:     pts[t].Month,
			Value:     cur,
			Expected:  expected,
			Residual:  residual,
			Score:     score,
			Threshold: threshold,
			Robust:    robust,
			IsAnomaly: math.Abs(score) >= threshold,
		})
	}
	return out
}

// AnomalyOptions configures DetectAnomalies.
type AnomalyOptions struct {
	Window    int
	Threshold float64
	Robust    bool
	// Codes restricts detection to these products; empty means all.
	Codes   []string
	Workers int
}

// DetectAnomalies runs DetectLinearAnomalies on every product's year_sum series
// and returns only flagged points, largest |score| first.
func DetectAnomalies(rows []YearRecord, opt AnomalyOptions) []AnomalyRecord {
	groups := groupByProduct(rows)
	if len(opt.Codes) > 0 {
		keep := map[string]bool{}
		for _, c := range opt.Codes {
			keep[c] = true
		}
		filtered := groups[:0:0]
		for _, g := range groups {
			if keep[g.code] {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
	}
	perProduct := make([][]AnomalyRecord, len(groups))
	parallelFor(len(groups), opt.Workers, func(g int) {
		ps := groups[g]
		series := make([]SeriesPoint, len(ps.idx))
		byMonth := make(map[Month]YearRecord, len(ps.idx))
		for k, i := range ps.idx {
			series[k] = SeriesPoint{Month: rows[i].Month, Value: rows[i].YearSum}
			byMonth[rows[i].Month] = rows[i]
		}
		for _, a := range DetectLinearAnomalies(series, opt.Window, opt.Threshold, opt.Robust) {
			if !a.IsAnomaly {
				continue
			}
			r := byMonth[a.Month]
			a.ProductCode, a.ProductName = ps.code, ps.name
			a.YearSum, a.YoY, a.Delta = r.YearSum, r.YoY, r.Delta
			perProduct[g] = append(perProduct[g], a)
		}
	})
	var out []AnomalyRecord
	for _, recs := range perProduct {
		out = append(out, recs...)
	}
	sort.SliceStable(out, func(a, b int) bool {
		sa, sb := math.Abs(out[a].Score), math.Abs(out[b].Score)
		if sa != sb {
			return sa > sb
		}
		if out[a].ProductCode != out[b].ProductCode {
			return out[a].ProductCode < out[b].ProductCode
		}
		return out[a].Month < out[b].Month
	})
	return out
}

// AnomalySummary counts a flagged anomaly list.
type AnomalySummary struct {
	Total    int `json:"total"`
	Products int `json:"products"`
	Up       int `json:"up"`
	Down     int `json:"down"`
}

// SummarizeAnomalies counts anomalies, distinct products and score direction.
func SummarizeAnomalies(recs []AnomalyRecord) AnomalySummary {
	s := AnomalySummary{Total: len(recs)}
	seen := map[string]bool{}
	for _, r := range recs {
		if !seen[r.ProductCode] {
			seen[r.ProductCode] = true
			s.Products++
		}
		switch {
		case r.Score > 0:
			s.Up++
		case r.Score < 0:
			s.Down++
		}
	}
	return s
}
