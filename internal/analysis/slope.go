package analysis

import (
	"math"
	"sort"
)

// DefaultLastN is the default trailing point count for slope_beta.
const DefaultLastN = 12

const shortSlopeWindow = 6

// SlopeOptions configures ComputeSlopes.
type SlopeOptions struct {
	// LastN trailing non-null year_sum points feed slope_beta; 0 means full history.
	LastN   int
	Workers int
}

// ComputeSlopes returns a copy of rows with SlopeBeta, Slope6M and Std6M set.
//
// Each value uses only the product's own non-null year_sum points up to and
// including the row's month; rows whose year_sum is null get null slopes.
// Output is identical for any Workers value.
func ComputeSlopes(rows []YearRecord, opt SlopeOptions) []YearRecord {
	out := cloneRows(rows)
	groups := groupByProduct(out)
	parallelFor(len(groups), opt.Workers, func(g int) {
		var vals []float64
		for _, i := range groups[g].idx {
			r := &out[i]
			r.SlopeBeta, r.Slope6M, r.Std6M = Null, Null, Null
			if !r.YearSum.Valid {
				continue
			}
			vals = append(vals, r.YearSum.Value)
			r.SlopeBeta = tailSlope(vals, opt.LastN)
			short := tail(vals, shortSlopeWindow)
			r.Slope6M = tailSlope(short, 0)
			if len(short) >= 2 {
				r.Std6M = Some(stddev(short))
			}
		}
	})
	return out
}

func tail(vals []float64, n int) []float64 {
	if n <= 0 || n >= len(vals) {
		return vals
	}
	return vals[len(vals)-n:]
}

func tailSlope(vals []float64, n int) Float {
	s, _, ok := indexSlope(tail(vals, n))
	if !ok {
		return Null
	}
	return Some(s)
}

// SlopeRow is one product's trend at an anchor month.
type SlopeRow struct {
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Points      int    `json:"points"`
	// SlopeYen is in amount units per month.
	SlopeYen Float `json:"slope_yen"`
	// SlopeRatio is SlopeYen over the window's mean year_sum.
	SlopeRatio Float `json:"slope_ratio"`
	// SlopeZ standardizes SlopeYen against every product at the same anchor.
	SlopeZ Float `json:"slope_z"`
}

// SlopesSnapshot evaluates SlopesSnapshotAt at the latest month with data.
func SlopesSnapshot(rows []YearRecord, n int) []SlopeRow {
	anchor, ok := LatestMonth(rows)
	if !ok {
		return nil
	}
	return SlopesSnapshotAt(rows, anchor, n)
}

// SlopesSnapshotAt fits each product's trailing n non-null year_sum values up
// to anchor (all of them when n <= 0). Products are sorted by code. Products
// with fewer than two points keep null slopes and are left out of the z
// reference distribution; with fewer than two such products slope_z is null.
func SlopesSnapshotAt(rows []YearRecord, anchor Month, n int) []SlopeRow {
	groups := groupByProduct(rows)
	out := make([]SlopeRow, len(groups))
	var slopes []float64
	for g, ps := range groups {
		var vals []float64
		for _, i := range ps.idx {
			if rows[i].Month <= anchor && rows[i].YearSum.Valid {
				vals = append(vals, rows[i].YearSum.Value)
			}
		}
		vals = tail(vals, n)
		row := SlopeRow{ProductCode: ps.code, ProductName: ps.name, Points: len(vals)}
		if s, _, ok := indexSlope(vals); ok {
			row.SlopeYen = Some(s)
			if m := mean(vals); m != 0 {
				row.SlopeRatio = Some(s / m)
			}
			slopes = append(slopes, s)
		}
		out[g] = row
	}
	if len(slopes) < 2 {
		return out
	}
	mu, sd := mean(slopes), stddev(slopes)
	for i := range out {
		if !out[i].SlopeYen.Valid {
			continue
		}
		if sd == 0 {
			out[i].SlopeZ = Some(0)
			continue
		}
		out[i].SlopeZ = Some((out[i].SlopeYen.Value - mu) / sd)
	}
	return out
}

// ShapeRow classifies the trailing window of one product's year_sum.
type ShapeRow struct {
	ProductCode    string `json:"product_code"`
	Points         int    `json:"points"`
	FirstHalfRate  Float  `json:"first_half_rate"`
	SecondHalfRate Float  `json:"second_half_rate"`
	Amplitude      Float  `json:"amplitude"`
	Mountain       bool   `json:"is_mountain"`
	Valley         bool   `json:"is_valley"`
}

// ShapeParams maps a 0..1 sensitivity and a slope window n to ShapeFlags
// arguments. Higher sensitivity lowers both thresholds.
func ShapeParams(sensitivity float64, n int) (window int, alphaRatio, ampRatio float64) {
	sensitivity = math.Max(0, math.Min(1, sensitivity))
	if n <= 0 {
		n = DefaultLastN
	}
	window = 2 * n
	if window < 6 {
		window = 6
	}
	return window, 0.02 * (1 - sensitivity), 0.06 * (1 - sensitivity)
}

// ShapeFlags splits each product's last window non-null year_sum points into
// halves and compares the mean period-over-period change rate of each half.
// A mountain rises by at least alphaRatio then falls by at least alphaRatio,
// with (max-min)/mean|y| of at least ampRatio; a valley is the reverse.
// Fewer than four points leave both flags false.
func ShapeFlags(rows []YearRecord, window int, alphaRatio, ampRatio float64) []ShapeRow {
	groups := groupByProduct(rows)
	out := make([]ShapeRow, 0, len(groups))
	for _, ps := range groups {
		var vals []float64
		for _, i := range ps.idx {
			if rows[i].YearSum.Valid {
				vals = append(vals, rows[i].YearSum.Value)
			}
		}
		pts := tail(vals, window)
		row := ShapeRow{ProductCode: ps.code, Points: len(pts)}
		if len(pts) >= 4 {
			half := len(pts) / 2
			r1, r2 := meanChangeRate(pts[:half]), meanChangeRate(pts[half:])
			amp := amplitude(pts)
			row.FirstHalfRate, row.SecondHalfRate, row.Amplitude = r1, r2, Some(amp)
			if r1.Valid && r2.Valid && amp >= ampRatio {
				row.Mountain = r1.Value > 0 && r1.Value >= alphaRatio && r2.Value < 0 && r2.Value <= -alphaRatio
				row.Valley = r1.Value < 0 && r1.Value <= -alphaRatio && r2.Value > 0 && r2.Value >= alphaRatio
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ProductCode < out[b].ProductCode })
	return out
}

func meanChangeRate(y []float64) Float {
	var rates []float64
	for i := 1; i < len(y); i++ {
		if y[i-1] == 0 {
			continue
		}
		rates = append(rates, (y[i]-y[i-1])/math.Abs(y[i-1]))
	}
	if len(rates) == 0 {
		return Null
	}
	return Some(mean(rates))
}

func amplitude(y []float64) float64 {
	lo, hi := y[0], y[0]
	var absSum float64
	for _, v := range y {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		absSum += math.Abs(v)
	}
	level := absSum / float64(len(y))
	if level == 0 {
		return 0
	}
	return (hi - lo) / level
}
