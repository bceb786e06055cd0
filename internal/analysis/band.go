package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Band selects a [low, high] year_sum range from a snapshot.
// Each mode is its own type; build them with the New* constructors.
type Band interface {
	// Mode names the selection mode.
	Mode() string
	resolve(values []float64, byCode map[string]Float) (low, high float64, ok bool)
}

var errBandParams = errors.New("invalid band parameters")

// AmountBand passes explicit bounds through.
type AmountBand struct{ Low, High float64 }

// TwoProductsBand spans the year_sum of two products, in either order.
type TwoProductsBand struct{ A, B string }

// PercentileBand spans two percentiles (0..100) of the snapshot's year_sum.
type PercentileBand struct{ Low, High float64 }

// RankBand spans the year_sum values at two 1-based ranks, 1 being the largest.
type RankBand struct{ Low, High int }

// TargetNearBand centers on one product's year_sum. Width is an amount, or a
// fraction of the target's year_sum when Relative is set.
type TargetNearBand struct {
	Code     string
	Width    float64
	Relative bool
}

func (AmountBand) Mode() string      { return "amount" }
func (TwoProductsBand) Mode() string { return "two_products" }
func (PercentileBand) Mode() string  { return "percentile" }
func (RankBand) Mode() string        { return "rank" }
func (TargetNearBand) Mode() string  { return "target_near" }

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NewAmountBand requires finite bounds with low <= high.
func NewAmountBand(low, high float64) (AmountBand, error) {
	if !finite(low, high) || low > high {
		return AmountBand{}, fmt.Errorf("amount band [%g, %g]: %w", low, high, errBandParams)
	}
	return AmountBand{Low: low, High: high}, nil
}

// NewTwoProductsBand requires two non-empty codes.
func NewTwoProductsBand(a, b string) (TwoProductsBand, error) {
	if a == "" || b == "" {
		return TwoProductsBand{}, fmt.Errorf("two products band needs two codes: %w", errBandParams)
	}
	return TwoProductsBand{A: a, B: b}, nil
}

// NewPercentileBand requires 0 <= low <= high <= 100.
func NewPercentileBand(low, high float64) (PercentileBand, error) {
	if !finite(low, high) || low < 0 || high > 100 || low > high {
		return PercentileBand{}, fmt.Errorf("percentile band [%g, %g]: %w", low, high, errBandParams)
	}
	return PercentileBand{Low: low, High: high}, nil
}

// NewRankBand requires ranks of at least 1. Order does not matter.
func NewRankBand(a, b int) (RankBand, error) {
	if a < 1 || b < 1 {
		return RankBand{}, fmt.Errorf("rank band [%d, %d]: %w", a, b, errBandParams)
	}
	if a > b {
		a, b = b, a
	}
	return RankBand{Low: a, High: b}, nil
}

// NewTargetNearBand requires a code and a finite non-negative width.
func NewTargetNearBand(code string, width float64, relative bool) (TargetNearBand, error) {
	if code == "" || !finite(width) || width < 0 {
		return TargetNearBand{}, fmt.Errorf("target band %q width %g: %w", code, width, errBandParams)
	}
	return TargetNearBand{Code: code, Width: width, Relative: relative}, nil
}

func (b AmountBand) resolve([]float64, map[string]Float) (float64, float64, bool) {
	return b.Low, b.High, true
}

func (b TwoProductsBand) resolve(_ []float64, byCode map[string]Float) (float64, float64, bool) {
	x, y := byCode[b.A], byCode[b.B]
	if !x.Valid || !y.Valid {
		return 0, 0, false
	}
	return math.Min(x.Value, y.Value), math.Max(x.Value, y.Value), true
}

func (b PercentileBand) resolve(values []float64, _ map[string]Float) (float64, float64, bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	sorted := sortedCopy(values)
	return quantile(sorted, b.Low/100), quantile(sorted, b.High/100), true
}

func (b RankBand) resolve(values []float64, _ map[string]Float) (float64, float64, bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	desc := sortedCopy(values)
	sort.Sort(sort.Reverse(sort.Float64Slice(desc)))
	at := func(rank int) float64 {
		if rank > len(desc) {
			rank = len(desc)
		}
		return desc[rank-1]
	}
	// The lower rank number holds the larger value.
	return at(b.High), at(b.Low), true
}

func (b TargetNearBand) resolve(_ []float64, byCode map[string]Float) (float64, float64, bool) {
	t := byCode[b.Code]
	if !t.Valid {
		return 0, 0, false
	}
	w := b.Width
	if b.Relative {
		w = math.Abs(t.Value) * b.Width
	}
	return t.Value - w, t.Value + w, true
}

// ResolveBand computes the band's bounds over the snapshot's non-null year_sum
// values. ok is false for an empty snapshot or an unknown target product.
func ResolveBand(snapshot []YearRecord, band Band) (low, high float64, ok bool) {
	if band == nil {
		return 0, 0, false
	}
	var values []float64
	byCode := make(map[string]Float, len(snapshot))
	for _, r := range snapshot {
		byCode[r.ProductCode] = r.YearSum
		if r.YearSum.Valid {
			values = append(values, r.YearSum.Value)
		}
	}
	if len(values) == 0 {
		return 0, 0, false
	}
	return band.resolve(values, byCode)
}

// FilterProductsByBand returns the codes whose year_sum lies in [low, high],
// largest first, ties by code.
func FilterProductsByBand(snapshot []YearRecord, low, high float64) []string {
	var hit []YearRecord
	for _, r := range snapshot {
		if r.YearSum.Valid && r.YearSum.Value >= low && r.YearSum.Value <= high {
			hit = append(hit, r)
		}
	}
	sort.SliceStable(hit, func(a, b int) bool {
		if hit[a].YearSum.Value != hit[b].YearSum.Value {
			return hit[a].YearSum.Value > hit[b].YearSum.Value
		}
		return hit[a].ProductCode < hit[b].ProductCode
	})
	codes := make([]string, len(hit))
	for i, r := range hit {
		codes[i] = r.ProductCode
	}
	return codes
}

// SelectBand resolves band and filters the snapshot in one step.
// An unresolvable band selects nothing.
func SelectBand(snapshot []YearRecord, band Band) []string {
	low, high, ok := ResolveBand(snapshot, band)
	if !ok {
		return []string{}
	}
	return FilterProductsByBand(snapshot, low, high)
}
