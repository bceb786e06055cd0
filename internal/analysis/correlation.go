package analysis

import (
	"fmt"
	"math"
	"sort"
)

// CorrMethod selects the correlation coefficient.
type CorrMethod string

const (
	Pearson  CorrMethod = "pearson"
	Spearman CorrMethod = "spearman"
)

// ParseCorrMethod accepts "pearson" or "spearman".
func ParseCorrMethod(s string) (CorrMethod, bool) {
	switch CorrMethod(s) {
	case Pearson, Spearman:
		return CorrMethod(s), true
	}
	return "", false
}

// DefaultCorrMinPeriods is the overlap required between two products in SKU mode.
const DefaultCorrMinPeriods = 3

// Frame is a small column-oriented table of nullable values.
// Index labels rows (product codes in metric mode, months in SKU mode).
type Frame struct {
	Index   []string
	Columns []string
	Data    map[string][]Float
}

// NewFrame returns an empty frame over the given row labels.
func NewFrame(index []string) *Frame {
	return &Frame{Index: index, Data: map[string][]Float{}}
}

// Set adds or replaces a column; vals must have one entry per index label.
func (f *Frame) Set(col string, vals []Float) {
	if _, ok := f.Data[col]; !ok {
		f.Columns = append(f.Columns, col)
	}
	f.Data[col] = vals
}

// Column returns a column, or nil when absent.
func (f *Frame) Column(col string) []Float { return f.Data[col] }

// Count returns the number of non-null values in col.
func (f *Frame) Count(col string) int {
	n := 0
	for _, v := range f.Data[col] {
		if v.Valid {
			n++
		}
	}
	return n
}

// Clone deep-copies f.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Index:   append([]string(nil), f.Index...),
		Columns: append([]string(nil), f.Columns...),
		Data:    make(map[string][]Float, len(f.Data)),
	}
	for k, v := range f.Data {
		out.Data[k] = append([]Float(nil), v...)
	}
	return out
}

// CorrelationPair is the correlation of two dimensions.
type CorrelationPair struct {
	X           string `json:"x"`
	Y           string `json:"y"`
	R           Float  `json:"r"`
	CILow       Float  `json:"ci_low"`
	CIHigh      Float  `json:"ci_high"`
	N           int    `json:"n"`
	Significant bool   `json:"significant"`
}

// CorrOptions configures CorrTable.
type CorrOptions struct {
	Method CorrMethod
	// Pairwise marks SKU mode; both modes use pairwise-complete rows.
	Pairwise   bool
	MinPeriods int
	Workers    int
}

// CorrTable correlates every unordered pair of dims in the order given (all
// frame columns when dims is empty). Each pair uses the rows where both values
// are present. R is null when that overlap is below max(MinPeriods, 2) or a side
// is constant; in SKU mode such pairs are dropped from the result.
func CorrTable(f *Frame, dims []string, opt CorrOptions) []CorrelationPair {
	if len(dims) == 0 {
		dims = f.Columns
	}
	var cols []string
	for _, d := range dims {
		if _, ok := f.Data[d]; ok {
			cols = append(cols, d)
		}
	}
	minN := opt.MinPeriods
	if minN < 2 {
		minN = 2
	}
	type cell struct{ i, j int }
	var cells []cell
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			cells = append(cells, cell{i, j})
		}
	}
	pairs := make([]CorrelationPair, len(cells))
	parallelFor(len(cells), opt.Workers, func(k int) {
		a, b := f.Data[cols[cells[k].i]], f.Data[cols[cells[k].j]]
		p := CorrelationPair{X: cols[cells[k].i], Y: cols[cells[k].j]}
		var x, y []float64
		for r := 0; r < len(a) && r < len(b); r++ {
			if a[r].Valid && b[r].Valid {
				x = append(x, a[r].Value)
				y = append(y, b[r].Value)
			}
		}
		p.N = len(x)
		if p.N >= minN {
			if opt.Method == Spearman {
				x, y = averageRanks(x), averageRanks(y)
			}
			if r, ok := pearson(x, y); ok {
				p.R = Some(r)
				p.CILow, p.CIHigh = FisherCI(r, p.N)
				p.Significant = p.CILow.Valid && (p.CILow.Value > 0 || p.CIHigh.Value < 0)
			}
		}
		pairs[k] = p
	})
	if !opt.Pairwise {
		return pairs
	}
	out := pairs[:0]
	for _, p := range pairs {
		if p.R.Valid {
			out = append(out, p)
		}
	}
	return out
}

// FisherCI returns the 95% confidence interval of r via Fisher's z-transform.
// n <= 3 gives a null interval; |r| = 1 gives the degenerate interval [r, r].
func FisherCI(r float64, n int) (low, high Float) {
	if n <= 3 || math.IsNaN(r) {
		return Null, Null
	}
	if r >= 1 || r <= -1 {
		r = math.Max(-1, math.Min(1, r))
		return Some(r), Some(r)
	}
	z := math.Atanh(r)
	se := 1 / math.Sqrt(float64(n-3))
	lo, hi := math.Tanh(z-1.96*se), math.Tanh(z+1.96*se)
	// tanh can round past r for tiny se.
	return Some(math.Min(lo, r)), Some(math.Max(hi, r))
}

// LineFit is an OLS line y = Slope*x + Intercept with its coefficient of determination.
type LineFit struct {
	Slope     Float `json:"slope"`
	Intercept Float `json:"intercept"`
	R2        Float `json:"r2"`
	N         int   `json:"n"`
}

// FitLine fits y on x over the rows where both are present.
func FitLine(x, y []Float) LineFit {
	var xs, ys []float64
	for i := 0; i < len(x) && i < len(y); i++ {
		if x[i].Valid && y[i].Valid {
			xs = append(xs, x[i].Value)
			ys = append(ys, y[i].Value)
		}
	}
	fit := LineFit{N: len(xs)}
	slope, intercept, ok := olsFit(xs, ys)
	if !ok {
		return fit
	}
	fit.Slope, fit.Intercept = Some(slope), Some(intercept)
	my := mean(ys)
	var ssRes, ssTot float64
	for i := range xs {
		e := ys[i] - (intercept + slope*xs[i])
		ssRes += e * e
		d := ys[i] - my
		ssTot += d * d
	}
	if ssTot > 0 {
		fit.R2 = Some(math.Max(0, 1-ssRes/ssTot))
	}
	return fit
}

// WinsorizeFrame clips each listed column to its p and 1-p quantiles.
// p is a fraction, clamped to [0, 0.5]; 0 returns an unmodified copy.
func WinsorizeFrame(f *Frame, cols []string, p float64) *Frame {
	out := f.Clone()
	p = math.Max(0, math.Min(0.5, p))
	if p == 0 {
		return out
	}
	for _, c := range cols {
		vals := out.Data[c]
		var present []float64
		for _, v := range vals {
			if v.Valid {
				present = append(present, v.Value)
			}
		}
		if len(present) == 0 {
			continue
		}
		sorted := sortedCopy(present)
		lo, hi := quantile(sorted, p), quantile(sorted, 1-p)
		for i, v := range vals {
			if v.Valid {
				vals[i] = Some(math.Max(lo, math.Min(hi, v.Value)))
			}
		}
	}
	return out
}

// MaybeLog1p applies log(1+x) to the listed columns when enabled. A column
// holding any negative value is left untouched as a whole and reported in
// the returned warnings.
func MaybeLog1p(f *Frame, cols []string, enabled bool) (*Frame, []string) {
	out := f.Clone()
	if !enabled {
		return out, nil
	}
	var warnings []string
	for _, c := range cols {
		vals, ok := out.Data[c]
		if !ok {
			continue
		}
		negative := false
		for _, v := range vals {
			if v.Valid && v.Value < 0 {
				negative = true
				break
			}
		}
		if negative {
			warnings = append(warnings, fmt.Sprintf("log1p skipped for %s: column has negative values", c))
			continue
		}
		for i, v := range vals {
			if v.Valid {
				vals[i] = Some(math.Log1p(v.Value))
			}
		}
	}
	return out, warnings
}

// Insight is a selected correlation pair with display labels.
type Insight struct {
	CorrelationPair
	XLabel    string `json:"x_label"`
	YLabel    string `json:"y_label"`
	Strength  string `json:"strength"`
	Direction string `json:"direction"`
}

// CorrStrength buckets |r| as weak, moderate, strong or very strong.
func CorrStrength(r float64) string {
	a := math.Abs(r)
	switch {
	case a < 0.2:
		return "weak"
	case a < 0.5:
		return "moderate"
	case a < 0.8:
		return "strong"
	}
	return "very strong"
}

// NarrateTopInsights picks up to k computed pairs, significant ones first,
// then by |r| descending. Labels map dimensions to display names.
func NarrateTopInsights(pairs []CorrelationPair, labels map[string]string, k int) []Insight {
	var cand []CorrelationPair
	for _, p := range pairs {
		if p.R.Valid {
			cand = append(cand, p)
		}
	}
	sort.SliceStable(cand, func(a, b int) bool {
		if cand[a].Significant != cand[b].Significant {
			return cand[a].Significant
		}
		ra, rb := math.Abs(cand[a].R.Value), math.Abs(cand[b].R.Value)
		if ra != rb {
			return ra > rb
		}
		if cand[a].X != cand[b].X {
			return cand[a].X < cand[b].X
		}
		return cand[a].Y < cand[b].Y
	})
	if k > 0 && len(cand) > k {
		cand = cand[:k]
	}
	label := func(d string) string {
		if l, ok := labels[d]; ok && l != "" {
			return l
		}
		return d
	}
	out := make([]Insight, len(cand))
	for i, p := range cand {
		dir := "positive"
		if p.R.Value < 0 {
			dir = "negative"
		}
		out[i] = Insight{CorrelationPair: p, XLabel: label(p.X), YLabel: label(p.Y), Strength: CorrStrength(p.R.Value), Direction: dir}
	}
	return out
}

// SnapshotFrame lays a snapshot out with one row per product and one column per metric.
func SnapshotFrame(snapshot []YearRecord, metrics []Metric) *Frame {
	index := make([]string, len(snapshot))
	for i, r := range snapshot {
		index[i] = r.ProductCode
	}
	f := NewFrame(index)
	for _, m := range metrics {
		vals := make([]Float, len(snapshot))
		for i, r := range snapshot {
			vals[i] = m.Of(r)
		}
		f.Set(string(m), vals)
	}
	return f
}

// PivotMetric lays metric out with one row per month and one column per code.
func PivotMetric(rows []YearRecord, metric Metric, months []Month, codes []string) *Frame {
	index := make([]string, len(months))
	pos := make(map[Month]int, len(months))
	for i, m := range months {
		index[i] = m.String()
		pos[m] = i
	}
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	cols := map[string][]Float{}
	for _, r := range rows {
		i, ok := pos[r.Month]
		if !ok || !want[r.ProductCode] {
			continue
		}
		if cols[r.ProductCode] == nil {
			cols[r.ProductCode] = make([]Float, len(months))
		}
		cols[r.ProductCode][i] = metric.Of(r)
	}
	f := NewFrame(index)
	for _, c := range codes {
		if v, ok := cols[c]; ok {
			f.Set(c, v)
		}
	}
	return f
}

// SKUFrameOptions selects the products and months of an SKU correlation frame.
type SKUFrameOptions struct {
	Metric     Metric
	End        Month
	Period     int
	TopN       int
	MinPeriods int
}

// SKUFrame pivots opt.Metric over the opt.Period months ending at opt.End for
// the opt.TopN largest products by year_sum at End, then drops products with
// fewer than MinPeriods values.
func SKUFrame(rows []YearRecord, opt SKUFrameOptions) *Frame {
	all := Months(rows)
	var months []Month
	for _, m := range all {
		if m <= opt.End && (opt.Period <= 0 || m > opt.End.Add(-opt.Period)) {
			months = append(months, m)
		}
	}
	snap := LatestSnapshot(rows, opt.End)
	var codes []string
	for _, r := range snap {
		if opt.TopN > 0 && len(codes) >= opt.TopN {
			break
		}
		if r.YearSum.Valid {
			codes = append(codes, r.ProductCode)
		}
	}
	f := PivotMetric(rows, opt.Metric, months, codes)
	minN := opt.MinPeriods
	if minN < 1 {
		minN = 1
	}
	out := NewFrame(f.Index)
	for _, c := range f.Columns {
		if f.Count(c) >= minN {
			out.Set(c, f.Data[c])
		}
	}
	return out
}
