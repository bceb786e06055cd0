package analysis

import (
	"encoding/json"
	"math"
	"strconv"
)

// Float is a float64 that may be undefined. The zero value is null.
//
// Null means "not computable" on results and "absent" on inputs; the two are
// kept apart on MonthlyRecord by IsMissing and only collapse at export time.
type Float struct {
	Value float64
	Valid bool
}

// Null is the undefined Float.
var Null = Float{}

// Some wraps v. NaN and ±Inf are treated as null so they never leak into tables.
func Some(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Null
	}
	return Float{Value: v, Valid: true}
}

// Or returns the value, or def when null.
func (f Float) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.Value
}

// Ptr returns nil for null.
func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// String renders null as an empty string, matching CSV export.
func (f Float) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Null
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

// Policy controls how absent monthly cells are treated.
type Policy string

const (
	// PolicyZeroFill fills absent months with 0 and marks them missing.
	PolicyZeroFill Policy = "zero_fill"
	// PolicyMarkMissing leaves absent months null; any window touching one is null.
	PolicyMarkMissing Policy = "mark_missing"
)

// ParsePolicy accepts the config spelling of a policy.
func ParsePolicy(s string) (Policy, bool) {
	switch Policy(s) {
	case PolicyZeroFill, PolicyMarkMissing:
		return Policy(s), true
	}
	return "", false
}

// MonthlyRecord is one canonical long-form observation.
type MonthlyRecord struct {
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Month       Month  `json:"month"`
	Amount      Float  `json:"amount"`
	IsMissing   bool   `json:"is_missing"`
}

// YearRecord is one row of the year-rolling table, keyed by (ProductCode, Month).
type YearRecord struct {
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Month       Month  `json:"month"`
	Amount      Float  `json:"amount"`
	YearSum     Float  `json:"year_sum"`
	YoY         Float  `json:"yoy"`
	Delta       Float  `json:"delta"`
	SlopeBeta   Float  `json:"slope_beta"`
	Slope6M     Float  `json:"slope6m"`
	Std6M       Float  `json:"std6m"`
	HHIShare    Float  `json:"hhi_share"`
}

// Metric names a numeric column of the year-rolling table.
type Metric string

const (
	MetricAmount    Metric = "amount"
	MetricYearSum   Metric = "year_sum"
	MetricYoY       Metric = "yoy"
	MetricDelta     Metric = "delta"
	MetricSlopeBeta Metric = "slope_beta"
	MetricSlope6M   Metric = "slope6m"
	MetricStd6M     Metric = "std6m"
	MetricHHIShare  Metric = "hhi_share"
)

// Metrics lists every metric in table column order.
var Metrics = []Metric{MetricAmount, MetricYearSum, MetricYoY, MetricDelta, MetricSlopeBeta, MetricSlope6M, MetricStd6M, MetricHHIShare}

// ParseMetric resolves a metric by column name.
func ParseMetric(s string) (Metric, bool) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Of returns the metric value of r.
func (m Metric) Of(r YearRecord) Float {
	switch m {
	case MetricAmount:
		return r.Amount
	case MetricYearSum:
		return r.YearSum
	case MetricYoY:
		return r.YoY
	case MetricDelta:
		return r.Delta
	case MetricSlopeBeta:
		return r.SlopeBeta
	case MetricSlope6M:
		return r.Slope6M
	case MetricStd6M:
		return r.Std6M
	case MetricHHIShare:
		return r.HHIShare
	}
	return Null
}
