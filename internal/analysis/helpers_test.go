package analysis

import (
	"math"
	"time"
)

func jan(year int) Month { return NewMonth(year, time.January) }

// monthly builds consecutive observed records starting at start.
func monthly(code string, start Month, amounts ...float64) []MonthlyRecord {
	out := make([]MonthlyRecord, len(amounts))
	for i, a := range amounts {
		out[i] = MonthlyRecord{ProductCode: code, ProductName: "name " + code, Month: start.Add(i), Amount: Some(a)}
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func rowAt(rows []YearRecord, code string, m Month) YearRecord {
	for _, r := range rows {
		if r.ProductCode == code && r.Month == m {
			return r
		}
	}
	return YearRecord{}
}

func nan() float64 { return math.NaN() }
