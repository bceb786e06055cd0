package analysis

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultWindow is the trailing month count of a year_sum.
const DefaultWindow = 12

// ComputeYearRolling builds the year-rolling table from long-form records.
//
// year_sum(M) covers months M-window+1..M and is null while that span reaches
// before the product's first observed month. Under PolicyMarkMissing any
// missing month inside the span makes the sum null; under PolicyZeroFill it
// contributes 0. Sums and deltas are accumulated in decimal so reruns and
// summation order cannot drift. Rows are sorted by code then month.
func ComputeYearRolling(records []MonthlyRecord, window int, policy Policy) ([]YearRecord, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	byCode := map[string]map[Month]monthObs{}
	// The first non-empty name in input order names the product.
	names := map[string]string{}
	var codes []string
	for _, r := range records {
		m, ok := byCode[r.ProductCode]
		if !ok {
			m = map[Month]monthObs{}
			byCode[r.ProductCode] = m
			codes = append(codes, r.ProductCode)
		}
		if names[r.ProductCode] == "" {
			names[r.ProductCode] = r.ProductName
		}
		o := monthObs{amount: r.Amount, missing: r.IsMissing || !r.Amount.Valid}
		if prev, dup := m[r.Month]; dup && !prev.missing {
			// Duplicate (code, month) keys are merged the way Normalize merges rows.
			if !o.missing {
				o.amount = Some(prev.amount.Value + o.amount.Value)
			} else {
				o = prev
			}
		}
		m[r.Month] = o
	}
	sort.Strings(codes)

	var out []YearRecord
	for _, code := range codes {
		series := byCode[code]
		months := make([]Month, 0, len(series))
		for m := range series {
			months = append(months, m)
		}
		name := names[code]
		sort.Slice(months, func(a, b int) bool { return months[a] < months[b] })

		firstObs, observed := Month(0), false
		for _, m := range months {
			if !series[m].missing {
				firstObs, observed = m, true
				break
			}
		}

		sums := map[Month]decimal.Decimal{}
		for _, m := range months {
			o := series[m]
			rec := YearRecord{ProductCode: code, ProductName: name, Month: m, Amount: o.amount}
			if o.missing {
				rec.Amount = Null
				if policy == PolicyZeroFill {
					rec.Amount = Some(0)
				}
			}
			start := m.Add(1 - window)
			if observed && start >= firstObs {
				if sum, ok := windowSum(series, start, m, policy); ok {
					sums[m] = sum
					rec.YearSum = Some(sum.InexactFloat64())
				}
			}
			if cur, ok := sums[m]; ok {
				if prev, ok := sums[m.Add(-1)]; ok {
					rec.Delta = Some(cur.Sub(prev).InexactFloat64())
				}
			}
			out = append(out, rec)
		}
		// yoy works on the float year_sum values so the identity holds exactly on the output.
		pos := map[Month]int{}
		base := len(out) - len(months)
		for i := base; i < len(out); i++ {
			pos[out[i].Month] = i
		}
		for i := base; i < len(out); i++ {
			cur := out[i].YearSum
			j, ok := pos[out[i].Month.Add(-12)]
			if !cur.Valid || !ok {
				continue
			}
			if den := out[j].YearSum; den.Valid && den.Value != 0 {
				out[i].YoY = Some(cur.Value/den.Value - 1)
			}
		}
	}
	applyShares(out)
	return out, nil
}

type monthObs struct {
	amount  Float
	missing bool
}

func windowSum(series map[Month]monthObs, start, end Month, policy Policy) (decimal.Decimal, bool) {
	sum := decimal.Zero
	for m := start; m <= end; m++ {
		o, ok := series[m]
		if !ok || o.missing {
			if policy == PolicyZeroFill {
				continue
			}
			return decimal.Zero, false
		}
		sum = sum.Add(decimal.NewFromFloat(o.amount.Value))
	}
	return sum, true
}

// applyShares sets HHIShare as each product's share of the month's total year_sum.
func applyShares(rows []YearRecord) {
	totals := map[Month]decimal.Decimal{}
	for _, r := range rows {
		if r.YearSum.Valid {
			totals[r.Month] = totals[r.Month].Add(decimal.NewFromFloat(r.YearSum.Value))
		}
	}
	for i := range rows {
		t, ok := totals[rows[i].Month]
		if !ok || t.IsZero() || !rows[i].YearSum.Valid {
			continue
		}
		rows[i].HHIShare = Some(rows[i].YearSum.Value / t.InexactFloat64())
	}
}

// Months returns the distinct months of rows in ascending order.
func Months(rows []YearRecord) []Month {
	seen := map[Month]bool{}
	var out []Month
	for _, r := range rows {
		if !seen[r.Month] {
			seen[r.Month] = true
			out = append(out, r.Month)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// LatestMonth returns the most recent month that has at least one defined year_sum.
func LatestMonth(rows []YearRecord) (Month, bool) {
	var best Month
	found := false
	for _, r := range rows {
		if r.YearSum.Valid && (!found || r.Month > best) {
			best, found = r.Month, true
		}
	}
	return best, found
}
