package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// AlertThresholds holds the trigger levels; a null threshold is disabled.
type AlertThresholds struct {
	YoY   Float
	Delta Float
	Slope Float
}

// DefaultAlertThresholds returns yoy -10%, delta -300000 and slope -1.0.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{YoY: Some(-0.10), Delta: Some(-300000), Slope: Some(-1.0)}
}

// AlertRecord is one product breaching at least one threshold.
type AlertRecord struct {
	ProductCode string   `json:"product_code"`
	ProductName string   `json:"product_name"`
	Month       Month    `json:"month"`
	YearSum     Float    `json:"year_sum"`
	YoY         Float    `json:"yoy"`
	Delta       Float    `json:"delta"`
	SlopeBeta   Float    `json:"slope_beta"`
	Metrics     []string `json:"metrics"`
	Reason      string   `json:"reason"`
}

// BuildAlerts flags products at end whose yoy, delta or slope_beta is at or
// below its threshold. Null values and null thresholds never trigger.
// Alerts are sorted by code.
func BuildAlerts(rows []YearRecord, end Month, th AlertThresholds) []AlertRecord {
	var out []AlertRecord
	for _, r := range rows {
		if r.Month != end {
			continue
		}
		var metrics, reasons []string
		check := func(m Metric, v, limit Float, format func(float64) string) {
			if v.Valid && limit.Valid && v.Value <= limit.Value {
				metrics = append(metrics, string(m))
				reasons = append(reasons, fmt.Sprintf("%s %s <= %s", m, format(v.Value), format(limit.Value)))
			}
		}
		check(MetricYoY, r.YoY, th.YoY, formatPercent)
		check(MetricDelta, r.Delta, th.Delta, formatAmount)
		check(MetricSlopeBeta, r.SlopeBeta, th.Slope, formatSlope)
		if len(metrics) == 0 {
			continue
		}
		out = append(out, AlertRecord{
			ProductCode: r.ProductCode,
			ProductName: r.ProductName,
			Month:       r.Month,
			YearSum:     r.YearSum,
			YoY:         r.YoY,
			Delta:       r.Delta,
			SlopeBeta:   r.SlopeBeta,
			Metrics:     metrics,
			Reason:      strings.Join(reasons, "; "),
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].ProductCode < out[b].ProductCode })
	return out
}

func formatPercent(v float64) string { return fmt.Sprintf("%.1f%%", v*100) }

func formatAmount(v float64) string { return fmt.Sprintf("%.0f", v) }

func formatSlope(v float64) string { return fmt.Sprintf("%.2f", v) }
