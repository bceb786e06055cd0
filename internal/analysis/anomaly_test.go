package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(start Month, vals ...float64) []SeriesPoint {
	out := make([]SeriesPoint, len(vals))
	for i, v := range vals {
		out[i] = SeriesPoint{Month: start.Add(i), Value: Some(v)}
	}
	return out
}

func TestDetectLinearAnomaliesFlatThenSpike(t *testing.T) {
	vals := append(repeat(100, 12), 1000)
	series := points(jan(2023), vals...)

	z := DetectLinearAnomalies(series, 6, 3.0, false)
	require.Len(t, z, 7)
	for _, a := range z[:6] {
		assert.Equal(t, 0.0, a.Score)
		assert.False(t, a.IsAnomaly)
	}
	spike := z[6]
	assert.Equal(t, jan(2023).Add(12), spike.Month)
	assert.Greater(t, spike.Score, 3.0)
	assert.True(t, spike.IsAnomaly)
	assert.InDelta(t, 900, spike.Residual, 1e-9)

	mad := DetectLinearAnomalies(series, 6, 3.5, true)
	require.Len(t, mad, 7)
	last := mad[6]
	assert.False(t, math.IsNaN(last.Score))
	assert.False(t, math.IsInf(last.Score, 0))
	assert.True(t, last.IsAnomaly)
	assert.True(t, last.Robust)
}

func TestDetectLinearAnomaliesFlatWindowSmallStep(t *testing.T) {
	small := DetectLinearAnomalies(points(jan(2023), 100, 100, 100, 100, 100, 100, 103), 6, 3.0, false)
	require.Len(t, small, 1)
	assert.InDelta(t, 0.6, small[0].Score, 1e-9)
	assert.False(t, small[0].IsAnomaly)

	large := DetectLinearAnomalies(points(jan(2023), 100, 100, 100, 100, 100, 100, 116), 6, 3.0, false)
	require.Len(t, large, 1)
	assert.InDelta(t, 3.2, large[0].Score, 1e-9)
	assert.True(t, large[0].IsAnomaly)
}

func TestDetectLinearAnomaliesRobustIgnoresOutlierInWindow(t *testing.T) {
	// The 150 inside the window inflates the residual stddev but barely moves the MAD.
	vals := []float64{100, 101, 99, 100, 150, 99, 100, 101, 99, 100, 115}
	series := points(jan(2023), vals...)

	z := DetectLinearAnomalies(series, 10, 3.0, false)
	require.Len(t, z, 1)
	assert.Less(t, math.Abs(z[0].Score), 1.0)
	assert.False(t, z[0].IsAnomaly)

	mad := DetectLinearAnomalies(series, 10, 3.5, true)
	require.Len(t, mad, 1)
	assert.Greater(t, mad[0].Score, 6.0)
	assert.True(t, mad[0].IsAnomaly)
	assert.Equal(t, z[0].Residual, mad[0].Residual)
}

func TestDetectLinearAnomaliesTrendAndNoise(t *testing.T) {
	vals := []float64{100, 112, 119, 131, 140, 149, 161, 170, 178, 191, 200, 209, 221, 150}
	recs := DetectLinearAnomalies(points(jan(2022), vals...), 8, 3.0, false)
	require.Len(t, recs, 6)
	for _, a := range recs[:5] {
		assert.False(t, a.IsAnomaly, "month %s score %.2f", a.Month, a.Score)
	}
	drop := recs[5]
	assert.Less(t, drop.Score, -3.0)
	assert.True(t, drop.IsAnomaly)
	assert.Greater(t, drop.Expected, 220.0)
}

func TestDetectLinearAnomaliesPerfectLine(t *testing.T) {
	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = 1000 + 37.5*float64(i)
	}
	for _, a := range DetectLinearAnomalies(points(jan(2020), vals...), 5, 2.0, false) {
		assert.Equal(t, 0.0, a.Score)
	}
}

func TestDetectLinearAnomaliesInsufficientHistory(t *testing.T) {
	assert.Empty(t, DetectLinearAnomalies(points(jan(2023), 1, 2, 3), 3, 3, false))
	assert.Empty(t, DetectLinearAnomalies(points(jan(2023), 1, 2, 3, 4, 5), 1, 3, false))

	series := points(jan(2023), 1, 2, 3, 4)
	series[1].Value = Null
	assert.Empty(t, DetectLinearAnomalies(series, 3, 3, false))
	series = append(series, SeriesPoint{Month: jan(2023).Add(4), Value: Some(5)})
	assert.Len(t, DetectLinearAnomalies(series, 3, 3, false), 1)
}

func TestDetectLinearAnomaliesFlatZeroLevel(t *testing.T) {
	recs := DetectLinearAnomalies(points(jan(2023), 0, 0, 0, 0, 5), 4, 3, false)
	require.Len(t, recs, 1)
	assert.Equal(t, 0.0, recs[0].Score)
}

func TestDetectAnomaliesAcrossProducts(t *testing.T) {
	var recs []MonthlyRecord
	recs = append(recs, monthly("spike", jan(2023), append(repeat(100, 10), 900)...)...)
	recs = append(recs, monthly("dip", jan(2023), append(repeat(100, 10), 40)...)...)
	recs = append(recs, monthly("calm", jan(2023), repeat(100, 11)...)...)
	rows, err := ComputeYearRolling(recs, 1, PolicyZeroFill)
	require.NoError(t, err)

	opt := AnomalyOptions{Window: 6, Threshold: 3}
	got := DetectAnomalies(rows, opt)
	require.Len(t, got, 2)
	assert.Equal(t, "spike", got[0].ProductCode)
	assert.Equal(t, "name spike", got[0].ProductName)
	assert.Equal(t, "dip", got[1].ProductCode)
	assert.Equal(t, Some(900), got[0].YearSum)
	assert.Greater(t, math.Abs(got[0].Score), math.Abs(got[1].Score))

	opt.Workers = 3
	assert.Equal(t, got, DetectAnomalies(rows, opt))

	opt.Codes = []string{"dip", "calm"}
	only := DetectAnomalies(rows, opt)
	require.Len(t, only, 1)
	assert.Equal(t, "dip", only[0].ProductCode)

	sum := SummarizeAnomalies(got)
	assert.Equal(t, AnomalySummary{Total: 2, Products: 2, Up: 1, Down: 1}, sum)
}
