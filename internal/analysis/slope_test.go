package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rolled(t *testing.T, recs []MonthlyRecord) []YearRecord {
	t.Helper()
	rows, err := ComputeYearRolling(recs, 1, PolicyZeroFill)
	require.NoError(t, err)
	return rows
}

func TestComputeSlopesLinear(t *testing.T) {
	rows := rolled(t, monthly("A", jan(2023), 100, 200, 300, 400, 500, 600, 700, 800))
	out := ComputeSlopes(rows, SlopeOptions{LastN: 3})

	assert.False(t, out[0].SlopeBeta.Valid)
	assert.False(t, out[0].Std6M.Valid)
	for _, r := range out[1:] {
		require.True(t, r.SlopeBeta.Valid)
		assert.InDelta(t, 100, r.SlopeBeta.Value, 1e-9)
		assert.InDelta(t, 100, r.Slope6M.Value, 1e-9)
	}
	// 300..800 has sample std sqrt(35000).
	assert.InDelta(t, 187.0829, out[7].Std6M.Value, 1e-4)
	// Input rows are not modified.
	assert.False(t, rows[7].SlopeBeta.Valid)
}

func TestComputeSlopesLastNWindow(t *testing.T) {
	rows := rolled(t, monthly("A", jan(2023), 0, 0, 0, 0, 10, 20))
	full := ComputeSlopes(rows, SlopeOptions{LastN: 0})
	short := ComputeSlopes(rows, SlopeOptions{LastN: 2})
	assert.InDelta(t, 10, short[5].SlopeBeta.Value, 1e-9)
	assert.Less(t, full[5].SlopeBeta.Value, 10.0)
}

func TestComputeSlopesParallelMatchesSequential(t *testing.T) {
	var recs []MonthlyRecord
	for i, code := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		vals := make([]float64, 18)
		for k := range vals {
			vals[k] = float64((i+1)*k*k%97) + float64(i)
		}
		recs = append(recs, monthly(code, jan(2022), vals...)...)
	}
	rows, err := ComputeYearRolling(recs, 3, PolicyZeroFill)
	require.NoError(t, err)

	seq := ComputeSlopes(rows, SlopeOptions{LastN: 6, Workers: 1})
	par := ComputeSlopes(rows, SlopeOptions{LastN: 6, Workers: 4})
	assert.Equal(t, seq, par)
}

func TestSlopesSnapshot(t *testing.T) {
	var recs []MonthlyRecord
	recs = append(recs, monthly("a", jan(2023), 100, 110, 120)...)
	recs = append(recs, monthly("b", jan(2023), 100, 120, 140)...)
	recs = append(recs, monthly("c", jan(2023), 100, 130, 160)...)
	recs = append(recs, monthly("d", jan(2023).Add(2), 500)...)
	rows := rolled(t, recs)

	snap := SlopesSnapshot(rows, 0)
	require.Len(t, snap, 4)
	byCode := map[string]SlopeRow{}
	for _, s := range snap {
		byCode[s.ProductCode] = s
	}
	assert.InDelta(t, 10, byCode["a"].SlopeYen.Value, 1e-9)
	assert.InDelta(t, 10.0/110, byCode["a"].SlopeRatio.Value, 1e-12)
	assert.InDelta(t, -1, byCode["a"].SlopeZ.Value, 1e-9)
	assert.InDelta(t, 0, byCode["b"].SlopeZ.Value, 1e-9)
	assert.InDelta(t, 1, byCode["c"].SlopeZ.Value, 1e-9)

	d := byCode["d"]
	assert.Equal(t, 1, d.Points)
	assert.False(t, d.SlopeYen.Valid)
	assert.False(t, d.SlopeRatio.Valid)
	assert.False(t, d.SlopeZ.Valid)

	early := SlopesSnapshotAt(rows, jan(2023).Add(1), 0)
	assert.InDelta(t, 20, early[1].SlopeYen.Value, 1e-9)
}

func TestSlopesSnapshotDegenerate(t *testing.T) {
	one := rolled(t, monthly("a", jan(2023), 1, 2, 3))
	snap := SlopesSnapshot(one, 0)
	require.Len(t, snap, 1)
	assert.True(t, snap[0].SlopeYen.Valid)
	assert.False(t, snap[0].SlopeZ.Valid)

	var recs []MonthlyRecord
	recs = append(recs, monthly("a", jan(2023), 1, 2, 3)...)
	recs = append(recs, monthly("b", jan(2023), 5, 6, 7)...)
	same := SlopesSnapshot(rolled(t, recs), 0)
	assert.Equal(t, Some(0), same[0].SlopeZ)
	assert.Equal(t, Some(0), same[1].SlopeZ)

	zeroMean := SlopesSnapshot(rolled(t, monthly("z", jan(2023), -1, 0, 1)), 0)
	assert.False(t, zeroMean[0].SlopeRatio.Valid)

	assert.Nil(t, SlopesSnapshot(nil, 3))
}

func TestShapeFlags(t *testing.T) {
	var recs []MonthlyRecord
	recs = append(recs, monthly("mtn", jan(2023), 100, 110, 120, 130, 120, 110, 100, 90)...)
	recs = append(recs, monthly("val", jan(2023), 130, 120, 110, 100, 110, 120, 130, 140)...)
	recs = append(recs, monthly("flat", jan(2023), repeat(100, 8)...)...)
	recs = append(recs, monthly("short", jan(2023).Add(5), 10, 20, 10)...)
	rows := rolled(t, recs)

	window, alpha, amp := ShapeParams(0.5, 6)
	assert.Equal(t, 12, window)
	assert.InDelta(t, 0.01, alpha, 1e-12)
	assert.InDelta(t, 0.03, amp, 1e-12)

	flags := ShapeFlags(rows, window, alpha, amp)
	require.Len(t, flags, 4)
	got := map[string]ShapeRow{}
	for _, f := range flags {
		got[f.ProductCode] = f
	}
	assert.True(t, got["mtn"].Mountain)
	assert.False(t, got["mtn"].Valley)
	assert.True(t, got["val"].Valley)
	assert.False(t, got["val"].Mountain)
	assert.False(t, got["flat"].Mountain || got["flat"].Valley)
	assert.Equal(t, 3, got["short"].Points)
	assert.False(t, got["short"].Mountain || got["short"].Valley)

	strict := ShapeFlags(rows, window, 0.5, amp)
	for _, f := range strict {
		assert.False(t, f.Mountain || f.Valley, f.ProductCode)
	}
}
