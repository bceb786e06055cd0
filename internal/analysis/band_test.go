package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bandSnapshot() []YearRecord {
	m := jan(2024)
	mk := func(code string, ys Float) YearRecord {
		return YearRecord{ProductCode: code, Month: m, YearSum: ys}
	}
	return []YearRecord{
		mk("e", Some(250)), mk("a", Some(50)), mk("c", Some(150)),
		mk("b", Some(100)), mk("d", Some(200)), mk("n", Null), mk("b2", Some(100)),
	}
}

func mustBand(b Band, err error) Band {
	if err != nil {
		panic(err)
	}
	return b
}

func TestAmountBandInclusive(t *testing.T) {
	snap := bandSnapshot()
	b := mustBand(NewAmountBand(100, 200))
	low, high, ok := ResolveBand(snap, b)
	require.True(t, ok)
	assert.Equal(t, 100.0, low)
	assert.Equal(t, 200.0, high)

	got := FilterProductsByBand(snap, low, high)
	assert.Equal(t, []string{"d", "c", "b", "b2"}, got)
	for _, r := range snap {
		in := r.YearSum.Valid && r.YearSum.Value >= 100 && r.YearSum.Value <= 200
		assert.Equal(t, in, contains(got, r.ProductCode), r.ProductCode)
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func TestBandModes(t *testing.T) {
	snap := bandSnapshot()
	cases := []struct {
		name      string
		band      Band
		low, high float64
	}{
		{"two products reversed", mustBand(NewTwoProductsBand("d", "a")), 50, 200},
		{"percentile full", mustBand(NewPercentileBand(0, 100)), 50, 250},
		{"percentile median", mustBand(NewPercentileBand(50, 50)), 125, 125},
		{"rank top two", mustBand(NewRankBand(1, 2)), 200, 250},
		{"rank reversed", mustBand(NewRankBand(4, 3)), 100, 150},
		{"rank clamped", mustBand(NewRankBand(5, 99)), 50, 100},
		{"target absolute", mustBand(NewTargetNearBand("c", 50, false)), 100, 200},
		{"target relative", mustBand(NewTargetNearBand("d", 0.25, true)), 150, 250},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			low, high, ok := ResolveBand(snap, tc.band)
			require.True(t, ok)
			assert.InDelta(t, tc.low, low, 1e-9)
			assert.InDelta(t, tc.high, high, 1e-9)
		})
	}
}

func TestBandUnresolvable(t *testing.T) {
	snap := bandSnapshot()
	assert.Equal(t, []string{}, SelectBand(snap, mustBand(NewTargetNearBand("zzz", 10, false))))
	assert.Equal(t, []string{}, SelectBand(snap, mustBand(NewTwoProductsBand("a", "n"))))
	assert.Equal(t, []string{}, SelectBand(nil, mustBand(NewAmountBand(0, 1))))
	assert.Equal(t, []string{}, SelectBand(snap, nil))
	assert.Equal(t, []string{"e", "d"}, SelectBand(snap, mustBand(NewRankBand(1, 2))))
}

func TestBandConstructorsValidate(t *testing.T) {
	_, err := NewAmountBand(10, 5)
	assert.Error(t, err)
	_, err = NewPercentileBand(-1, 50)
	assert.Error(t, err)
	_, err = NewPercentileBand(10, 101)
	assert.Error(t, err)
	_, err = NewRankBand(0, 3)
	assert.Error(t, err)
	_, err = NewTwoProductsBand("a", "")
	assert.Error(t, err)
	_, err = NewTargetNearBand("a", -1, false)
	assert.Error(t, err)

	b, err := NewRankBand(3, 1)
	require.NoError(t, err)
	assert.Equal(t, RankBand{Low: 1, High: 3}, b)
	assert.Equal(t, "rank", b.Mode())
}
