package analysis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in   string
		want Month
		ok   bool
	}{
		{"2024-01", NewMonth(2024, time.January), true},
		{" 2024/03/01 ", NewMonth(2024, time.March), true},
		{"2024/3", NewMonth(2024, time.March), true},
		{"2023年12月", NewMonth(2023, time.December), true},
		{"2023年 4月分", NewMonth(2023, time.April), true},
		{"Feb 2022", NewMonth(2022, time.February), true},
		{"2024-05-31T00:00:00Z", NewMonth(2024, time.May), true},
		{"01-31-24", NewMonth(2024, time.January), true},
		{"2024-13", 0, false},
		{"2024年13月", 0, false},
		{"01/02/2024", 0, false},
		{"memo", 0, false},
		{"", 0, false},
		{"0001-01", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseMonth(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestMonthArithmetic(t *testing.T) {
	m := NewMonth(2023, time.November)
	assert.Equal(t, "2023-11", m.String())
	assert.Equal(t, "2024-02", m.Add(3).String())
	assert.Equal(t, 2024, m.Add(2).Year())
	assert.Equal(t, time.January, m.Add(2).Calendar())
	assert.Len(t, MonthRange(m, m.Add(13)), 14)
	assert.Nil(t, MonthRange(m, m.Add(-1)))

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `"2023-11"`, string(b))
	var back Month
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, m, back)
}

func TestFloatJSON(t *testing.T) {
	b, err := json.Marshal([]Float{Some(1.5), Null, Some(0)})
	require.NoError(t, err)
	assert.Equal(t, `[1.5,null,0]`, string(b))

	var back []Float
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []Float{Some(1.5), Null, Some(0)}, back)
	assert.Equal(t, Null, Some(nan()))
	assert.Equal(t, "", Null.String())
	assert.Equal(t, 7.0, Null.Or(7))
}
