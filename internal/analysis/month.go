package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Month is a calendar month counted from year 0: year*12 + (month-1).
type Month int

// NewMonth builds a Month from a year and a 1-based month.
func NewMonth(year int, month time.Month) Month {
	return Month(year*12 + int(month) - 1)
}

// Year returns the calendar year.
func (m Month) Year() int { return int(m) / 12 }

// Calendar returns the 1-based calendar month.
func (m Month) Calendar() time.Month { return time.Month(int(m)%12 + 1) }

// Add shifts m by n months.
func (m Month) Add(n int) Month { return m + Month(n) }

// String formats m as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year(), int(m.Calendar()))
}

func (m Month) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

func (m *Month) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, ok := ParseMonth(s)
	if !ok {
		return fmt.Errorf("parse month %q", s)
	}
	*m = v
	return nil
}

var monthLayouts = []string{
	"2006-01", "2006/01", "2006-1", "2006/1", "2006.01", "2006.1",
	"2006-01-02", "2006/01/02", "2006/1/2", "2006-1-2", "2006.01.02",
	time.RFC3339, "2006-01-02 15:04", "2006-01-02 15:04:05", "2006/01/02 15:04:05",
	"Jan 2006", "January 2006", "Jan-2006", "Jan-06", "Jan 06",
	// Excel's built-in short date (number format 14) as rendered by excelize.
	"01-02-06",
}

var jpMonth = regexp.MustCompile(`^(\d{4})\s*年\s*(\d{1,2})\s*月`)

// ParseMonth reads a column header as a calendar month. Day-first/month-first
// slash dates are rejected because they cannot be told apart.
func ParseMonth(s string) (Month, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if m := jpMonth.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if mo >= 1 && mo <= 12 {
			return NewMonth(y, time.Month(mo)), true
		}
		return 0, false
	}
	for _, l := range monthLayouts {
		if t, err := time.Parse(l, s); err == nil {
			if t.Year() < 1900 || t.Year() > 2200 {
				return 0, false
			}
			return NewMonth(t.Year(), t.Month()), true
		}
	}
	return 0, false
}

// MonthRange returns every month from first to last inclusive.
func MonthRange(first, last Month) []Month {
	if last < first {
		return nil
	}
	out := make([]Month, 0, int(last-first)+1)
	for m := first; m <= last; m++ {
		out = append(out, m)
	}
	return out
}
