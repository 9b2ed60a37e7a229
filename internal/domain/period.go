package domain

import (
	"fmt"
	"regexp"
	"time"
)

// periodPattern matches settlement period keys like "2025-01".
var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Period identifies one settlement period: a calendar month, keyed "YYYY-MM".
// All window math is done in UTC.
type Period string

// ParsePeriod validates and returns a Period. Returns an error for anything
// that is not a well-formed "YYYY-MM" key.
func ParsePeriod(s string) (Period, error) {
	if !periodPattern.MatchString(s) {
		return "", fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	return Period(s), nil
}

// String returns the period key.
func (p Period) String() string { return string(p) }

// Bounds returns the half-open activity window for the period as Unix
// milliseconds UTC: [month start, next month start). Inclusive start and
// exclusive end keep a month-boundary activity in exactly one period.
func (p Period) Bounds() (startMs, endMs int64) {
	t, err := time.Parse("2006-01", string(p))
	if err != nil {
		// Period values are only constructed through ParsePeriod.
		panic(fmt.Sprintf("malformed period %q: %v", p, err))
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start.UnixMilli(), end.UnixMilli()
}

// Prev returns the period immediately before p.
func (p Period) Prev() Period {
	t, _ := time.Parse("2006-01", string(p))
	return Period(t.AddDate(0, -1, 0).Format("2006-01"))
}

// PeriodOf returns the settlement period containing the given instant.
func PeriodOf(ts time.Time) Period {
	return Period(ts.UTC().Format("2006-01"))
}
