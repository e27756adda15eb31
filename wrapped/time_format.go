package wrapped

import (
	"math"
	"time"
)

// maxUnixSeconds bounds accepted timestamps to roughly ±290 years around the epoch, the range a
// nanosecond int64 can hold.
const maxUnixSeconds = 9.2e9

const (
	DateLayout      = "2006-01-02"
	MonthLayout     = "2006-01"
	tooltipLayout   = "2006-01-02 15:04"
	unknownDateText = "Unknown"
)

// unixToTime converts export timestamps (fractional unix seconds) into a time in loc.
// It reports false for absent, non-finite or out-of-range values.
func unixToTime(ts *float64, loc *time.Location) (time.Time, bool) {
	if ts == nil {
		return time.Time{}, false
	}
	v := *ts
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxUnixSeconds {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	ns := int64(math.Round(v * 1e9))
	return time.Unix(0, ns).In(loc), true
}

func tooltipDate(ts *float64, loc *time.Location) string {
	t, ok := unixToTime(ts, loc)
	if !ok {
		return unknownDateText
	}
	return t.Format(tooltipLayout)
}

// parseDate parses a YYYY-MM-DD label as a calendar day.
func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
