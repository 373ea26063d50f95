// Package datemath holds the date arithmetic the metric aggregations depend on.
//
// Dates cross this package in two shapes: time.Time at the API boundary and
// "YYYY-MM-DD" strings inside the aggregation loops. String dates compare
// lexicographically, which matches chronological order for this format; no
// validation is performed on malformed input.
package datemath

import "time"

// DayFormat is the canonical day-level date layout used across the engine.
const DayFormat = "2006-01-02"

// daysPerMonth is the day count a month is normalized to when converting
// durations into fractional months.
const daysPerMonth = 30.0

// DayString renders a timestamp as a canonical YYYY-MM-DD string.
func DayString(t time.Time) string {
	return t.Format(DayFormat)
}

// parseDay reads the day-level prefix of a date string. Timestamps with a time
// component ("2024-01-05T12:30:00Z") are truncated to their first ten bytes.
func parseDay(s string) (time.Time, bool) {
	if len(s) > len(DayFormat) {
		s = s[:len(DayFormat)]
	}
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MonthsBetween returns the fractional number of months between two date
// strings at day precision, with a month counted as 30 days. Unparseable
// input yields 0.
func MonthsBetween(earlier, later string) float64 {
	a, okA := parseDay(earlier)
	b, okB := parseDay(later)
	if !okA || !okB {
		return 0
	}
	days := b.Sub(a).Hours() / 24
	return days / daysPerMonth
}

// Overlaps reports whether the closed intervals [aStart, aEnd] and
// [bStart, bEnd] share at least one day. Comparison is lexicographic.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart <= bEnd && bStart <= aEnd
}

// Oldest returns the earlier of two date strings.
func Oldest(a, b string) string {
	if a <= b {
		return a
	}
	return b
}

// Latest returns the later of two date strings.
func Latest(a, b string) string {
	if a >= b {
		return a
	}
	return b
}

// Sequence generates the fixed-step date grid from begin up to and including
// end. The grid starts at begin and advances stepDays at a time while the
// current point does not pass end. A non-positive step yields a nil sequence.
func Sequence(begin, end time.Time, stepDays int) []time.Time {
	if stepDays <= 0 || end.Before(begin) {
		return nil
	}
	var grid []time.Time
	for cur := begin; !cur.After(end); cur = cur.AddDate(0, 0, stepDays) {
		grid = append(grid, cur)
	}
	return grid
}
