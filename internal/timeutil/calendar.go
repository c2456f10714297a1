package timeutil

import (
	"fmt"
	"time"
)

// Day is the calendar-day unit used for incident offsets.
const Day = 24 * time.Hour

// Date truncates t to midnight in its own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of whole calendar days from a to b. It is
// negative when b precedes a and ignores the time-of-day of both.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / Day)
}

// DayOfYear returns the 1-based day of year of t counted from 1 January of
// refYear. Dates after refYear continue counting (366, 367, ...), so the
// offset stays monotone across a year boundary.
func DayOfYear(t time.Time, refYear int) int {
	start := time.Date(refYear, time.January, 1, 0, 0, 0, 0, t.Location())
	return DaysBetween(start, t) + 1
}

// AddDays shifts t by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// ParseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
