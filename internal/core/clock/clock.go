// Package clock derives user-local calendar dates from IANA zones
//
// dates are represented as time.Time values pinned to midnight UTC so they
// compare and subtract cleanly regardless of the zone they were derived in.
// nothing in the domain may read the wall clock directly, it goes through
// UserToday so the zone fallback stays in one place
package clock

import (
	"time"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// nowFn is a seam for tests
var nowFn = time.Now

// ValidateZone reports whether zone names a loadable IANA location
func ValidateZone(zone string) bool {
	if zone == "" {
		return false
	}
	_, err := time.LoadLocation(zone)
	return err == nil
}

// UserToday returns the current calendar date in zone
// an invalid or blank zone silently falls back to UTC
func UserToday(zone string) time.Time {
	loc := time.UTC
	if zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}
	return DateOf(nowFn().In(loc))
}

// DateOf strips the time of day from t, keeping its calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a date value for y/m/d
func NewDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// FormatDate renders d as YYYY-MM-DD
func FormatDate(d time.Time) string { return d.Format(DateLayout) }

// AddDays returns d shifted by n calendar days
func AddDays(d time.Time, n int) time.Time { return d.AddDate(0, 0, n) }

// DaysBetween returns the whole number of days from a to b, negative when b precedes a
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// ISOWeekday returns the ISO-8601 weekday number for d, 1=Monday through 7=Sunday
func ISOWeekday(d time.Time) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
