// Package streak holds the pure gap math for habit streak counting
//
// the calculator is deliberately repository-free: callers load the most
// recent log before the target date and hand its date and count in as Prior.
// everything here is derivable from that pair plus the habit's leniency
package streak

import (
	"time"

	"habitreward/internal/core/clock"
)

// Prior is the most recent completion strictly before the target date
type Prior struct {
	Date  time.Time
	Count int
}

// Leniency carries the habit settings that soften gaps
type Leniency struct {
	// AllowedSkipDays is how many non-exempt weekdays may be missed without breaking the streak
	AllowedSkipDays int
	// ExemptWeekdays are ISO weekday numbers (1=Mon..7=Sun) never counted as misses
	ExemptWeekdays []int
}

func exemptSet(days []int) [8]bool {
	var s [8]bool
	for _, d := range days {
		if d >= 1 && d <= 7 {
			s[d] = true
		}
	}
	return s
}

// MissedDays counts dates in the open interval (prev, target) whose ISO
// weekday is not exempt
func MissedDays(prev, target time.Time, exempt []int) int {
	s := exemptSet(exempt)
	missed := 0
	for d := clock.AddDays(prev, 1); d.Before(target); d = clock.AddDays(d, 1) {
		if !s[clock.ISOWeekday(d)] {
			missed++
		}
	}
	return missed
}

// Next returns the streak count a completion on target earns.
//
// a nil prior starts a new streak at 1. A prior on the immediately preceding
// day extends it. A gap extends it only when the missed non-exempt weekdays
// fit inside the allowed skip budget. A prior on or after the target means
// history is out of order, which resets to 1, the caller decides whether
// that deserves a warning
func Next(prior *Prior, l Leniency, target time.Time) int {
	if prior == nil {
		return 1
	}
	prev := clock.DateOf(prior.Date)
	gapDayBefore := clock.AddDays(clock.DateOf(target), -1)

	switch {
	case prev.Equal(gapDayBefore):
		return prior.Count + 1
	case prev.Before(gapDayBefore):
		if MissedDays(prev, clock.DateOf(target), l.ExemptWeekdays) <= l.AllowedSkipDays {
			return prior.Count + 1
		}
		return 1
	default:
		// prior is on or after target
		return 1
	}
}

// OutOfOrder reports whether prior sits on or after the target date,
// the degenerate case Next resets on
func OutOfOrder(prior *Prior, target time.Time) bool {
	if prior == nil {
		return false
	}
	return !clock.DateOf(prior.Date).Before(clock.DateOf(target))
}
