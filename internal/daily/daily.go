// internal/daily/daily.go
//
// Calendar helpers for the daily game.
// Every function works in the location carried by its time argument, so the
// caller decides what "local" means (the server's configured time zone).

package daily

import "time"

// DateKey returns YYYY-MM-DD in t's location.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DayOfMonth returns the 1-based calendar day used to index the puzzle document.
func DayOfMonth(t time.Time) int {
	return t.Day()
}

// NextMidnight returns 00:00:00 of the day after t, in t's location.
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// UntilMidnight is the expiry used for today's progress.
// It is always positive; a time exactly at midnight gets a full day.
func UntilMidnight(t time.Time) time.Duration {
	return NextMidnight(t).Sub(t)
}
