// Package timeutil provides calendar-day and week-window helpers for
// PracticeBeats Hub. Streaks and the weekly leaderboard operate on local
// calendar days, so every helper takes an explicit *time.Location; the
// location comes from configuration (APP_TIMEZONE, default UTC).
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// StartOfDay returns the start of the day (00:00:00) in the given location.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the given location.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, loc)
}

// StartOfWeek returns the start of the ISO week (Monday 00:00:00) in the given location.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract), loc)
}

// EndOfWeek returns the end of the ISO week (Sunday 23:59:59) in the given location.
func EndOfWeek(t time.Time, loc *time.Location) time.Time {
	start := StartOfWeek(t, loc)
	return EndOfDay(start.AddDate(0, 0, 6), loc)
}

// WeekWindow represents a Monday-Sunday calendar week.
type WeekWindow struct {
	// Start is Monday 00:00:00 in the window's location.
	Start time.Time

	// End is Sunday 23:59:59.999999999 in the window's location.
	End time.Time
}

// CurrentWeek returns the Monday-Sunday window containing t.
func CurrentWeek(t time.Time, loc *time.Location) WeekWindow {
	return WeekWindow{
		Start: StartOfWeek(t, loc),
		End:   EndOfWeek(t, loc),
	}
}

// ContainsDate reports whether t's calendar date falls inside the window.
// The comparison is by date, not timestamp: a session logged at any
// time-of-day on the window's Sunday is still inside the window.
func (w WeekWindow) ContainsDate(t time.Time) bool {
	day := StartOfDay(t, w.Start.Location())
	return !day.Before(w.Start) && !day.After(w.End)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	al, bl := a.In(loc), b.In(loc)
	return al.Year() == bl.Year() && al.Month() == bl.Month() && al.Day() == bl.Day()
}

// IsYesterday reports whether t falls on the calendar day before ref in loc.
func IsYesterday(t, ref time.Time, loc *time.Location) bool {
	return SameDay(t, ref.AddDate(0, 0, -1), loc)
}

// DaysBetween returns the number of calendar days from a to b in loc.
// Positive when b is after a.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	start := StartOfDay(a, loc)
	end := StartOfDay(b, loc)
	return int(end.Sub(start).Hours() / 24)
}

// StartOfMonth returns the start of the month in the given location.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// EndOfMonth returns the end of the month in the given location.
func EndOfMonth(t time.Time, loc *time.Location) time.Time {
	start := StartOfMonth(t, loc)
	return EndOfDay(start.AddDate(0, 1, -1), loc)
}

// FormatDate formats a time as a date string (YYYY-MM-DD) in the given location.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD string as midnight in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, loc)
}
