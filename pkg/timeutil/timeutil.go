// Package timeutil holds the clock-time and weekday conventions shared by the
// schedule, availability and booking packages. Schedule templates address a
// recurring weekday with ISO numbering (Monday=1 .. Sunday=7) and express
// times of day as "15:04" clock strings; appointments are exact instants at
// whole-minute precision.
package timeutil

import (
	"fmt"
	"time"
)

const ClockLayout = "15:04"

// ISOWeekday maps a calendar date to the ISO weekday number used across the
// schedule model: Monday=1 .. Saturday=6, Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ParseClock parses a "15:04" clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as a "15:04" clock string.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// TruncateMinute drops the seconds and sub-second components of an instant.
// Slot arithmetic operates at minute granularity, so every date-time coming
// in from a client must pass through here before any comparison.
func TruncateMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// MinuteOfDay returns the minutes elapsed since midnight of t's day.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// AtMinutes anchors minutes-since-midnight onto the calendar day of date,
// preserving date's location.
func AtMinutes(date time.Time, minutes int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, date.Location())
}

// DayStart returns midnight of t's calendar day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of calendar days in (year, month).
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
