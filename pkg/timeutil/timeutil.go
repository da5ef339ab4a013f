package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesToClock formats a duration in minutes as an HH:MM string.
// Negative values are treated as zero.
func MinutesToClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ClockToMinutes parses an HH:MM string into total minutes.
func ClockToMinutes(clock string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(clock), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", clock)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q", clock)
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", clock)
	}
	if hours < 0 || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("clock value %q out of range", clock)
	}
	return hours*60 + mins, nil
}

// StartOfDay truncates the timestamp to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays returns the timestamp shifted by the given number of calendar days.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// DaysBetween returns whole days elapsed from an earlier timestamp to a later
// one, comparing at day granularity. Returns 0 when from is not before to.
func DaysBetween(from, to time.Time) int {
	fromDay := StartOfDay(from)
	toDay := StartOfDay(to)
	if !fromDay.Before(toDay) {
		return 0
	}
	return int(toDay.Sub(fromDay).Hours() / 24)
}

// IsLastDayOfWeek reports whether the timestamp falls on the final day of the
// training week. Weeks run Monday through Sunday.
func IsLastDayOfWeek(t time.Time) bool {
	return t.UTC().Weekday() == time.Sunday
}

// WeekOfYear returns the ISO week and year for a timestamp, used to key
// availability slots to a planning week.
func WeekOfYear(t time.Time) (week, year int) {
	y, w := t.UTC().ISOWeek()
	return w, y
}
