package util

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the compact local date stamp stored with every candle row.
	DateLayout = "20060102"
	// ClockLayout is the compact local time-of-day stamp.
	ClockLayout = "150405"
)

// FormatDate renders t as YYYYMMDD in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatClock renders t as HHMMSS in its own location.
func FormatClock(t time.Time) string {
	return t.Format(ClockLayout)
}

// ParseLocal joins a YYYYMMDD date and a HHMMSS clock into a time in loc.
func ParseLocal(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if len(clock) < 6 {
		clock = fmt.Sprintf("%06s", clock)
	}
	t, err := time.ParseInLocation(DateLayout+ClockLayout, date+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse local %s %s: %w", date, clock, err)
	}
	return t, nil
}

// WallClock returns the wall-clock reading of t as if it were UTC.
// Bucketing on it ignores DST transitions in t's location.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// FromWallClock is the inverse of WallClock for location loc.
func FromWallClock(w time.Time, loc *time.Location) time.Time {
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
}
