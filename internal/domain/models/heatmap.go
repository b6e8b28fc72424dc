package models

import (
	"fmt"
	"time"
)

// WeekdayNames are the heatmap row labels, Monday first.
var WeekdayNames = [7]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// WeekdayName returns the heatmap label for t's weekday.
func WeekdayName(t time.Time) string {
	// time.Weekday is Sunday=0
	return WeekdayNames[(int(t.Weekday())+6)%7]
}

// HourKey returns the heatmap column label for t's hour, "HH:00".
func HourKey(t time.Time) string {
	return fmt.Sprintf("%02d:00", t.Hour())
}

// Heatmap maps weekday label -> hour label -> historical mean amplitude.
type Heatmap map[string]map[string]float64

// Lookup returns the baseline for the weekday/hour of t.
func (h Heatmap) Lookup(t time.Time) (float64, bool) {
	if h == nil {
		return 0, false
	}
	hours, ok := h[WeekdayName(t)]
	if !ok {
		return 0, false
	}
	v, ok := hours[HourKey(t)]
	return v, ok
}

// Set stores one cell.
func (h Heatmap) Set(weekday, hour string, v float64) {
	if h[weekday] == nil {
		h[weekday] = make(map[string]float64)
	}
	h[weekday][hour] = v
}
