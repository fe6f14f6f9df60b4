package utils

import (
	"strconv"
	"time"
)

// ISOWeek returns the ISO 8601 week number of the calendar date of t in
// t's location.
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// WeekLabel formats the dashboard trend label for t.
func WeekLabel(t time.Time) string {
	return "Wk " + strconv.Itoa(ISOWeek(t))
}
