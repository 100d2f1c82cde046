package models

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders the calendar date part of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights is the number of whole nights between two calendar dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(Day(checkOut).Sub(Day(checkIn)).Hours() / 24)
}
