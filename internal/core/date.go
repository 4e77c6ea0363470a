package core

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout accepts both zero-padded and bare month/day components.
// Slash-separated dates are normalized to dashes before parsing, so
// "2024/3/5" and "2024-03-05" name the same calendar date.
const dateLayout = "2006-1-2"

// canonicalLayout is the zero-padded form written back to storage.
const canonicalLayout = "2006-01-02"

// Date is a calendar date without a time component.
type Date struct {
	time.Time
}

// NewDate builds a Date from its components, normalized to UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a stored date string, accepting "-" or "/" as the
// component separator. Values that do not name a valid calendar date
// return ErrInvalidDate; empty input returns ErrEmptyDate.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrEmptyDate
	}
	norm := strings.ReplaceAll(s, "/", "-")
	t, err := time.Parse(dateLayout, norm)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Year returns the calendar year.
func (d Date) Year() int {
	return d.Time.Year()
}

// Month returns the calendar month (1-12).
func (d Date) Month() time.Month {
	return d.Time.Month()
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// In reports whether the date falls inside the given period.
func (d Date) In(year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

// String returns the canonical zero-padded form.
func (d Date) String() string {
	return d.Format(canonicalLayout)
}
