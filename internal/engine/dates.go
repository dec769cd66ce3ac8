package engine

import (
	"fmt"
	"time"

	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/config"
)

// GregorianDate is a calendar day without time or zone.
type GregorianDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) GregorianDate {
	y, m, d := t.Date()
	return GregorianDate{Year: y, Month: m, Day: d}
}

// ParseGregorianDate parses a yyyy-mm-dd string.
func ParseGregorianDate(s string) (GregorianDate, error) {
	t, err := time.Parse(config.DateFormatISO, s)
	if err != nil {
		return GregorianDate{}, fmt.Errorf("%s: %w", config.ErrInvalidGregorian, err)
	}
	return DateOf(t), nil
}

// Time returns midnight of the day in loc.
func (d GregorianDate) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n days later (or earlier when negative).
func (d GregorianDate) AddDays(n int) GregorianDate {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// Valid reports whether the fields denote a real calendar day.
func (d GregorianDate) Valid() bool {
	return d.Year > 0 && d == DateOf(d.Time(time.UTC))
}

// IsZero reports whether d is the zero value.
func (d GregorianDate) IsZero() bool {
	return d == GregorianDate{}
}

// Before reports whether d is an earlier day than o.
func (d GregorianDate) Before(o GregorianDate) bool {
	return d.Time(time.UTC).Before(o.Time(time.UTC))
}

// After reports whether d is a later day than o.
func (d GregorianDate) After(o GregorianDate) bool {
	return o.Before(d)
}

func (d GregorianDate) String() string {
	return d.Time(time.UTC).Format(config.DateFormatISO)
}

// MarshalText encodes the date as yyyy-mm-dd, or as an empty string for the
// zero date.
func (d GregorianDate) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a yyyy-mm-dd date. Empty text yields the zero date.
func (d *GregorianDate) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = GregorianDate{}
		return nil
	}
	parsed, err := ParseGregorianDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// HebrewDate is the result of a Gregorian to Hebrew conversion. The Gregorian
// fields echo the converter's input, not the shifted day used when the birth
// happened after sunset.
type HebrewDate struct {
	Gregorian   GregorianDate  `json:"gregorian"`
	AfterSunset bool           `json:"afterSunset"`
	Year        int            `json:"hebrewYear"`
	Month       calendar.Month `json:"hebrewMonth"`
	Day         int            `json:"hebrewDay"`
	Display     string         `json:"displayString"`
}

// Date returns the Hebrew calendar fields.
func (h HebrewDate) Date() calendar.Date {
	return calendar.Date{Year: h.Year, Month: h.Month, Day: h.Day}
}

func (h HebrewDate) String() string {
	return h.Date().String()
}
