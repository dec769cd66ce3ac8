// Package calendar implements the arithmetic Hebrew calendar.
//
// Dates are converted through fixed day numbers (R.D., day 1 being Monday
// 1 January of year 1 in the proleptic Gregorian calendar), following the
// molad-and-postponement rules of the fixed Hebrew calendar.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

const (
	// hebrewEpoch is the fixed day of 1 Tishrei AM 1.
	hebrewEpoch = -1373427

	// unixEpochFixed is the fixed day of 1970-01-01.
	unixEpochFixed = 719163

	secondsPerDay = 24 * 60 * 60

	partsPerDay     = 25920
	moladParts      = 13753
	moladFirstParts = 12084

	// MinYear is the first Hebrew year accepted by the converters.
	MinYear = 1
)

// ErrInvalidDate is returned when a Hebrew date does not exist, either
// because the month does not occur in that year or the day is out of range.
var ErrInvalidDate = errors.New("invalid hebrew date")

// Date is a day in the Hebrew calendar.
type Date struct {
	Year  int
	Month Month
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%d %s %d", d.Day, d.Month, d.Year)
}

// Validate reports whether the date exists in the Hebrew calendar.
func (d Date) Validate() error {
	if d.Year < MinYear {
		return fmt.Errorf("%w: year %d", ErrInvalidDate, d.Year)
	}
	if !d.Month.ExistsIn(d.Year) {
		return fmt.Errorf("%w: %s does not occur in %d", ErrInvalidDate, d.Month, d.Year)
	}
	if d.Day < 1 || d.Day > DaysInMonth(d.Year, d.Month) {
		return fmt.Errorf("%w: %s has %d days in %d", ErrInvalidDate, d.Month, DaysInMonth(d.Year, d.Month), d.Year)
	}
	return nil
}

// IsLeapYear reports whether the year has thirteen months (7 in every 19).
func IsLeapYear(year int) bool {
	return mod(7*year+1, 19) < 7
}

// MonthsInYear returns 13 for leap years and 12 otherwise.
func MonthsInYear(year int) int {
	if IsLeapYear(year) {
		return 13
	}
	return 12
}

// DaysInYear returns the length of the year: 353-355 or 383-385 days.
func DaysInYear(year int) int {
	return newYear(year+1) - newYear(year)
}

// DaysInMonth returns 29 or 30, or 0 when the month does not occur in year.
func DaysInMonth(year int, m Month) int {
	if !m.ExistsIn(year) {
		return 0
	}
	return daysInOrdinal(year, m.ordinal())
}

// Months lists the months of the year in civil order, starting with Tishrei.
func Months(year int) []Month {
	months := make([]Month, 0, MonthsInYear(year))
	for o := int(Tishrei); o <= lastOrdinal(year); o++ {
		months = append(months, monthAt(year, o))
	}
	for o := int(Nisan); o < int(Tishrei); o++ {
		months = append(months, monthAt(year, o))
	}
	return months
}

// FromGregorian converts the calendar date of t (in t's location) to the
// Hebrew date whose daytime falls on it.
func FromGregorian(t time.Time) Date {
	return fromFixed(fixedFromTime(t))
}

// ToGregorian returns the Gregorian date (midnight UTC) of a Hebrew date.
func ToGregorian(d Date) (time.Time, error) {
	if err := d.Validate(); err != nil {
		return time.Time{}, err
	}
	return timeFromFixed(toFixed(d.Year, d.Month.ordinal(), d.Day)), nil
}

// elapsedDays counts days from the epoch to the molad-based new year of
// year, applying the "lo ADU rosh" postponement.
func elapsedDays(year int) int {
	monthsElapsed := floorDiv(235*year-234, 19)
	partsElapsed := moladFirstParts + moladParts*monthsElapsed
	day := 29*monthsElapsed + floorDiv(partsElapsed, partsPerDay)
	if mod(3*(day+1), 7) < 3 {
		day++
	}
	return day
}

// yearLengthCorrection applies the remaining postponements so that no year
// is 356 days long and no year following a leap year is 382 days long.
func yearLengthCorrection(year int) int {
	ny0 := elapsedDays(year - 1)
	ny1 := elapsedDays(year)
	ny2 := elapsedDays(year + 1)
	switch {
	case ny2-ny1 == 356:
		return 2
	case ny1-ny0 == 382:
		return 1
	default:
		return 0
	}
}

func newYear(year int) int {
	return hebrewEpoch + elapsedDays(year) + yearLengthCorrection(year)
}

func lastOrdinal(year int) int {
	return MonthsInYear(year)
}

func longCheshvan(year int) bool {
	return DaysInYear(year)%10 == 5
}

func shortKislev(year int) bool {
	return DaysInYear(year)%10 == 3
}

func daysInOrdinal(year, ordinal int) int {
	switch {
	case ordinal == int(Iyyar), ordinal == int(Tamuz), ordinal == int(Elul),
		ordinal == int(Tevet), ordinal == int(AdarII):
		return 29
	case ordinal == int(Adar) && !IsLeapYear(year):
		return 29
	case ordinal == int(Cheshvan) && !longCheshvan(year):
		return 29
	case ordinal == int(Kislev) && shortKislev(year):
		return 29
	default:
		return 30
	}
}

// toFixed converts an already validated date to a fixed day number.
// The year starts in Tishrei, so months from Nisan onwards come after the
// whole Tishrei..Adar stretch.
func toFixed(year, ordinal, day int) int {
	fixed := newYear(year) + day - 1
	if ordinal < int(Tishrei) {
		for o := int(Tishrei); o <= lastOrdinal(year); o++ {
			fixed += daysInOrdinal(year, o)
		}
		for o := int(Nisan); o < ordinal; o++ {
			fixed += daysInOrdinal(year, o)
		}
		return fixed
	}
	for o := int(Tishrei); o < ordinal; o++ {
		fixed += daysInOrdinal(year, o)
	}
	return fixed
}

func fromFixed(fixed int) Date {
	// Average year length is 35975351/98496 days.
	approx := floorDiv((fixed-hebrewEpoch)*98496, 35975351) + 1
	year := approx - 1
	for newYear(year+1) <= fixed {
		year++
	}

	ordinal := int(Tishrei)
	if fixed >= toFixed(year, int(Nisan), 1) {
		ordinal = int(Nisan)
	}
	for fixed > toFixed(year, ordinal, daysInOrdinal(year, ordinal)) {
		ordinal++
	}

	return Date{
		Year:  year,
		Month: monthAt(year, ordinal),
		Day:   fixed - toFixed(year, ordinal, 1) + 1,
	}
}

func fixedFromTime(t time.Time) int {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(floorDiv64(midnight.Unix(), secondsPerDay)) + unixEpochFixed
}

func timeFromFixed(fixed int) time.Time {
	return time.Unix(int64(fixed-unixEpochFixed)*secondsPerDay, 0).UTC()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorDiv64(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}
