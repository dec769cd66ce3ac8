package engine

import "time"

// GregorianAge is the calendar-year difference between asOf and birth. It
// does not check whether the birthday has already passed in asOf's year.
func GregorianAge(birth GregorianDate, asOf time.Time) int {
	return asOf.Year() - birth.Year
}

// HebrewAge is the difference between two Hebrew years.
func HebrewAge(birthYear, currentYear int) int {
	return currentYear - birthYear
}
