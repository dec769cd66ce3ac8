package engine

import (
	"context"
	"errors"

	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/config"
)

// Sentinel errors of the recurrence engine. Callers match them with errors.Is.
var (
	// ErrConversionUnavailable means the conversion could not be computed:
	// the oracle was unreachable, answered garbage, or the input was invalid.
	ErrConversionUnavailable = errors.New(config.ErrConversionUnavailable)

	// ErrInvalidHebrewDate means the month does not occur in the requested
	// year or the day is out of range. No neighbouring month is substituted.
	ErrInvalidHebrewDate = errors.New(config.ErrInvalidHebrewDate)

	// ErrProjectionExhausted means the iteration ceiling was reached before
	// enough occurrences were found.
	ErrProjectionExhausted = errors.New(config.ErrProjectionExhausted)

	// ErrPartialProjection accompanies a projection in which some years
	// could not be converted.
	ErrPartialProjection = errors.New(config.ErrPartialProjection)
)

// DateConverter maps dates between the Gregorian and Hebrew calendars.
// Implementations must be deterministic and safe for concurrent use.
type DateConverter interface {
	// ToHebrew converts g. When afterSunset is set the birth belongs to the
	// following Hebrew day.
	ToHebrew(ctx context.Context, g GregorianDate, afterSunset bool) (HebrewDate, error)

	// ToGregorian resolves a Hebrew date. It fails with ErrInvalidHebrewDate
	// when month does not exist in year.
	ToGregorian(ctx context.Context, year int, month calendar.Month, day int) (GregorianDate, error)
}
