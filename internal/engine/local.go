package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tartampluch/hebday/internal/calendar"
)

// LocalConverter computes conversions with the embedded calendar arithmetic.
// It never needs the network and only fails on invalid input.
type LocalConverter struct{}

// ToHebrew implements DateConverter.
func (LocalConverter) ToHebrew(ctx context.Context, g GregorianDate, afterSunset bool) (HebrewDate, error) {
	if err := ctx.Err(); err != nil {
		return HebrewDate{}, err
	}
	if !g.Valid() {
		return HebrewDate{}, fmt.Errorf("%w: %v", ErrConversionUnavailable, g)
	}

	day := g
	if afterSunset {
		day = g.AddDays(1)
	}
	h := calendar.FromGregorian(day.Time(time.UTC))

	return HebrewDate{
		Gregorian:   g,
		AfterSunset: afterSunset,
		Year:        h.Year,
		Month:       h.Month,
		Day:         h.Day,
		Display:     calendar.FormatHebrew(h),
	}, nil
}

// ToGregorian implements DateConverter.
func (LocalConverter) ToGregorian(ctx context.Context, year int, month calendar.Month, day int) (GregorianDate, error) {
	if err := ctx.Err(); err != nil {
		return GregorianDate{}, err
	}
	t, err := calendar.ToGregorian(calendar.Date{Year: year, Month: month, Day: day})
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidDate) {
			return GregorianDate{}, fmt.Errorf("%w: %w", ErrInvalidHebrewDate, err)
		}
		return GregorianDate{}, fmt.Errorf("%w: %w", ErrConversionUnavailable, err)
	}
	return DateOf(t), nil
}
