package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/config"
)

// FallbackConverter asks Primary first and turns to Secondary only when
// Primary reports ErrConversionUnavailable. Any other answer, including
// ErrInvalidHebrewDate, is final.
type FallbackConverter struct {
	Primary   DateConverter
	Secondary DateConverter
}

// ToHebrew implements DateConverter.
func (f FallbackConverter) ToHebrew(ctx context.Context, g GregorianDate, afterSunset bool) (HebrewDate, error) {
	h, err := f.Primary.ToHebrew(ctx, g, afterSunset)
	if !f.shouldFallback(ctx, err) {
		return h, err
	}
	return f.Secondary.ToHebrew(ctx, g, afterSunset)
}

// ToGregorian implements DateConverter.
func (f FallbackConverter) ToGregorian(ctx context.Context, year int, month calendar.Month, day int) (GregorianDate, error) {
	g, err := f.Primary.ToGregorian(ctx, year, month, day)
	if !f.shouldFallback(ctx, err) {
		return g, err
	}
	return f.Secondary.ToGregorian(ctx, year, month, day)
}

func (f FallbackConverter) shouldFallback(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil || !errors.Is(err, ErrConversionUnavailable) {
		return false
	}
	slog.Warn(config.MsgOracleFallback,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyError, err,
	)
	return true
}
