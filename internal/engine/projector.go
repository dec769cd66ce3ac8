package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/config"
	"golang.org/x/sync/errgroup"
)

// Policy decides how a birthday is observed in years where its exact Hebrew
// date does not exist.
type Policy string

const (
	// PolicyStrict skips every year where the exact date is missing: plain
	// Adar skips leap years, Adar I and Adar II skip common years, and a
	// 30th skips years where its month has 29 days. This is the default.
	PolicyStrict Policy = config.PolicyStrict

	// PolicyObserved is opt-in. It moves a plain Adar birthday to Adar II in
	// leap years and a 30th that falls in a 29-day month to the 1st of the
	// next month. Adar I and Adar II birthdays still skip common years.
	PolicyObserved Policy = config.PolicyObserved
)

// ParsePolicy validates a policy name. The empty string selects the default.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "":
		return Policy(config.DefaultPolicy), nil
	case config.PolicyObserved, config.PolicyStrict:
		return Policy(s), nil
	}
	return "", fmt.Errorf("%s: %q", config.ErrUnknownPolicy, s)
}

// Occurrence is one projected anniversary. Month and Day are the Hebrew date
// actually used for that year, which may differ from the birth date under
// PolicyObserved.
type Occurrence struct {
	Date       GregorianDate  `json:"date"`
	HebrewYear int            `json:"hebrewYear"`
	Month      calendar.Month `json:"hebrewMonth"`
	Day        int            `json:"hebrewDay"`
}

// Projection is the result of NextOccurrences. Partial is set when at least
// one year could not be converted; those years are listed in FailedYears.
type Projection struct {
	Month       calendar.Month `json:"hebrewMonth"`
	Day         int            `json:"hebrewDay"`
	AfterSunset bool           `json:"afterSunset"`
	Occurrences []Occurrence   `json:"occurrences"`
	FailedYears []int          `json:"failedYears,omitempty"`
	Partial     bool           `json:"partial"`
}

// Dates returns the Gregorian dates of the occurrences in order.
func (p Projection) Dates() []GregorianDate {
	dates := make([]GregorianDate, 0, len(p.Occurrences))
	for _, o := range p.Occurrences {
		dates = append(dates, o.Date)
	}
	return dates
}

// Next returns the first occurrence, if any.
func (p Projection) Next() (Occurrence, bool) {
	if len(p.Occurrences) == 0 {
		return Occurrence{}, false
	}
	return p.Occurrences[0], true
}

// Projector walks Hebrew years forward and resolves each anniversary through
// a DateConverter. The zero value of each field selects its default.
type Projector struct {
	Converter   DateConverter
	Policy      Policy
	Ceiling     int // maximum number of Hebrew years scanned
	Concurrency int // year lookups in flight at once
	Location    *time.Location
}

type yearStatus int

const (
	yearResolved yearStatus = iota
	yearSkipped
	yearFailed
)

type yearResult struct {
	year   int
	status yearStatus
	occ    Occurrence
	err    error
}

// NextOccurrences returns up to count anniversaries of (month, day) falling
// strictly after now, scanning Hebrew years from startYear. Years are looked
// up concurrently in windows; results are always applied in year order.
//
// A year whose conversion keeps failing after one retry is recorded in
// FailedYears and the projection carries on. The returned error is then
// ErrPartialProjection, or ErrConversionUnavailable when no year succeeded.
// ErrProjectionExhausted is returned when the ceiling is reached first. The
// projection gathered so far is returned alongside every error except a
// context error.
func (p *Projector) NextOccurrences(ctx context.Context, month calendar.Month, day, startYear int, afterSunset bool, count int, now time.Time) (Projection, error) {
	proj := Projection{Month: month, Day: day, AfterSunset: afterSunset}
	if count <= 0 {
		return proj, nil
	}
	if !month.Valid() || day < 1 || day > 30 || startYear < 1 {
		return proj, fmt.Errorf("%w: %d %s %d", ErrInvalidHebrewDate, day, month, startYear)
	}

	log := slog.With(
		config.LogKeyComponent, config.CompProjector,
		config.LogKeyPolicy, string(p.policy()),
	)
	loc := p.location()
	end := startYear + p.ceiling()
	failed := 0
	var last GregorianDate

	for year := startYear; year < end && len(proj.Occurrences)+failed < count; {
		window := min(p.concurrency(), end-year)
		results := make([]yearResult, window)

		g, gctx := errgroup.WithContext(ctx)
		for i := range window {
			y := year + i
			g.Go(func() error {
				r, err := p.resolve(gctx, y, month, day)
				results[i] = r
				return err
			})
		}
		if err := g.Wait(); err != nil {
			if ctx.Err() != nil {
				return proj, ctx.Err()
			}
			return proj, err
		}

		for _, r := range results {
			if len(proj.Occurrences)+failed >= count {
				break
			}
			switch r.status {
			case yearSkipped:
				log.Debug(config.MsgYearSkipped, config.LogKeyYear, r.year)
				continue
			case yearFailed:
				if !p.yearEndsAfter(r.year, now) {
					continue
				}
				log.Warn(config.MsgYearFailed,
					config.LogKeyYear, r.year,
					config.LogKeyError, r.err,
				)
				failed++
				proj.FailedYears = append(proj.FailedYears, r.year)
				continue
			}
			if !r.occ.Date.Time(loc).After(now) {
				continue
			}
			if !last.IsZero() && !r.occ.Date.After(last) {
				continue
			}
			proj.Occurrences = append(proj.Occurrences, r.occ)
			last = r.occ.Date
		}
		year += window
	}

	proj.Partial = failed > 0
	log.Debug(config.MsgProjectionDone,
		config.LogKeyCount, len(proj.Occurrences),
		config.LogKeyFailed, proj.FailedYears,
	)

	switch {
	case len(proj.Occurrences)+failed < count && proj.Partial:
		return proj, fmt.Errorf("%w: %w: %d of %d within %d years",
			ErrProjectionExhausted, ErrPartialProjection, len(proj.Occurrences), count, p.ceiling())
	case len(proj.Occurrences)+failed < count:
		return proj, fmt.Errorf("%w: %d of %d within %d years",
			ErrProjectionExhausted, len(proj.Occurrences), count, p.ceiling())
	case proj.Partial && len(proj.Occurrences) == 0:
		return proj, fmt.Errorf("%w: years %v", ErrConversionUnavailable, proj.FailedYears)
	case proj.Partial:
		return proj, fmt.Errorf("%w: years %v", ErrPartialProjection, proj.FailedYears)
	}
	return proj, nil
}

// resolve converts one year's anniversary. Only context errors are returned;
// every other outcome is reported through the result status.
func (p *Projector) resolve(ctx context.Context, year int, month calendar.Month, day int) (yearResult, error) {
	r := yearResult{year: year}

	m := month
	if p.policy() == PolicyObserved && m == calendar.Adar && calendar.IsLeapYear(year) {
		m = calendar.AdarII
	}
	targetYear, d := year, day

	date, err := p.convert(ctx, targetYear, m, d)
	if errors.Is(err, ErrInvalidHebrewDate) && p.policy() == PolicyObserved && d == 30 && m.ExistsIn(year) {
		next, delta := calendar.NextMonth(year, m)
		targetYear, m, d = year+delta, next, 1
		date, err = p.convert(ctx, targetYear, m, d)
	}

	switch {
	case err == nil:
		r.occ = Occurrence{Date: date, HebrewYear: year, Month: m, Day: d}
	case ctx.Err() != nil:
		return r, ctx.Err()
	case errors.Is(err, ErrInvalidHebrewDate):
		r.status = yearSkipped
	default:
		r.status = yearFailed
		r.err = err
	}
	return r, nil
}

// convert asks the converter once more after an ErrConversionUnavailable.
func (p *Projector) convert(ctx context.Context, year int, month calendar.Month, day int) (GregorianDate, error) {
	date, err := p.Converter.ToGregorian(ctx, year, month, day)
	if errors.Is(err, ErrConversionUnavailable) && ctx.Err() == nil {
		slog.Debug(config.MsgYearRetry,
			config.LogKeyComponent, config.CompProjector,
			config.LogKeyYear, year,
			config.LogKeyError, err,
		)
		date, err = p.Converter.ToGregorian(ctx, year, month, day)
	}
	return date, err
}

// yearEndsAfter reports whether Hebrew year still has days after now. A
// failed year that lies entirely in the past could never have produced an
// occurrence and does not count against the projection.
func (p *Projector) yearEndsAfter(year int, now time.Time) bool {
	next, err := calendar.ToGregorian(calendar.Date{Year: year + 1, Month: calendar.Tishrei, Day: 1})
	if err != nil {
		return true
	}
	lastDay := DateOf(next).AddDays(-1)
	return lastDay.Time(p.location()).After(now)
}

func (p *Projector) policy() Policy {
	if p.Policy == "" {
		return Policy(config.DefaultPolicy)
	}
	return p.Policy
}

func (p *Projector) ceiling() int {
	if p.Ceiling <= 0 {
		return config.DefaultProjectionCeiling
	}
	return p.Ceiling
}

func (p *Projector) concurrency() int {
	if p.Concurrency <= 0 {
		return config.DefaultProjectionWorkers
	}
	return p.Concurrency
}

func (p *Projector) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}
