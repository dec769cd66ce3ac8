package records

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/store"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Filter selects and orders records for display. Empty fields mean "any"
// and the default order is by next birthday, ascending.
type Filter struct {
	Search    string
	Gender    string
	Timeframe string
	SortBy    string
	SortOrder string
}

// Apply returns the records of all matching f, sorted. all is not modified.
func Apply(all []store.Birthday, f Filter, now time.Time, lang language.Tag) []store.Birthday {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]store.Birthday, 0, len(all))
	for _, b := range all {
		if search != "" && !strings.Contains(strings.ToLower(b.FullName()), search) {
			continue
		}
		if f.Gender != "" && b.Gender != f.Gender {
			continue
		}
		if !inTimeframe(b.Derived.NextBirthday, f.Timeframe, now) {
			continue
		}
		out = append(out, b)
	}

	order := 1
	if f.SortOrder == config.SortDesc {
		order = -1
	}
	switch f.SortBy {
	case config.SortName:
		col := collate.New(lang, collate.IgnoreCase)
		slices.SortStableFunc(out, func(a, b store.Birthday) int {
			return order * col.CompareString(a.FullName(), b.FullName())
		})
	case config.SortDate:
		slices.SortStableFunc(out, func(a, b store.Birthday) int {
			return order * compareDates(a.BirthDate, b.BirthDate)
		})
	case config.SortAge:
		slices.SortStableFunc(out, func(a, b store.Birthday) int {
			return order * (a.Derived.GregorianAge - b.Derived.GregorianAge)
		})
	default:
		// Records without a next birthday always sink to the bottom.
		slices.SortStableFunc(out, func(a, b store.Birthday) int {
			an, bn := a.Derived.NextBirthday, b.Derived.NextBirthday
			switch {
			case an.IsZero() && bn.IsZero():
				return 0
			case an.IsZero():
				return 1
			case bn.IsZero():
				return -1
			}
			return order * compareDates(an, bn)
		})
	}
	return out
}

// inTimeframe matches the Gregorian month of the next birthday against the
// current or the following month. Pending records only match "all".
func inTimeframe(next engine.GregorianDate, timeframe string, now time.Time) bool {
	switch timeframe {
	case "", config.TimeframeAll:
		return true
	case config.TimeframeThisMonth:
		return !next.IsZero() && next.Month == now.Month()
	case config.TimeframeNextMonth:
		return !next.IsZero() && next.Month == now.Month()%12+1
	}
	return true
}

func compareDates(a, b engine.GregorianDate) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// Stats are the dashboard counters over a set of records.
type Stats struct {
	Total      int `json:"total"`
	Upcoming   int `json:"upcoming"`
	AverageAge int `json:"averageAge"`
	ThisMonth  int `json:"thisMonth"`
	Pending    int `json:"pending"`
}

// ComputeStats counts records, birthdays within the upcoming window, the
// rounded average Gregorian age and next birthdays in the current month.
func ComputeStats(all []store.Birthday, now time.Time) Stats {
	s := Stats{Total: len(all)}
	today := engine.DateOf(now)
	horizon := today.AddDays(config.UpcomingWindowDays)

	ageSum := 0
	for _, b := range all {
		ageSum += b.Derived.GregorianAge
		next := b.Derived.NextBirthday
		if b.Derived.Pending || next.IsZero() {
			s.Pending++
			continue
		}
		if !next.Before(today) && !next.After(horizon) {
			s.Upcoming++
		}
		if next.Month == now.Month() {
			s.ThisMonth++
		}
	}
	if s.Total > 0 {
		s.AverageAge = int(float64(ageSum)/float64(s.Total) + 0.5)
	}
	return s
}

// Stats computes the counters over the active records.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.db.ListBirthdays(ctx, false)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(all, s.clock.Now()), nil
}
