package engine_test

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/engine"
	"pgregory.net/rapid"
)

func localProjector() *engine.Projector {
	return &engine.Projector{Converter: engine.LocalConverter{}, Location: time.UTC}
}

func assertWellFormed(t *testing.T, p engine.Projection, now time.Time) {
	t.Helper()
	for i, occ := range p.Occurrences {
		assert.True(t, occ.Date.Time(time.UTC).After(now), "occurrence %s not after %s", occ.Date, now)
		if i > 0 {
			assert.True(t, occ.Date.After(p.Occurrences[i-1].Date), "occurrences not increasing at %d", i)
			assert.Greater(t, occ.HebrewYear, p.Occurrences[i-1].HebrewYear)
		}
		back := calendar.FromGregorian(occ.Date.Time(time.UTC))
		assert.Equal(t, calendar.Date{Year: occ.HebrewYear, Month: occ.Month, Day: occ.Day}, back)
	}
}

func TestNextOccurrences_BirthdayScenario(t *testing.T) {
	// 1990-03-15 is 18 Adar 5750.
	now := at(2024, 1, 1)
	// Plain Adar does not exist in the leap years 5784, 5787 and 5790.
	p, err := localProjector().NextOccurrences(context.Background(), calendar.Adar, 18, 5783, false, 5, now)
	require.NoError(t, err)
	require.Len(t, p.Occurrences, 5)
	assertWellFormed(t, p, now)

	assert.Equal(t, gd(2025, 3, 18), p.Occurrences[0].Date)
	assert.Equal(t, gd(2026, 3, 7), p.Occurrences[1].Date)

	years := make([]int, 0, 5)
	for _, occ := range p.Occurrences {
		assert.Equal(t, calendar.Adar, occ.Month)
		assert.Equal(t, 18, occ.Day)
		assert.False(t, calendar.IsLeapYear(occ.HebrewYear))
		years = append(years, occ.HebrewYear)
	}
	assert.Equal(t, []int{5785, 5786, 5788, 5789, 5791}, years)
	assert.Len(t, p.Dates(), 5)
}

func TestNextOccurrences_AdarIISkipsCommonYears(t *testing.T) {
	// 2024-03-24 is 14 Adar II 5784, already past on 2024-04-01.
	now := at(2024, 4, 1)
	p, err := localProjector().NextOccurrences(context.Background(), calendar.AdarII, 14, 5784, false, 5, now)
	require.NoError(t, err)
	require.Len(t, p.Occurrences, 5)
	assertWellFormed(t, p, now)

	var years []int
	for _, occ := range p.Occurrences {
		assert.Equal(t, calendar.AdarII, occ.Month)
		assert.True(t, calendar.IsLeapYear(occ.HebrewYear))
		years = append(years, occ.HebrewYear)
	}
	assert.Equal(t, []int{5787, 5790, 5793, 5795, 5798}, years)
}

func TestNextOccurrences_Policies(t *testing.T) {
	now := at(2024, 1, 1)

	tests := []struct {
		name      string
		policy    engine.Policy
		month     calendar.Month
		day       int
		wantYears []int
		wantMonth map[int]calendar.Month
	}{
		{
			name:      "observed plain Adar moves to Adar II",
			policy:    engine.PolicyObserved,
			month:     calendar.Adar,
			day:       18,
			wantYears: []int{5784, 5785, 5786, 5787, 5788},
			wantMonth: map[int]calendar.Month{5784: calendar.AdarII, 5785: calendar.Adar, 5787: calendar.AdarII},
		},
		{
			name:      "default policy skips leap years for plain Adar",
			month:     calendar.Adar,
			day:       18,
			wantYears: []int{5785, 5786, 5788, 5789, 5791},
			wantMonth: map[int]calendar.Month{5785: calendar.Adar, 5788: calendar.Adar},
		},
		{
			name:      "strict plain Adar skips leap years",
			policy:    engine.PolicyStrict,
			month:     calendar.Adar,
			day:       18,
			wantYears: []int{5785, 5786, 5788, 5789, 5791},
		},
		{
			name:      "Adar I skips common years under both policies",
			policy:    engine.PolicyObserved,
			month:     calendar.AdarI,
			day:       10,
			wantYears: []int{5784, 5787, 5790, 5793, 5795},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj := localProjector()
			proj.Policy = tt.policy
			p, err := proj.NextOccurrences(context.Background(), tt.month, tt.day, 5783, false, 5, now)
			require.NoError(t, err)
			assertWellFormed(t, p, now)

			var years []int
			for _, occ := range p.Occurrences {
				years = append(years, occ.HebrewYear)
				if want, ok := tt.wantMonth[occ.HebrewYear]; ok {
					assert.Equal(t, want, occ.Month, "year %d", occ.HebrewYear)
				}
			}
			assert.Equal(t, tt.wantYears, years)
		})
	}
}

func TestNextOccurrences_ThirtiethInShortMonth(t *testing.T) {
	// Kislev 5784 has 29 days.
	now := at(2023, 9, 20)
	require.Equal(t, 29, calendar.DaysInMonth(5784, calendar.Kislev))

	observed := localProjector()
	observed.Policy = engine.PolicyObserved
	p, err := observed.NextOccurrences(context.Background(), calendar.Kislev, 30, 5784, false, 1, now)
	require.NoError(t, err)
	require.Len(t, p.Occurrences, 1)
	assert.Equal(t, 5784, p.Occurrences[0].HebrewYear)
	assert.Equal(t, calendar.Tevet, p.Occurrences[0].Month)
	assert.Equal(t, 1, p.Occurrences[0].Day)

	strict := localProjector()
	strict.Policy = engine.PolicyStrict
	p, err = strict.NextOccurrences(context.Background(), calendar.Kislev, 30, 5784, false, 1, now)
	require.NoError(t, err)
	require.Len(t, p.Occurrences, 1)
	assert.Greater(t, p.Occurrences[0].HebrewYear, 5784)
	assert.Equal(t, calendar.Kislev, p.Occurrences[0].Month)
	assert.Equal(t, 30, p.Occurrences[0].Day)
}

func TestNextOccurrences_OneYearFails(t *testing.T) {
	conv := newFlaky(5786)
	proj := &engine.Projector{Converter: conv, Location: time.UTC}
	now := at(2024, 1, 1)

	p, err := proj.NextOccurrences(context.Background(), calendar.Adar, 18, 5783, false, 5, now)

	require.ErrorIs(t, err, engine.ErrPartialProjection)
	assert.NotErrorIs(t, err, engine.ErrProjectionExhausted)
	assert.True(t, p.Partial)
	assert.Equal(t, []int{5786}, p.FailedYears)
	require.Len(t, p.Occurrences, 4)
	assertWellFormed(t, p, now)
	assert.Equal(t, 2, conv.callsFor(5786), "failed year retried exactly once")
}

func TestNextOccurrences_PastFailedYearIgnored(t *testing.T) {
	// 5783 ended in September 2023; its failure cannot cost an occurrence.
	conv := newFlaky(5783)
	proj := &engine.Projector{Converter: conv, Location: time.UTC}
	now := at(2024, 1, 1)

	p, err := proj.NextOccurrences(context.Background(), calendar.Adar, 18, 5783, false, 5, now)
	require.NoError(t, err)
	assert.False(t, p.Partial)
	assert.Empty(t, p.FailedYears)
	assert.Len(t, p.Occurrences, 5)
}

func TestNextOccurrences_AllYearsFail(t *testing.T) {
	conv := newFlaky()
	for y := 5780; y < 5820; y++ {
		conv.fail[y] = true
	}
	proj := &engine.Projector{Converter: conv, Location: time.UTC}

	p, err := proj.NextOccurrences(context.Background(), calendar.Nisan, 1, 5783, false, 5, at(2024, 1, 1))

	require.ErrorIs(t, err, engine.ErrConversionUnavailable)
	assert.NotErrorIs(t, err, engine.ErrPartialProjection)
	assert.True(t, p.Partial)
	assert.Empty(t, p.Occurrences)
	assert.Equal(t, []int{5784, 5785, 5786, 5787, 5788}, p.FailedYears)
}

func TestNextOccurrences_Exhausted(t *testing.T) {
	proj := localProjector()
	proj.Ceiling = 3

	// 5785..5787 holds a single leap year.
	p, err := proj.NextOccurrences(context.Background(), calendar.AdarII, 14, 5785, false, 5, at(2024, 10, 10))

	require.ErrorIs(t, err, engine.ErrProjectionExhausted)
	require.Len(t, p.Occurrences, 1)
	assert.Equal(t, 5787, p.Occurrences[0].HebrewYear)
}

func TestNextOccurrences_InvalidInput(t *testing.T) {
	proj := localProjector()
	ctx := context.Background()
	now := at(2024, 1, 1)

	_, err := proj.NextOccurrences(ctx, calendar.Month(0), 1, 5784, false, 5, now)
	assert.ErrorIs(t, err, engine.ErrInvalidHebrewDate)

	_, err = proj.NextOccurrences(ctx, calendar.Nisan, 31, 5784, false, 5, now)
	assert.ErrorIs(t, err, engine.ErrInvalidHebrewDate)

	p, err := proj.NextOccurrences(ctx, calendar.Nisan, 1, 5784, false, 0, now)
	assert.NoError(t, err)
	assert.Empty(t, p.Occurrences)
}

// blockingConverter never answers before the context ends.
type blockingConverter struct {
	engine.LocalConverter
	started atomic.Int32
}

func (b *blockingConverter) ToGregorian(ctx context.Context, year int, month calendar.Month, day int) (engine.GregorianDate, error) {
	b.started.Add(1)
	<-ctx.Done()
	return engine.GregorianDate{}, ctx.Err()
}

func TestNextOccurrences_Cancellation(t *testing.T) {
	conv := &blockingConverter{}
	proj := &engine.Projector{Converter: conv, Location: time.UTC, Concurrency: 3}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := proj.NextOccurrences(ctx, calendar.Nisan, 1, 5784, false, 5, at(2024, 1, 1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 3, conv.started.Load(), "one window in flight")
}

// jitterConverter delays every answer by a random amount so concurrent
// lookups complete out of order.
type jitterConverter struct {
	engine.LocalConverter
}

func (jitterConverter) ToGregorian(ctx context.Context, year int, month calendar.Month, day int) (engine.GregorianDate, error) {
	time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	return engine.LocalConverter{}.ToGregorian(ctx, year, month, day)
}

func TestNextOccurrences_DeterministicUnderConcurrency(t *testing.T) {
	now := at(2024, 1, 1)
	want, err := localProjector().NextOccurrences(context.Background(), calendar.AdarI, 30, 5783, false, 5, now)
	require.NoError(t, err)

	for _, workers := range []int{1, 2, 7, 25} {
		proj := &engine.Projector{Converter: jitterConverter{}, Location: time.UTC, Concurrency: workers}
		got, err := proj.NextOccurrences(context.Background(), calendar.AdarI, 30, 5783, false, 5, now)
		require.NoError(t, err)
		assert.Equal(t, want, got, "concurrency %d", workers)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := engine.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, engine.PolicyStrict, p)

	p, err = engine.ParsePolicy("observed")
	require.NoError(t, err)
	assert.Equal(t, engine.PolicyObserved, p)

	_, err = engine.ParsePolicy("lenient")
	assert.Error(t, err)
}

func TestNextOccurrences_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		birth := engine.DateOf(at(1900, 1, 1).AddDate(0, 0, rapid.IntRange(0, 47000).Draw(t, "birthOffset")))
		afterSunset := rapid.Bool().Draw(t, "afterSunset")
		now := at(2000, 1, 1).Add(time.Duration(rapid.IntRange(0, 40*365*24).Draw(t, "nowHours")) * time.Hour)

		e := newEngine(engine.LocalConverter{}, now)
		d, err := e.Derive(context.Background(), birth, afterSunset)
		if err != nil {
			t.Fatalf("derive %s: %v", birth, err)
		}
		if len(d.Projection.Occurrences) != 5 {
			t.Fatalf("got %d occurrences for %s", len(d.Projection.Occurrences), birth)
		}
		for i, occ := range d.Projection.Occurrences {
			if !occ.Date.Time(time.UTC).After(now) {
				t.Fatalf("occurrence %s not after %s", occ.Date, now)
			}
			if i > 0 && !occ.Date.After(d.Projection.Occurrences[i-1].Date) {
				t.Fatalf("occurrences not increasing: %v", d.Projection.Dates())
			}
			if occ.Month != d.Hebrew.Month || occ.Day != d.Hebrew.Day {
				t.Fatalf("occurrence %d %s differs from birth %d %s", occ.Day, occ.Month, d.Hebrew.Day, d.Hebrew.Month)
			}
		}
	})
}
