package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/hebday/internal/calendar"
	"pgregory.net/rapid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestFromGregorian_KnownDates checks well-known anchors (festivals) of the
// Hebrew calendar.
func TestFromGregorian_KnownDates(t *testing.T) {
	tests := []struct {
		name      string
		gregorian time.Time
		expected  calendar.Date
	}{
		{"Rosh Hashana 5784", day(2023, time.September, 16), calendar.Date{Year: 5784, Month: calendar.Tishrei, Day: 1}},
		{"Rosh Hashana 5785", day(2024, time.October, 3), calendar.Date{Year: 5785, Month: calendar.Tishrei, Day: 1}},
		{"Purim 5750 + 4 days", day(1990, time.March, 15), calendar.Date{Year: 5750, Month: calendar.Adar, Day: 18}},
		{"Purim 5784 (Adar II)", day(2024, time.March, 24), calendar.Date{Year: 5784, Month: calendar.AdarII, Day: 14}},
		{"Purim Katan 5784 (Adar I)", day(2024, time.February, 23), calendar.Date{Year: 5784, Month: calendar.AdarI, Day: 14}},
		{"Millennium", day(2000, time.January, 1), calendar.Date{Year: 5760, Month: calendar.Tevet, Day: 23}},
		{"Pesach 5785", day(2025, time.April, 13), calendar.Date{Year: 5785, Month: calendar.Nisan, Day: 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calendar.FromGregorian(tt.gregorian))

			back, err := calendar.ToGregorian(tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.gregorian, back)
		})
	}
}

func TestFromGregorian_IgnoresTimeOfDayAndZone(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	evening := time.Date(1990, time.March, 15, 23, 30, 0, 0, loc)

	assert.Equal(t, calendar.Date{Year: 5750, Month: calendar.Adar, Day: 18}, calendar.FromGregorian(evening))
}

func TestLeapYears(t *testing.T) {
	leap := []int{5784, 5787, 5790, 5793, 5795, 5798, 5801}
	common := []int{5783, 5785, 5786, 5788, 5789, 5791, 5792}

	for _, y := range leap {
		assert.True(t, calendar.IsLeapYear(y), "%d should be a leap year", y)
		assert.Equal(t, 13, calendar.MonthsInYear(y))
		assert.Len(t, calendar.Months(y), 13)
	}
	for _, y := range common {
		assert.False(t, calendar.IsLeapYear(y), "%d should be a common year", y)
		assert.Len(t, calendar.Months(y), 12)
	}
}

func TestYearAndMonthLengths(t *testing.T) {
	// 5784 runs from 2023-09-16 to 2024-10-02: a deficient leap year.
	assert.Equal(t, 383, calendar.DaysInYear(5784))
	assert.Equal(t, 29, calendar.DaysInMonth(5784, calendar.Cheshvan))
	assert.Equal(t, 29, calendar.DaysInMonth(5784, calendar.Kislev))
	assert.Equal(t, 30, calendar.DaysInMonth(5784, calendar.AdarI))
	assert.Equal(t, 29, calendar.DaysInMonth(5784, calendar.AdarII))
	assert.Equal(t, 0, calendar.DaysInMonth(5784, calendar.Adar), "plain Adar does not exist in a leap year")
	assert.Equal(t, 0, calendar.DaysInMonth(5785, calendar.AdarII), "Adar II does not exist in a common year")

	for y := 5700; y < 5900; y++ {
		length := calendar.DaysInYear(y)
		if calendar.IsLeapYear(y) {
			assert.Contains(t, []int{383, 384, 385}, length, "year %d", y)
		} else {
			assert.Contains(t, []int{353, 354, 355}, length, "year %d", y)
		}
	}
}

func TestToGregorian_InvalidDates(t *testing.T) {
	tests := []struct {
		name string
		date calendar.Date
	}{
		{"Adar II in common year", calendar.Date{Year: 5785, Month: calendar.AdarII, Day: 1}},
		{"Adar I in common year", calendar.Date{Year: 5785, Month: calendar.AdarI, Day: 1}},
		{"Plain Adar in leap year", calendar.Date{Year: 5784, Month: calendar.Adar, Day: 1}},
		{"Kislev 30 in deficient year", calendar.Date{Year: 5784, Month: calendar.Kislev, Day: 30}},
		{"Day zero", calendar.Date{Year: 5784, Month: calendar.Nisan, Day: 0}},
		{"Year zero", calendar.Date{Year: 0, Month: calendar.Nisan, Day: 1}},
		{"Unknown month", calendar.Date{Year: 5784, Month: calendar.Month(42), Day: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calendar.ToGregorian(tt.date)
			assert.ErrorIs(t, err, calendar.ErrInvalidDate)
		})
	}
}

func TestParseMonth(t *testing.T) {
	tests := map[string]calendar.Month{
		"Nisan":    calendar.Nisan,
		"Iyar":     calendar.Iyyar,
		"Sh'vat":   calendar.Shvat,
		"Shevat":   calendar.Shvat,
		"Heshvan":  calendar.Cheshvan,
		"Adar":     calendar.Adar,
		"Adar I":   calendar.AdarI,
		"Adar1":    calendar.AdarI,
		"adar 2":   calendar.AdarII,
		"ADAR-II":  calendar.AdarII,
		"Tishri":   calendar.Tishrei,
		"Tammuz":   calendar.Tamuz,
		"Cheshvan": calendar.Cheshvan,
	}
	for in, expected := range tests {
		got, err := calendar.ParseMonth(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, got, in)
	}

	_, err := calendar.ParseMonth("Brumaire")
	assert.ErrorIs(t, err, calendar.ErrUnknownMonth)
}

func TestMonth_TextRoundTrip(t *testing.T) {
	for m := calendar.Nisan; m <= calendar.AdarI; m++ {
		text, err := m.MarshalText()
		require.NoError(t, err)

		var back calendar.Month
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, m, back)
	}

	text, err := calendar.Month(0).MarshalText()
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = calendar.Month(99).MarshalText()
	assert.ErrorIs(t, err, calendar.ErrUnknownMonth)
}

func TestGematria(t *testing.T) {
	assert.Equal(t, "א׳", calendar.Gematria(1, false))
	assert.Equal(t, "ט״ו", calendar.Gematria(15, false))
	assert.Equal(t, "ט״ז", calendar.Gematria(16, false))
	assert.Equal(t, "י״ח", calendar.Gematria(18, false))
	assert.Equal(t, "כ׳", calendar.Gematria(20, false))
	assert.Equal(t, "ל׳", calendar.Gematria(30, false))
	assert.Equal(t, "תש״ן", calendar.Gematria(5750, true))
	assert.Equal(t, "תשפ״ד", calendar.Gematria(5784, true))
	assert.Equal(t, "תש״ף", calendar.Gematria(5780, true))
}

func TestFormatHebrew(t *testing.T) {
	d := calendar.Date{Year: 5750, Month: calendar.Adar, Day: 18}
	assert.Equal(t, "י״ח אדר תש״ן", calendar.FormatHebrew(d))
}

// TestRoundTrip_Property checks that every Gregorian day in a wide range
// survives a trip through the Hebrew calendar and that consecutive Gregorian
// days map to consecutive Hebrew days.
func TestRoundTrip_Property(t *testing.T) {
	base := day(1800, time.January, 1)

	rapid.Check(t, func(t *rapid.T) {
		offset := rapid.IntRange(0, 365*400).Draw(t, "offset")
		g := base.AddDate(0, 0, offset)

		h := calendar.FromGregorian(g)
		require.NoError(t, h.Validate())

		back, err := calendar.ToGregorian(h)
		require.NoError(t, err)
		assert.Equal(t, g, back)

		next := calendar.FromGregorian(g.AddDate(0, 0, 1))
		if h.Day < calendar.DaysInMonth(h.Year, h.Month) {
			assert.Equal(t, calendar.Date{Year: h.Year, Month: h.Month, Day: h.Day + 1}, next)
		} else {
			assert.Equal(t, 1, next.Day)
		}
	})
}

func TestNextMonth(t *testing.T) {
	tests := []struct {
		name      string
		year      int
		month     calendar.Month
		next      calendar.Month
		yearDelta int
	}{
		{"Cheshvan to Kislev", 5784, calendar.Cheshvan, calendar.Kislev, 0},
		{"Shvat to Adar in common year", 5785, calendar.Shvat, calendar.Adar, 0},
		{"Shvat to Adar I in leap year", 5784, calendar.Shvat, calendar.AdarI, 0},
		{"Adar I to Adar II", 5784, calendar.AdarI, calendar.AdarII, 0},
		{"Adar II to Nisan", 5784, calendar.AdarII, calendar.Nisan, 0},
		{"Elul wraps to next Tishrei", 5784, calendar.Elul, calendar.Tishrei, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, delta := calendar.NextMonth(tt.year, tt.month)
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.yearDelta, delta)
		})
	}
}
