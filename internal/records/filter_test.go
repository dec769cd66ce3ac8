package records_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/records"
	"github.com/tartampluch/hebday/internal/store"
	"golang.org/x/text/language"
)

func record(id, first, last, gender string, birth, next engine.GregorianDate, age int) store.Birthday {
	return store.Birthday{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Gender:    gender,
		BirthDate: birth,
		Derived: engine.Derivation{
			NextBirthday: next,
			GregorianAge: age,
			Pending:      next.IsZero(),
		},
	}
}

func fixtures() []store.Birthday {
	return []store.Birthday{
		record("a", "Alice", "Zed", config.GenderFemale, gd(1990, 4, 1), gd(2024, 4, 10), 34),
		record("b", "bob", "Adams", config.GenderMale, gd(2014, 3, 1), gd(2024, 3, 28), 10),
		record("c", "Carol", "Young", config.GenderFemale, gd(2000, 1, 1), engine.GregorianDate{}, 0),
	}
}

func ids(list []store.Birthday) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	now := at(2024, 3, 20)

	tests := []struct {
		name   string
		filter records.Filter
		want   []string
	}{
		{"Default order is next birthday, pending last", records.Filter{}, []string{"b", "a", "c"}},
		{"Descending keeps pending last", records.Filter{SortOrder: config.SortDesc}, []string{"a", "b", "c"}},
		{"Search is case insensitive", records.Filter{Search: " ALI "}, []string{"a"}},
		{"Search matches last name", records.Filter{Search: "adams"}, []string{"b"}},
		{"Gender", records.Filter{Gender: config.GenderFemale}, []string{"a", "c"}},
		{"This month", records.Filter{Timeframe: config.TimeframeThisMonth}, []string{"b"}},
		{"Next month", records.Filter{Timeframe: config.TimeframeNextMonth}, []string{"a"}},
		{"All timeframe includes pending", records.Filter{Timeframe: config.TimeframeAll}, []string{"b", "a", "c"}},
		{"Name ignores case", records.Filter{SortBy: config.SortName}, []string{"a", "b", "c"}},
		{"Name descending", records.Filter{SortBy: config.SortName, SortOrder: config.SortDesc}, []string{"c", "b", "a"}},
		{"Birth date", records.Filter{SortBy: config.SortDate}, []string{"a", "c", "b"}},
		{"Age descending", records.Filter{SortBy: config.SortAge, SortOrder: config.SortDesc}, []string{"a", "b", "c"}},
		{"No match", records.Filter{Search: "nobody"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			all := fixtures()
			got := records.Apply(all, tt.filter, now, language.English)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, []string{"a", "b", "c"}, ids(all), "input is not reordered")
		})
	}
}

func TestApply_NextMonthWrapsToJanuary(t *testing.T) {
	all := []store.Birthday{
		record("jan", "Jan", "Uary", "", gd(1990, 1, 5), gd(2025, 1, 5), 34),
		record("dec", "Dec", "Ember", "", gd(1990, 12, 30), gd(2024, 12, 30), 33),
	}
	got := records.Apply(all, records.Filter{Timeframe: config.TimeframeNextMonth}, at(2024, 12, 1), language.English)
	assert.Equal(t, []string{"jan"}, ids(got))
}

func TestApply_HebrewCollation(t *testing.T) {
	all := []store.Birthday{
		record("2", "שרה", "כץ", "", gd(1990, 1, 1), gd(2024, 5, 1), 34),
		record("1", "אברהם", "לוי", "", gd(1990, 1, 1), gd(2024, 6, 1), 34),
	}
	got := records.Apply(all, records.Filter{SortBy: config.SortName}, at(2024, 3, 1), language.Hebrew)
	assert.Equal(t, []string{"1", "2"}, ids(got))
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name string
		all  []store.Birthday
		want records.Stats
	}{
		{"Empty", nil, records.Stats{}},
		{
			"Mixed",
			fixtures(),
			// Ages 34, 10 and 0 average to 14.67.
			records.Stats{Total: 3, Upcoming: 1, AverageAge: 15, ThisMonth: 1, Pending: 1},
		},
		{
			"Upcoming window is inclusive",
			[]store.Birthday{
				record("today", "T", "Oday", "", gd(2000, 3, 20), gd(2024, 3, 20), 24),
				record("edge", "E", "Dge", "", gd(2000, 4, 3), gd(2024, 4, 3), 24),
				record("out", "O", "Ut", "", gd(2000, 4, 4), gd(2024, 4, 4), 24),
			},
			records.Stats{Total: 3, Upcoming: 2, AverageAge: 24, ThisMonth: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, records.ComputeStats(tt.all, at(2024, 3, 20)))
		})
	}
}
