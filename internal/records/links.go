package records

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/store"
)

const googleDateLayout = "20060102"

// LinkLabels are the localized titles of the two link types.
type LinkLabels struct {
	Hebrew    string
	Gregorian string
}

// CalendarLink builds a Google Calendar "add event" link for the next Hebrew
// or the next Gregorian birthday of b. A Hebrew link needs a computed
// derivation.
func CalendarLink(b store.Birthday, linkType string, labels LinkLabels, now time.Time) (string, error) {
	var (
		date    engine.GregorianDate
		label   string
		details string
	)
	switch linkType {
	case config.LinkTypeHebrew:
		if b.Derived.NextBirthday.IsZero() {
			return "", fmt.Errorf("%s: %s", config.ErrLinkPending, b.ID)
		}
		date = b.Derived.NextBirthday
		label = labels.Hebrew
		details = b.Derived.Hebrew.Display
	case config.LinkTypeGregorian:
		date = nextGregorianBirthday(b.BirthDate, now)
		label = labels.Gregorian
		details = b.BirthDate.Time(time.UTC).Format(config.DateFormatCSV)
	default:
		return "", fmt.Errorf("%s: %q", config.ErrLinkType, linkType)
	}

	title := fmt.Sprintf(config.FormatLinkTitle, b.FullName(), b.Derived.GregorianAge, label)
	// All-day events end on the following day.
	dates := date.Time(time.UTC).Format(googleDateLayout) + "/" + date.AddDays(1).Time(time.UTC).Format(googleDateLayout)

	q := url.Values{}
	q.Set(config.GoogleParamAction, config.GoogleActionTemplate)
	q.Set(config.GoogleParamText, title)
	q.Set(config.GoogleParamDates, dates)
	q.Set(config.GoogleParamDetails, details)
	return config.GoogleCalendarURL + "?" + q.Encode(), nil
}

// nextGregorianBirthday returns the first anniversary of birth on or after
// now's day. February 29 falls on March 1 in common years.
func nextGregorianBirthday(birth engine.GregorianDate, now time.Time) engine.GregorianDate {
	today := engine.DateOf(now)
	candidate := engine.DateOf(time.Date(today.Year, birth.Month, birth.Day, 0, 0, 0, 0, time.UTC))
	if candidate.Before(today) {
		candidate = engine.DateOf(time.Date(today.Year+1, birth.Month, birth.Day, 0, 0, 0, 0, time.UTC))
	}
	return candidate
}
