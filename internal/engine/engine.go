package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/config"
)

// Engine derives Hebrew birthdays and their upcoming occurrences, and renders
// them as an iCalendar feed.
type Engine struct {
	Converter DateConverter
	Projector *Projector
	Clock     Clock // Interface for time mocking.
	Count     int   // occurrences per projection

	// FormatSummary lets the app inject localized event titles. age is the
	// Hebrew age reached on the occurrence.
	FormatSummary func(name, hebrew string, age int) string

	// FormatDescription lets the app inject localized event descriptions.
	FormatDescription func(hebrew string, birth GregorianDate) string
}

// Derivation holds every field computed from a birth date and sunset flag.
// It is disposable and recomputed whenever either input changes.
type Derivation struct {
	Hebrew       HebrewDate    `json:"hebrewDate"`
	Projection   Projection    `json:"projection"`
	NextBirthday GregorianDate `json:"nextBirthday"`
	GregorianAge int           `json:"age"`
	HebrewAge    int           `json:"hebrewAge"`
	Pending      bool          `json:"pending"`
	ComputedAt   time.Time     `json:"computedAt"`
}

// CalendarEntry is one person in the iCalendar feed.
type CalendarEntry struct {
	UID    string // stable identifier; derived from name and birth when empty
	Name   string
	Birth  GregorianDate
	Hebrew HebrewDate
}

// CalendarResult is the output of BuildCalendar.
type CalendarResult struct {
	ICS    []byte
	Events int
	Today  int
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

func (e *Engine) count() int {
	if e.Count <= 0 {
		return config.DefaultProjectionCount
	}
	return e.Count
}

func (e *Engine) projector() *Projector {
	if e.Projector == nil {
		return &Projector{Converter: e.Converter}
	}
	return e.Projector
}

// CurrentHebrewYear returns the Hebrew year of the engine clock's current day.
func (e *Engine) CurrentHebrewYear() int {
	return calendar.FromGregorian(e.now()).Year
}

// Project returns the next occurrences of h after the engine clock's now.
// The scan starts one Hebrew year back so an anniversary late in the
// previous year that is still ahead in Gregorian terms is not missed.
func (e *Engine) Project(ctx context.Context, h HebrewDate, count int) (Projection, error) {
	if count <= 0 {
		count = e.count()
	}
	start := max(h.Year, e.CurrentHebrewYear()-1)
	return e.projector().NextOccurrences(ctx, h.Month, h.Day, start, h.AfterSunset, count, e.now())
}

// Derive converts birth and projects its upcoming Hebrew birthdays. When the
// projection is incomplete the derivation is still returned with the error;
// it is marked Pending when no occurrence could be computed at all.
func (e *Engine) Derive(ctx context.Context, birth GregorianDate, afterSunset bool) (Derivation, error) {
	now := e.now()
	d := Derivation{ComputedAt: now, GregorianAge: GregorianAge(birth, now)}

	h, err := e.Converter.ToHebrew(ctx, birth, afterSunset)
	if err != nil {
		d.Pending = true
		return d, err
	}
	d.Hebrew = h
	d.HebrewAge = HebrewAge(h.Year, e.CurrentHebrewYear())

	proj, err := e.Project(ctx, h, e.count())
	d.Projection = proj
	if next, ok := proj.Next(); ok {
		d.NextBirthday = next.Date
	}
	d.Pending = len(proj.Occurrences) == 0
	return d, err
}

// BuildCalendar renders one all-day event per upcoming Hebrew birthday of
// each entry, today's included. Entries whose projection fails entirely are
// left out. It also returns how many birthdays fall today.
func (e *Engine) BuildCalendar(ctx context.Context, entries []CalendarEntry, reminderTrigger string) (CalendarResult, error) {
	start := time.Now()
	cal := ical.NewCalendar()

	// Set standard iCalendar headers
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	now := e.now()
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	today := DateOf(now)
	// Just before local midnight so that today's birthdays are kept.
	reference := today.Time(e.projector().location()).Add(-time.Nanosecond)
	currentYear := e.CurrentHebrewYear()

	result := CalendarResult{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return CalendarResult{}, err
		}

		h := entry.Hebrew
		startYear := max(h.Year, currentYear-1)
		proj, err := e.projector().NextOccurrences(ctx, h.Month, h.Day, startYear, h.AfterSunset, e.count(), reference)
		if ctx.Err() != nil {
			return CalendarResult{}, ctx.Err()
		}
		if err != nil && !errors.Is(err, ErrPartialProjection) && !errors.Is(err, ErrProjectionExhausted) {
			slog.Warn(config.MsgRecordPending,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyName, entry.Name,
				config.LogKeyError, err,
			)
			continue
		}

		uidBase := entry.UID
		if uidBase == "" {
			uidBase = deriveUID(entry.Name, entry.Birth)
		}
		for _, occ := range proj.Occurrences {
			event := e.createEvent(entry, occ, uidBase, reminderTrigger)
			event.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, event.Component)
			result.Events++

			if occ.Date == today {
				result.Today++
				slog.Info(config.MsgBdayToday,
					config.LogKeyComponent, config.CompEngine,
					config.LogKeyName, entry.Name,
					config.LogKeyHebrew, h.Display,
				)
			}
		}
	}

	// An empty VCALENDAR still has to be a valid feed.
	if len(cal.Children) == 0 {
		result.ICS = []byte(config.StubVCalendar)
		e.logSuccess(len(entries), result, start)
		return result, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return CalendarResult{}, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	result.ICS = buf.Bytes()

	e.logSuccess(len(entries), result, start)
	return result, nil
}

func (e *Engine) createEvent(entry CalendarEntry, occ Occurrence, uidBase, reminderTrigger string) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, occ.HebrewYear, config.ICalDomain))

	name := entry.Name
	if name == "" {
		name = config.FallbackName
	}
	hebrew := calendar.FormatHebrew(calendar.Date{Year: occ.HebrewYear, Month: occ.Month, Day: occ.Day})
	age := HebrewAge(entry.Hebrew.Year, occ.HebrewYear)

	var summary string
	switch {
	case e.FormatSummary != nil:
		summary = e.FormatSummary(name, hebrew, age)
	case age == 0:
		summary = fmt.Sprintf(config.FallbackSummaryBirth, name, hebrew)
	default:
		summary = fmt.Sprintf(config.FallbackSummaryAge, name, hebrew, age)
	}
	event.Props.SetText(config.PropSummary, summary)

	description := fmt.Sprintf(config.FallbackDescription, entry.Hebrew.Display, entry.Birth)
	if e.FormatDescription != nil {
		description = e.FormatDescription(entry.Hebrew.Display, entry.Birth)
	}
	event.Props.SetText(config.PropDescription, description)

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(occ.Date.Time(time.UTC))
	event.Props.Set(dtStartProp)

	if reminderTrigger != "" {
		addAlarm(event, reminderTrigger, summary)
	}
	return event
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}

// deriveUID hashes name and birth date into a stable event identifier.
func deriveUID(name string, birth GregorianDate) string {
	input := fmt.Sprintf(config.FormatHashInput, name, birth, config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:config.UIDHashLength])
}

func (e *Engine) logSuccess(entries int, r CalendarResult, start time.Time) {
	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompEngine,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyRecords, entries),
			slog.Int(config.LogKeyEvents, r.Events),
			slog.Int(config.LogKeyToday, r.Today),
		),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
}
