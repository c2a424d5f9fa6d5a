package main

import (
	"fmt"
	"time"
)

const clockLayout = "15:04"

// NormalizedEvent is the export/display form of one provider event.
type NormalizedEvent struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Time        string  `json:"time"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Date        string  `json:"date"`
	Weekday     string  `json:"weekday"`
	DateLabel   string  `json:"date_formatted"`
	Location    string  `json:"location"`
	Description string  `json:"description"`
	AllDay      bool    `json:"all_day"`
}

type localeStrings struct {
	allDay   string
	noTitle  string
	weekdays [7]string
	short    [7]string
	months   [12]string
	label    func(l *localeStrings, t time.Time) string
}

var locales = map[string]*localeStrings{
	"en": {
		allDay:   "all day",
		noTitle:  "(no title)",
		weekdays: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		short:    [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		months:   [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		label: func(l *localeStrings, t time.Time) string {
			return fmt.Sprintf("%s, %s %d", l.short[t.Weekday()], l.months[t.Month()-1], t.Day())
		},
	},
	"de": {
		allDay:   "ganztägig",
		noTitle:  "(Kein Titel)",
		weekdays: [7]string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"},
		short:    [7]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"},
		months:   [12]string{"Jan", "Feb", "Mär", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"},
		label: func(l *localeStrings, t time.Time) string {
			return fmt.Sprintf("%s., %02d.%02d.", l.short[t.Weekday()], t.Day(), int(t.Month()))
		},
	},
}

// EventFormatter normalizes provider events into a fixed location and locale.
type EventFormatter struct {
	loc    *time.Location
	locale *localeStrings
}

// NewEventFormatter falls back to time.Local and English for nil/unknown input.
func NewEventFormatter(loc *time.Location, locale string) *EventFormatter {
	if loc == nil {
		loc = time.Local
	}
	l, ok := locales[locale]
	if !ok {
		l = locales["en"]
	}
	return &EventFormatter{loc: loc, locale: l}
}

func (f *EventFormatter) Location() *time.Location {
	return f.loc
}

// Format panics on an event without a start; callers only pass events
// returned by a provider.
func (f *EventFormatter) Format(ev *RawEvent) NormalizedEvent {
	if ev.Start.IsDate() && ev.Start.Date == "" {
		panic(fmt.Sprintf("event %q has no start", ev.ID))
	}

	start := ev.Start.Instant(f.loc)
	out := NormalizedEvent{
		ID:          ev.ID,
		Title:       ev.Summary,
		Date:        start.Format(dateLayout),
		Weekday:     f.Weekday(start),
		DateLabel:   f.locale.label(f.locale, start),
		Location:    ev.Location,
		Description: ev.Description,
		AllDay:      ev.AllDay(),
	}
	if out.Title == "" {
		out.Title = f.locale.noTitle
	}

	if out.AllDay {
		out.Date = ev.Start.Date
		out.Time = f.locale.allDay
		return out
	}

	startClock := start.Format(clockLayout)
	end := start
	if !ev.End.DateTime.IsZero() || ev.End.Date != "" {
		end = ev.End.Instant(f.loc)
	}
	endClock := end.Format(clockLayout)
	out.StartTime = &startClock
	out.EndTime = &endClock
	out.Time = startClock + " - " + endClock
	return out
}

func (f *EventFormatter) Weekday(t time.Time) string {
	return f.locale.weekdays[t.Weekday()]
}
