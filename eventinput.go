package main

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var timedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// EventInput carries the fields of an event create or update. Nil fields are
// left untouched on update.
type EventInput struct {
	Summary     *string
	Description *string
	Location    *string
	Start       *EventTime
	End         *EventTime
	Attendees   []string
}

func (in *EventInput) IsEmpty() bool {
	return in.Summary == nil && in.Description == nil && in.Location == nil &&
		in.Start == nil && in.End == nil && in.Attendees == nil
}

// parseTimeInput accepts a bare date, a local date-time or RFC3339 and
// reports whether a time of day was present.
func parseTimeInput(s string, loc *time.Location, now time.Time) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "today":
		return startOfDay(now.In(loc)), false, nil
	case "tomorrow":
		return startOfDay(now.In(loc)).AddDate(0, 0, 1), false, nil
	case "yesterday":
		return startOfDay(now.In(loc)).AddDate(0, 0, -1), false, nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, false, nil
	}
	for _, layout := range timedLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: cannot parse time %q (want YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC3339)", ErrUsage, s)
}

// buildEventTimes turns start/end flag values into provider times. The event
// is all-day when the flag is set or when neither input carries a time of day.
func buildEventTimes(startStr, endStr string, allDay bool, loc *time.Location, now time.Time) (EventTime, EventTime, error) {
	if startStr == "" {
		return EventTime{}, EventTime{}, fmt.Errorf("%w: start is required", ErrUsage)
	}
	start, startHasTime, err := parseTimeInput(startStr, loc, now)
	if err != nil {
		return EventTime{}, EventTime{}, err
	}

	var end time.Time
	endHasTime := false
	if endStr != "" {
		end, endHasTime, err = parseTimeInput(endStr, loc, now)
		if err != nil {
			return EventTime{}, EventTime{}, err
		}
	}

	if allDay || (!startHasTime && !endHasTime) {
		startDay := startOfDay(start)
		endDay := startDay.AddDate(0, 0, 1)
		if endStr != "" {
			if startOfDay(end).Before(startDay) {
				return EventTime{}, EventTime{}, fmt.Errorf("%w: end %s is before start %s", ErrUsage, endStr, startStr)
			}
			if startOfDay(end).After(startDay) {
				endDay = startOfDay(end)
			}
		}
		return EventTime{Date: startDay.Format(dateLayout)}, EventTime{Date: endDay.Format(dateLayout)}, nil
	}

	if endHasTime && !end.After(start) {
		return EventTime{}, EventTime{}, fmt.Errorf("%w: end %s must be after start %s", ErrUsage, endStr, startStr)
	}
	// A date-only end that does not reach past a timed start is ignored.
	if endStr == "" || !end.After(start) {
		end = start.Add(time.Hour)
	}
	return EventTime{DateTime: start}, EventTime{DateTime: end}, nil
}

// withExistingEnd fills the end of an update that moves the start without
// naming an end, keeping the length of the existing event. Input with an end
// or without a start is returned unchanged.
func withExistingEnd(in *EventInput, existing *RawEvent, loc *time.Location) *EventInput {
	if in == nil || in.Start == nil || in.End != nil {
		return in
	}
	out := *in

	hasEnd := existing.End.Date != "" || !existing.End.DateTime.IsZero()
	oldStart := existing.Start.Instant(loc)
	oldEnd := oldStart
	if hasEnd {
		oldEnd = existing.End.Instant(loc)
	}

	var end EventTime
	if out.Start.IsDate() {
		days := 1
		if existing.Start.IsDate() && hasEnd {
			if n := int(math.Round(oldEnd.Sub(oldStart).Hours() / 24)); n > 1 {
				days = n
			}
		}
		start, err := time.ParseInLocation(dateLayout, out.Start.Date, loc)
		if err != nil {
			return in
		}
		end = EventTime{Date: start.AddDate(0, 0, days).Format(dateLayout)}
	} else {
		length := time.Hour
		if !existing.Start.IsDate() && oldEnd.After(oldStart) {
			length = oldEnd.Sub(oldStart)
		}
		end = EventTime{DateTime: out.Start.DateTime.Add(length)}
	}
	out.End = &end
	return &out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func stringPtr(s string) *string {
	return &s
}
