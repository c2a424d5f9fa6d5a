package main

import (
	"context"
	"time"
)

const primaryCalendarID = "primary"

type CalendarProvider interface {
	ListCalendars(ctx context.Context) ([]*CalendarInfo, error)
	CreateCalendar(ctx context.Context, summary, timeZone string) (*CalendarInfo, error)
	DeleteCalendar(ctx context.Context, calendarID string) error

	ListEvents(ctx context.Context, calendarID string, query EventQuery) ([]*RawEvent, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*RawEvent, error)
	InsertEvent(ctx context.Context, calendarID string, input *EventInput) (*RawEvent, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, input *EventInput) (*RawEvent, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	MoveEvent(ctx context.Context, calendarID, eventID, destinationID string) (*RawEvent, error)
}

type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"time_zone,omitempty"`
	AccessRole  string `json:"access_role,omitempty"`
	Primary     bool   `json:"primary"`
}

// EventQuery selects events in the half-open range [From, To).
type EventQuery struct {
	From  time.Time
	To    time.Time
	Query string
	Limit int64
}

// EventTime is either a bare calendar date (all-day) or a timestamp.
type EventTime struct {
	Date     string    `json:"date,omitempty"`
	DateTime time.Time `json:"date_time,omitempty"`
}

func (t EventTime) IsDate() bool {
	return t.DateTime.IsZero()
}

// Instant returns the moment the time refers to, dates resolved to
// midnight in loc.
func (t EventTime) Instant(loc *time.Location) time.Time {
	if !t.IsDate() {
		return t.DateTime.In(loc)
	}
	d, err := time.ParseInLocation(dateLayout, t.Date, loc)
	if err != nil {
		return time.Time{}
	}
	return d
}

type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name,omitempty"`
	ResponseStatus string `json:"response_status,omitempty"`
	Optional       bool   `json:"optional,omitempty"`
}

type RawEvent struct {
	ID          string     `json:"id"`
	CalendarID  string     `json:"calendar_id,omitempty"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Status      string     `json:"status,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	Organizer   string     `json:"organizer,omitempty"`
	HTMLLink    string     `json:"html_link,omitempty"`
}

// AllDay reports whether the event starts on a bare date.
func (e *RawEvent) AllDay() bool {
	return e.Start.IsDate()
}
