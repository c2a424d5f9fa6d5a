package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teambition/rrule-go"
)

const maxOccurrencesPerEvent = 5000

type CalDAVProvider struct {
	client    *caldav.Client
	serverURL string
	loc       *time.Location
}

func NewCalDAVProvider(ctx context.Context, serverURL, username, password string, loc *time.Location) (*CalDAVProvider, error) {
	baseURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CalDAV server URL: %w", err)
	}

	var httpClient webdav.HTTPClient = http.DefaultClient
	if username != "" && password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, username, password)
	}

	c, err := caldav.NewClient(httpClient, baseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}

	return &CalDAVProvider{
		client:    c,
		serverURL: serverURL,
		loc:       loc,
	}, nil
}

func (c *CalDAVProvider) findCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	principal, err := c.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}
	homeSet, err := c.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}
	calendars, err := c.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}
	return calendars, nil
}

func (c *CalDAVProvider) ListCalendars(ctx context.Context) ([]*CalendarInfo, error) {
	calendars, err := c.findCalendars(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*CalendarInfo, 0, len(calendars))
	for i, cal := range calendars {
		result = append(result, &CalendarInfo{
			ID:          cal.Path,
			Summary:     cal.Name,
			Description: cal.Description,
			Primary:     i == 0,
		})
	}
	return result, nil
}

func (c *CalDAVProvider) CreateCalendar(ctx context.Context, summary, timeZone string) (*CalendarInfo, error) {
	return nil, fmt.Errorf("caldav create calendar: %w", ErrUnsupported)
}

func (c *CalDAVProvider) DeleteCalendar(ctx context.Context, calendarID string) error {
	return fmt.Errorf("caldav delete calendar: %w", ErrUnsupported)
}

func (c *CalDAVProvider) MoveEvent(ctx context.Context, calendarID, eventID, destinationID string) (*RawEvent, error) {
	return nil, fmt.Errorf("caldav move event: %w", ErrUnsupported)
}

// calendarPath turns a calendar reference into a collection path; the
// primary calendar is the first one in the home set.
func (c *CalDAVProvider) calendarPath(ctx context.Context, calendarID string) (string, error) {
	if calendarID == primaryCalendarID {
		calendars, err := c.findCalendars(ctx)
		if err != nil {
			return "", err
		}
		if len(calendars) == 0 {
			return "", fmt.Errorf("no calendars found on %s", c.serverURL)
		}
		return calendars[0].Path, nil
	}
	calURL, err := url.Parse(calendarID)
	if err != nil {
		return "", fmt.Errorf("invalid calendar URL: %w", err)
	}
	return strings.TrimRight(calURL.Path, "/"), nil
}

// objectPath is the resource holding the whole series of uid.
func (c *CalDAVProvider) objectPath(ctx context.Context, calendarID, uid string) (string, error) {
	calPath, err := c.calendarPath(ctx, calendarID)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(calPath, "/") + "/" + uid + ".ics", nil
}

func (c *CalDAVProvider) ListEvents(ctx context.Context, calendarID string, query EventQuery) ([]*RawEvent, error) {
	calPath, err := c.calendarPath(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	calQuery := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: query.From,
				End:   query.To,
			}},
		},
	}

	objects, err := c.client.QueryCalendar(ctx, calPath, calQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var comps []*ical.Component
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, comp := range obj.Data.Component.Children {
			if comp.Name == ical.CompEvent {
				comps = append(comps, comp)
			}
		}
	}

	events := expandVEvents(calendarID, comps, query.From, query.To, c.loc)
	if query.Query != "" {
		events = filterEventsByText(events, query.Query)
	}
	if query.Limit > 0 && int64(len(events)) > query.Limit {
		events = events[:query.Limit]
	}
	return events, nil
}

func (c *CalDAVProvider) GetEvent(ctx context.Context, calendarID, eventID string) (*RawEvent, error) {
	ref := parseEventRef(eventID)
	path, err := c.objectPath(ctx, calendarID, ref.uid)
	if err != nil {
		return nil, err
	}
	object, err := c.client.GetCalendarObject(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if ref.occurrence != nil {
		return instanceEvent(object.Data, calendarID, ref, c.loc)
	}
	comp := findVEvent(object.Data)
	if comp == nil {
		return nil, fmt.Errorf("no VEVENT component found in calendar object")
	}
	ve, err := parseVEvent(comp, c.loc)
	if err != nil {
		return nil, err
	}
	return ve.rawEvent(calendarID, ve.uid, ve.start, ve.end), nil
}

func (c *CalDAVProvider) InsertEvent(ctx context.Context, calendarID string, input *EventInput) (*RawEvent, error) {
	if input.Start == nil || input.End == nil {
		return nil, fmt.Errorf("%w: event start and end are required", ErrUsage)
	}
	eventUID := uuid.NewString()

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, eventUID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetText(ical.PropStatus, "CONFIRMED")
	applyICalInput(event.Component, input)

	path, err := c.objectPath(ctx, calendarID, eventUID)
	if err != nil {
		return nil, err
	}
	if _, err := c.client.PutCalendarObject(ctx, path, wrapICalEvent(event.Component)); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	ve, err := parseVEvent(event.Component, c.loc)
	if err != nil {
		return nil, err
	}
	return ve.rawEvent(calendarID, eventUID, ve.start, ve.end), nil
}

// UpdateEvent changes the whole series for a series ID and only the one
// occurrence, through a RECURRENCE-ID override, for an instance ID.
func (c *CalDAVProvider) UpdateEvent(ctx context.Context, calendarID, eventID string, input *EventInput) (*RawEvent, error) {
	ref := parseEventRef(eventID)
	path, err := c.objectPath(ctx, calendarID, ref.uid)
	if err != nil {
		return nil, err
	}
	object, err := c.client.GetCalendarObject(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	var comp *ical.Component
	id := ref.uid
	if ref.occurrence != nil {
		if comp, err = updateInstance(object.Data, ref, input, c.loc); err != nil {
			return nil, err
		}
		id = eventID
	} else {
		if comp = findVEvent(object.Data); comp == nil {
			return nil, fmt.Errorf("no VEVENT component found in calendar object")
		}
		existing, err := parseVEvent(comp, c.loc)
		if err != nil {
			return nil, err
		}
		input = withExistingEnd(input, existing.rawEvent(calendarID, existing.uid, existing.start, existing.end), c.loc)
		applyICalInput(comp, input)
	}
	comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	if _, err := c.client.PutCalendarObject(ctx, path, object.Data); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	ve, err := parseVEvent(comp, c.loc)
	if err != nil {
		return nil, err
	}
	return ve.rawEvent(calendarID, id, ve.start, ve.end), nil
}

// DeleteEvent removes the resource for a series ID; an instance ID only
// excludes that occurrence from its series.
func (c *CalDAVProvider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	ref := parseEventRef(eventID)
	path, err := c.objectPath(ctx, calendarID, ref.uid)
	if err != nil {
		return err
	}
	if ref.occurrence == nil {
		if err := c.client.Client.RemoveAll(ctx, path); err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return nil
	}

	object, err := c.client.GetCalendarObject(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if err := excludeInstance(object.Data, *ref.occurrence, c.loc); err != nil {
		return err
	}
	if _, err := c.client.PutCalendarObject(ctx, path, object.Data); err != nil {
		return fmt.Errorf("failed to delete event instance: %w", err)
	}
	return nil
}

const instanceIDLayout = "20060102T150405Z"

// eventRef is an event ID split into the series UID and, for an expanded
// occurrence, the start the occurrence has in the series.
type eventRef struct {
	uid        string
	occurrence *time.Time
}

func instanceID(uid string, occStart time.Time) string {
	return uid + "_" + occStart.UTC().Format(instanceIDLayout)
}

// parseEventRef treats an ID as an instance ID only when the part after the
// last underscore is an instance timestamp, so UIDs may contain underscores.
func parseEventRef(eventID string) eventRef {
	i := strings.LastIndex(eventID, "_")
	if i <= 0 {
		return eventRef{uid: eventID}
	}
	occ, err := time.Parse(instanceIDLayout, eventID[i+1:])
	if err != nil {
		return eventRef{uid: eventID}
	}
	return eventRef{uid: eventID[:i], occurrence: &occ}
}

// instanceEvent returns one occurrence of a series: its override when there
// is one, otherwise the master moved to the occurrence.
func instanceEvent(cal *ical.Calendar, calendarID string, ref eventRef, loc *time.Location) (*RawEvent, error) {
	occ := *ref.occurrence
	id := instanceID(ref.uid, occ)

	if o := findOverrideComponent(cal, occ, loc); o != nil {
		ve, err := parseVEvent(o, loc)
		if err != nil {
			return nil, err
		}
		if ve.status == "cancelled" {
			return nil, fmt.Errorf("%w: instance %s is cancelled", ErrNotFound, id)
		}
		return ve.rawEvent(calendarID, id, ve.start, ve.end), nil
	}

	ve, err := recurringMaster(cal, occ, loc)
	if err != nil {
		return nil, err
	}
	start := occ.In(ve.start.Location())
	return ve.rawEvent(calendarID, id, start, start.Add(ve.end.Sub(ve.start))), nil
}

// recurringMaster decodes the series master and checks that occ is one of its
// occurrences.
func recurringMaster(cal *ical.Calendar, occ time.Time, loc *time.Location) (*vevent, error) {
	master := findVEvent(cal)
	if master == nil {
		return nil, fmt.Errorf("no VEVENT component found in calendar object")
	}
	ve, err := parseVEvent(master, loc)
	if err != nil {
		return nil, err
	}
	if ve.rrule == "" {
		return nil, fmt.Errorf("%w: event %s does not recur", ErrNotFound, ve.uid)
	}
	set, err := ve.recurrence()
	if err != nil {
		return nil, err
	}
	for _, t := range set.Between(occ.Add(-time.Second), occ.Add(time.Second), true) {
		if t.Equal(occ) {
			return ve, nil
		}
	}
	return nil, fmt.Errorf("%w: event %s has no occurrence at %s", ErrNotFound, ve.uid, occ.UTC().Format(instanceIDLayout))
}

// updateInstance applies input to the override of one occurrence, creating
// the override from the master when the occurrence has none yet.
func updateInstance(cal *ical.Calendar, ref eventRef, input *EventInput, loc *time.Location) (*ical.Component, error) {
	existing, err := instanceEvent(cal, "", ref, loc)
	if err != nil {
		return nil, err
	}
	occ := *ref.occurrence

	override := findOverrideComponent(cal, occ, loc)
	if override == nil {
		master := findVEvent(cal)
		override = ical.NewComponent(ical.CompEvent)
		for name, props := range master.Props {
			switch name {
			case ical.PropRecurrenceRule, ical.PropRecurrenceDates, ical.PropExceptionDates, ical.PropDuration:
				continue
			}
			override.Props[name] = append([]ical.Prop(nil), props...)
		}
		override.Props.Set(occurrenceProp(ical.PropRecurrenceID, occ, existing.AllDay(), loc))
		setICalTime(override, ical.PropDateTimeStart, existing.Start)
		setICalTime(override, ical.PropDateTimeEnd, existing.End)
		cal.Children = append(cal.Children, override)
	}

	applyICalInput(override, withExistingEnd(input, existing, loc))
	return override, nil
}

// excludeInstance drops one occurrence from a series with an EXDATE and
// removes its override, if any.
func excludeInstance(cal *ical.Calendar, occ time.Time, loc *time.Location) error {
	ve, err := recurringMaster(cal, occ, loc)
	if err != nil {
		return err
	}

	children := cal.Children[:0]
	for _, comp := range cal.Children {
		if comp.Name == ical.CompEvent && isOverrideOf(comp, occ, loc) {
			continue
		}
		children = append(children, comp)
	}
	cal.Children = children

	findVEvent(cal).Props.Add(occurrenceProp(ical.PropExceptionDates, occ, ve.allDay, loc))
	return nil
}

func occurrenceProp(name string, occ time.Time, allDay bool, loc *time.Location) *ical.Prop {
	prop := ical.NewProp(name)
	if allDay {
		prop.SetDate(occ.In(loc))
	} else {
		prop.SetDateTime(occ.UTC())
	}
	return prop
}

func findOverrideComponent(cal *ical.Calendar, occ time.Time, loc *time.Location) *ical.Component {
	for _, comp := range cal.Children {
		if comp.Name == ical.CompEvent && isOverrideOf(comp, occ, loc) {
			return comp
		}
	}
	return nil
}

func isOverrideOf(comp *ical.Component, occ time.Time, loc *time.Location) bool {
	rid := comp.Props.Get(ical.PropRecurrenceID)
	if rid == nil {
		return false
	}
	t, err := rid.DateTime(loc)
	return err == nil && t.Equal(occ)
}

// vevent is a decoded VEVENT before recurrence expansion.
type vevent struct {
	uid          string
	summary      string
	description  string
	location     string
	status       string
	organizer    string
	attendees    []Attendee
	allDay       bool
	start        time.Time
	end          time.Time
	rrule        string
	exdates      []time.Time
	recurrenceID *time.Time
}

func parseVEvent(comp *ical.Component, loc *time.Location) (*vevent, error) {
	ve := &vevent{
		uid:         getTextProp(comp.Props, ical.PropUID),
		summary:     getTextProp(comp.Props, ical.PropSummary),
		description: getTextProp(comp.Props, ical.PropDescription),
		location:    getTextProp(comp.Props, ical.PropLocation),
		status:      strings.ToLower(getTextProp(comp.Props, ical.PropStatus)),
		rrule:       getTextProp(comp.Props, ical.PropRecurrenceRule),
	}
	if ve.status == "" {
		ve.status = "confirmed"
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return nil, fmt.Errorf("event %s has no DTSTART", ve.uid)
	}
	start, err := startProp.DateTime(loc)
	if err != nil {
		return nil, fmt.Errorf("event %s: parsing DTSTART: %w", ve.uid, err)
	}
	ve.start = start
	ve.allDay = startProp.ValueType() == ical.ValueDate

	ve.end = start.Add(time.Hour)
	if ve.allDay {
		ve.end = start.AddDate(0, 0, 1)
	}
	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		if end, err := endProp.DateTime(loc); err == nil {
			ve.end = end
		}
	}

	if ridProp := comp.Props.Get(ical.PropRecurrenceID); ridProp != nil {
		if rid, err := ridProp.DateTime(loc); err == nil {
			ve.recurrenceID = &rid
		}
	}

	for _, ex := range comp.Props.Values(ical.PropExceptionDates) {
		for _, v := range strings.Split(ex.Value, ",") {
			p := ical.Prop{Name: ex.Name, Params: ex.Params, Value: v}
			if t, err := p.DateTime(loc); err == nil {
				ve.exdates = append(ve.exdates, t)
			}
		}
	}

	if org := comp.Props.Get(ical.PropOrganizer); org != nil {
		ve.organizer = strings.TrimPrefix(strings.ToLower(org.Value), "mailto:")
	}
	for _, att := range comp.Props.Values(ical.PropAttendee) {
		ve.attendees = append(ve.attendees, Attendee{
			Email:          strings.TrimPrefix(strings.ToLower(att.Value), "mailto:"),
			DisplayName:    att.Params.Get(ical.ParamCommonName),
			ResponseStatus: strings.ToLower(att.Params.Get(ical.ParamParticipationStatus)),
		})
	}
	return ve, nil
}

func (ve *vevent) rawEvent(calendarID, id string, start, end time.Time) *RawEvent {
	ev := &RawEvent{
		ID:          id,
		CalendarID:  calendarID,
		Summary:     ve.summary,
		Description: ve.description,
		Location:    ve.location,
		Status:      ve.status,
		Organizer:   ve.organizer,
		Attendees:   ve.attendees,
	}
	if ve.allDay {
		ev.Start = EventTime{Date: start.Format(dateLayout)}
		ev.End = EventTime{Date: end.Format(dateLayout)}
	} else {
		ev.Start = EventTime{DateTime: start}
		ev.End = EventTime{DateTime: end}
	}
	return ev
}

// expandVEvents turns VEVENT components into concrete instances inside
// [from, to), applying EXDATE and RECURRENCE-ID overrides, ordered by start.
func expandVEvents(calendarID string, comps []*ical.Component, from, to time.Time, loc *time.Location) []*RawEvent {
	var bases []*vevent
	overrides := map[string][]*vevent{}
	for _, comp := range comps {
		ve, err := parseVEvent(comp, loc)
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed VEVENT")
			continue
		}
		if ve.recurrenceID != nil {
			overrides[ve.uid] = append(overrides[ve.uid], ve)
			continue
		}
		bases = append(bases, ve)
	}

	var result []*RawEvent
	for _, ve := range bases {
		if ve.status == "cancelled" {
			continue
		}
		if ve.rrule == "" {
			if overlaps(ve.start, ve.end, from, to) {
				result = append(result, ve.rawEvent(calendarID, ve.uid, ve.start, ve.end))
			}
			continue
		}

		set, err := ve.recurrence()
		if err != nil {
			log.Warn().Err(err).Str("uid", ve.uid).Str("rrule", ve.rrule).Msg("failed to parse RRULE")
			continue
		}

		duration := ve.end.Sub(ve.start)
		// Instances starting before from may still overlap the range.
		occurrences := set.Between(from.Add(-duration), to, true)
		if len(occurrences) > maxOccurrencesPerEvent {
			log.Warn().Str("uid", ve.uid).Int("cap", maxOccurrencesPerEvent).Msg("truncated recurring event")
			occurrences = occurrences[:maxOccurrencesPerEvent]
		}

		for _, occStart := range occurrences {
			inst, instStart, instEnd := ve, occStart, occStart.Add(duration)
			if o := findOverride(overrides[ve.uid], occStart); o != nil {
				inst, instStart, instEnd = o, o.start, o.end
			}
			if inst.status == "cancelled" || !overlaps(instStart, instEnd, from, to) {
				continue
			}
			result = append(result, inst.rawEvent(calendarID, instanceID(ve.uid, occStart), instStart, instEnd))
		}
	}

	sortEventsByStart(result, loc)
	return result
}

// recurrence builds the occurrence set of a recurring VEVENT, EXDATEs removed.
func (ve *vevent) recurrence() (*rrule.Set, error) {
	r, err := rrule.StrToRRule(ve.rrule)
	if err != nil {
		return nil, err
	}
	r.DTStart(ve.start)

	set := &rrule.Set{}
	set.RRule(r)
	for _, ex := range ve.exdates {
		set.ExDate(ex.In(ve.start.Location()))
	}
	return set, nil
}

func findOverride(overrides []*vevent, occStart time.Time) *vevent {
	for _, o := range overrides {
		if o.recurrenceID.Equal(occStart) {
			return o
		}
	}
	return nil
}

func overlaps(start, end, from, to time.Time) bool {
	if !end.After(start) {
		end = start.Add(time.Nanosecond)
	}
	return start.Before(to) && end.After(from)
}

func sortEventsByStart(events []*RawEvent, loc *time.Location) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Instant(loc).Before(events[j].Start.Instant(loc))
	})
}

func filterEventsByText(events []*RawEvent, q string) []*RawEvent {
	q = strings.ToLower(q)
	var out []*RawEvent
	for _, ev := range events {
		haystack := strings.ToLower(ev.Summary + "\n" + ev.Description + "\n" + ev.Location)
		if strings.Contains(haystack, q) {
			out = append(out, ev)
		}
	}
	return out
}

func applyICalInput(comp *ical.Component, input *EventInput) {
	if input.Summary != nil {
		comp.Props.SetText(ical.PropSummary, *input.Summary)
	}
	if input.Description != nil {
		comp.Props.SetText(ical.PropDescription, *input.Description)
	}
	if input.Location != nil {
		comp.Props.SetText(ical.PropLocation, *input.Location)
	}
	if input.Start != nil {
		setICalTime(comp, ical.PropDateTimeStart, *input.Start)
	}
	if input.End != nil {
		setICalTime(comp, ical.PropDateTimeEnd, *input.End)
	}
	if input.Attendees != nil {
		comp.Props.Del(ical.PropAttendee)
		for _, email := range input.Attendees {
			prop := ical.NewProp(ical.PropAttendee)
			prop.Value = "mailto:" + email
			comp.Props.Add(prop)
		}
	}
}

func setICalTime(comp *ical.Component, name string, t EventTime) {
	if t.IsDate() {
		d, err := time.Parse(dateLayout, t.Date)
		if err == nil {
			comp.Props.SetDate(name, d)
		}
		return
	}
	comp.Props.SetDateTime(name, t.DateTime.UTC())
}

func wrapICalEvent(event *ical.Component) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//gcalctl//EN")
	cal.Children = append(cal.Children, event)
	return cal
}

// findVEvent returns the series master, or the first VEVENT when every one
// is an override.
func findVEvent(cal *ical.Calendar) *ical.Component {
	if cal == nil {
		return nil
	}
	var first *ical.Component
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		if comp.Props.Get(ical.PropRecurrenceID) == nil {
			return comp
		}
		if first == nil {
			first = comp
		}
	}
	return first
}

func getTextProp(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	return prop.Value
}
