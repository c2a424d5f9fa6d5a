package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEventTimes(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, loc)

	tests := []struct {
		name      string
		start     string
		end       string
		allDay    bool
		wantStart EventTime
		wantEnd   EventTime
	}{
		{
			name:      "dates only become all-day",
			start:     "2026-02-01",
			end:       "2026-02-03",
			wantStart: EventTime{Date: "2026-02-01"},
			wantEnd:   EventTime{Date: "2026-02-03"},
		},
		{
			name:      "all-day without end lasts one day",
			start:     "2026-02-01",
			wantStart: EventTime{Date: "2026-02-01"},
			wantEnd:   EventTime{Date: "2026-02-02"},
		},
		{
			name:      "flag truncates a timed start",
			start:     "2026-02-01 09:30",
			allDay:    true,
			wantStart: EventTime{Date: "2026-02-01"},
			wantEnd:   EventTime{Date: "2026-02-02"},
		},
		{
			name:      "timed with end",
			start:     "2026-02-01 09:00",
			end:       "2026-02-01T10:30",
			wantStart: EventTime{DateTime: time.Date(2026, 2, 1, 9, 0, 0, 0, loc)},
			wantEnd:   EventTime{DateTime: time.Date(2026, 2, 1, 10, 30, 0, 0, loc)},
		},
		{
			name:      "timed without end lasts one hour",
			start:     "2026-02-01T09:00:00+01:00",
			wantStart: EventTime{DateTime: time.Date(2026, 2, 1, 9, 0, 0, 0, loc)},
			wantEnd:   EventTime{DateTime: time.Date(2026, 2, 1, 10, 0, 0, 0, loc)},
		},
		{
			name:      "timed start with date-only end stays timed",
			start:     "2026-02-01 09:00",
			end:       "2026-02-01",
			wantStart: EventTime{DateTime: time.Date(2026, 2, 1, 9, 0, 0, 0, loc)},
			wantEnd:   EventTime{DateTime: time.Date(2026, 2, 1, 10, 0, 0, 0, loc)},
		},
		{
			name:      "relative day",
			start:     "tomorrow",
			wantStart: EventTime{Date: "2026-02-02"},
			wantEnd:   EventTime{Date: "2026-02-03"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := buildEventTimes(tt.start, tt.end, tt.allDay, loc, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart.Date, start.Date)
			assert.True(t, tt.wantStart.DateTime.Equal(start.DateTime), "start %v", start.DateTime)
			assert.Equal(t, tt.wantEnd.Date, end.Date)
			assert.True(t, tt.wantEnd.DateTime.Equal(end.DateTime), "end %v", end.DateTime)
		})
	}
}

func TestBuildEventTimes_Errors(t *testing.T) {
	now := time.Now()

	_, _, err := buildEventTimes("", "", false, time.UTC, now)
	assert.ErrorIs(t, err, ErrUsage)

	_, _, err = buildEventTimes("next thursday", "", false, time.UTC, now)
	assert.ErrorIs(t, err, ErrUsage)

	_, _, err = buildEventTimes("2026-02-01", "soon", false, time.UTC, now)
	assert.ErrorIs(t, err, ErrUsage)

	_, _, err = buildEventTimes("2026-02-01 09:00", "2026-02-01 09:00", false, time.UTC, now)
	assert.ErrorIs(t, err, ErrUsage, "timed end equal to start")

	_, _, err = buildEventTimes("2026-02-01 09:00", "2026-01-31T23:00", false, time.UTC, now)
	assert.ErrorIs(t, err, ErrUsage, "timed end before start")

	_, _, err = buildEventTimes("2026-02-03", "2026-02-01", false, time.UTC, now)
	assert.ErrorIs(t, err, ErrUsage, "all-day end before start")
}

func TestWithExistingEnd(t *testing.T) {
	timed := timedEvent("t1", "Review", time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC))
	allDay := allDayEvent("a1", "Offsite", "2026-02-01", "2026-02-04")

	tests := []struct {
		name     string
		existing *RawEvent
		start    EventTime
		want     EventTime
	}{
		{
			name:     "timed keeps its length",
			existing: timed,
			start:    EventTime{DateTime: time.Date(2026, 2, 3, 14, 0, 0, 0, time.UTC)},
			want:     EventTime{DateTime: time.Date(2026, 2, 3, 15, 30, 0, 0, time.UTC)},
		},
		{
			name:     "all-day keeps its day count",
			existing: allDay,
			start:    EventTime{Date: "2026-02-10"},
			want:     EventTime{Date: "2026-02-13"},
		},
		{
			name:     "all-day turned timed lasts one hour",
			existing: allDay,
			start:    EventTime{DateTime: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)},
			want:     EventTime{DateTime: time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)},
		},
		{
			name:     "timed turned all-day lasts one day",
			existing: timed,
			start:    EventTime{Date: "2026-02-10"},
			want:     EventTime{Date: "2026-02-11"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := tt.start
			in := &EventInput{Start: &start}

			out := withExistingEnd(in, tt.existing, time.UTC)

			require.NotNil(t, out.End)
			assert.Nil(t, in.End, "input is not modified")
			assert.Equal(t, tt.want.Date, out.End.Date)
			assert.True(t, tt.want.DateTime.Equal(out.End.DateTime), "end %v", out.End.DateTime)
		})
	}

	end := EventTime{Date: "2026-02-20"}
	explicit := &EventInput{Start: &EventTime{Date: "2026-02-10"}, End: &end}
	assert.Same(t, explicit, withExistingEnd(explicit, allDay, time.UTC))
}

func TestEventInput_IsEmpty(t *testing.T) {
	assert.True(t, (&EventInput{}).IsEmpty())
	assert.False(t, (&EventInput{Summary: stringPtr("")}).IsEmpty())
	assert.False(t, (&EventInput{Attendees: []string{}}).IsEmpty())
}
