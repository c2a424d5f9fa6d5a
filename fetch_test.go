package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider serves ListEvents from memory; other methods are not used.
type fakeProvider struct {
	CalendarProvider

	events  map[string][]*RawEvent
	err     error
	queries []EventQuery
	listed  []string
}

func (p *fakeProvider) ListEvents(_ context.Context, calendarID string, query EventQuery) ([]*RawEvent, error) {
	p.listed = append(p.listed, calendarID)
	p.queries = append(p.queries, query)
	if p.err != nil {
		return nil, p.err
	}
	return append([]*RawEvent(nil), p.events[calendarID]...), nil
}

type fakeProviders map[string]CalendarProvider

func (f fakeProviders) Provider(_ context.Context, accountName string) (CalendarProvider, error) {
	p, ok := f[accountName]
	if !ok {
		return nil, ErrUnknownAccount
	}
	return p, nil
}

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func newTestAliases(t *testing.T, aliases map[string]string) *AliasResolver {
	t.Helper()
	store := NewJSONAliasStore(filepath.Join(t.TempDir(), "aliases.json"))
	require.NoError(t, store.Save(aliases))
	return NewAliasResolver(store)
}

func TestFetchEvents_ResolvesAliasAndSortsByStart(t *testing.T) {
	provider := &fakeProvider{events: map[string][]*RawEvent{
		"c_team@group.calendar.google.com": {
			timedEvent("late", "Retro", at(2026, 2, 1, 16, 0), at(2026, 2, 1, 17, 0)),
			allDayEvent("day", "Offsite", "2026-02-01", "2026-02-02"),
			timedEvent("early", "Standup", at(2026, 2, 1, 9, 0), at(2026, 2, 1, 9, 15)),
			timedEvent("prev", "Review", at(2026, 1, 31, 14, 0), at(2026, 1, 31, 15, 0)),
		},
	}}
	aliases := newTestAliases(t, map[string]string{"team": "c_team@group.calendar.google.com"})
	fetcher := NewEventFetcher(fakeProviders{"business": provider}, aliases, time.UTC)

	query := EventQuery{
		From:  time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		Query: "standup",
		Limit: 10,
	}
	events, err := fetcher.FetchEvents(context.Background(), "business", "team", query)
	require.NoError(t, err)

	assert.Equal(t, []string{"c_team@group.calendar.google.com"}, provider.listed)
	assert.Equal(t, []EventQuery{query}, provider.queries)
	assert.Equal(t, []string{"prev", "day", "early", "late"}, eventIDs(events))
}

func TestFetchEvents_DefaultsAndLiteralIDs(t *testing.T) {
	provider := &fakeProvider{}
	aliases := newTestAliases(t, map[string]string{"team": "c_team@group.calendar.google.com"})
	fetcher := NewEventFetcher(fakeProviders{"personal": provider}, aliases, time.UTC)

	_, err := fetcher.FetchEvents(context.Background(), "personal", "", EventQuery{})
	require.NoError(t, err)
	_, err = fetcher.FetchEvents(context.Background(), "personal", "someone@example.com", EventQuery{})
	require.NoError(t, err)

	assert.Equal(t, []string{"primary", "someone@example.com"}, provider.listed)
}

func TestFetchEvents_ProviderErrorsPassThrough(t *testing.T) {
	boom := errors.New("googleapi: Error 404: Not Found")
	fetcher := NewEventFetcher(fakeProviders{"personal": &fakeProvider{err: boom}}, newTestAliases(t, nil), time.UTC)

	_, err := fetcher.FetchEvents(context.Background(), "personal", "", EventQuery{})
	assert.Equal(t, boom, err)

	_, err = fetcher.FetchEvents(context.Background(), "holiday", "", EventQuery{})
	assert.ErrorIs(t, err, ErrUnknownAccount)
}
