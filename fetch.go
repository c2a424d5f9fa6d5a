package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// EventFetcher retrieves expanded, start-ordered events for an account.
type EventFetcher interface {
	FetchEvents(ctx context.Context, accountName, calendarRef string, query EventQuery) ([]*RawEvent, error)
}

type providerSource interface {
	Provider(ctx context.Context, accountName string) (CalendarProvider, error)
}

type accountFetcher struct {
	providers providerSource
	aliases   *AliasResolver
	loc       *time.Location
}

func NewEventFetcher(providers providerSource, aliases *AliasResolver, loc *time.Location) EventFetcher {
	return &accountFetcher{providers: providers, aliases: aliases, loc: loc}
}

// FetchEvents resolves calendarRef through the aliases and lists the range.
// Provider errors are returned unchanged.
func (f *accountFetcher) FetchEvents(ctx context.Context, accountName, calendarRef string, query EventQuery) ([]*RawEvent, error) {
	calendarID, err := f.aliases.Resolve(calendarRef)
	if err != nil {
		return nil, err
	}
	provider, err := f.providers.Provider(ctx, accountName)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("account", accountName).
		Str("calendar", calendarID).
		Time("from", query.From).
		Time("to", query.To).
		Str("q", query.Query).
		Msg("fetching events")

	events, err := provider.ListEvents(ctx, calendarID, query)
	if err != nil {
		return nil, err
	}
	sortEventsByStart(events, f.loc)
	return events, nil
}
