package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// CalendarFactory creates and caches one provider per account.
type CalendarFactory struct {
	config    *Config
	oauth     *oauth2.Config
	tokens    *TokenStore
	loc       *time.Location
	providers map[string]CalendarProvider
}

func NewCalendarFactory(config *Config, oauth *oauth2.Config, tokens *TokenStore, loc *time.Location) *CalendarFactory {
	return &CalendarFactory{
		config:    config,
		oauth:     oauth,
		tokens:    tokens,
		loc:       loc,
		providers: make(map[string]CalendarProvider),
	}
}

// Provider returns the provider for the account, creating it on first use.
func (cf *CalendarFactory) Provider(ctx context.Context, accountName string) (CalendarProvider, error) {
	if p, ok := cf.providers[accountName]; ok {
		return p, nil
	}
	acc, err := cf.config.Account(accountName)
	if err != nil {
		return nil, err
	}

	var provider CalendarProvider
	switch acc.Provider {
	case providerGoogle:
		client, err := getClient(ctx, cf.oauth, cf.tokens, accountName)
		if err != nil {
			return nil, err
		}
		provider, err = NewGoogleCalendarProvider(ctx, client, cf.loc)
		if err != nil {
			return nil, fmt.Errorf("error creating Google calendar provider: %w", err)
		}

	case providerCalDAV:
		if acc.ServerURL == "" {
			return nil, fmt.Errorf("%w: account %s has no server_url", ErrNotAuthenticated, accountName)
		}
		provider, err = NewCalDAVProvider(ctx, acc.ServerURL, acc.Username, acc.Password, cf.loc)
		if err != nil {
			return nil, fmt.Errorf("error connecting to CalDAV server %s: %w", acc.ServerURL, err)
		}

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", acc.Provider)
	}

	cf.providers[accountName] = provider
	return provider, nil
}

// HasCredentials reports whether the account can be used without running
// the interactive authorization first.
func (cf *CalendarFactory) HasCredentials(accountName string) (bool, error) {
	acc, err := cf.config.Account(accountName)
	if err != nil {
		return false, err
	}
	if acc.Provider == providerCalDAV {
		return acc.ServerURL != "", nil
	}
	return cf.tokens.Has(accountName)
}

// DefaultCalendar is the calendar reference sync uses for the account.
func (cf *CalendarFactory) DefaultCalendar(accountName string) string {
	acc, err := cf.config.Account(accountName)
	if err != nil {
		return ""
	}
	return acc.Calendar
}
