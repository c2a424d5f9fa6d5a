package main

import "errors"

var (
	// ErrUsage marks a missing or invalid argument.
	ErrUsage = errors.New("usage error")

	// ErrUnknownAccount is returned for an account name absent from the config.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrNotAuthenticated means no stored credential exists for the account.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound is returned for an event or occurrence that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupported is returned by providers for operations they cannot perform.
	ErrUnsupported = errors.New("operation not supported by provider")

	// ErrAuthTimeout is returned when no authorization callback arrived in time.
	ErrAuthTimeout = errors.New("authorization timed out")

	// ErrAuthState indicates the provider redirected with an error or a bad state.
	ErrAuthState = errors.New("authorization failed")
)
