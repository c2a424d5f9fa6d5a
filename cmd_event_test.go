package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseEventFlags(t *testing.T, update bool, args ...string) (*EventInput, error) {
	t.Helper()
	f := &eventFlags{update: update}
	cmd := &cobra.Command{Use: "event"}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags(args))

	a := &app{loc: time.UTC, now: func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }}
	return f.input(cmd, a)
}

func TestEventFlags_CreateFillsDefaultEnd(t *testing.T) {
	in, err := parseEventFlags(t, false, "--summary", "Standup", "--start", "2026-02-01 09:00")
	require.NoError(t, err)

	require.NotNil(t, in.End)
	assert.True(t, in.End.DateTime.Equal(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Standup", *in.Summary)
	assert.Nil(t, in.Location)
}

func TestEventFlags_UpdateWithoutEndLeavesEndUnset(t *testing.T) {
	in, err := parseEventFlags(t, true, "--start", "2026-02-01 09:00")
	require.NoError(t, err)

	require.NotNil(t, in.Start)
	assert.True(t, in.Start.DateTime.Equal(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)))
	assert.Nil(t, in.End)
	assert.Nil(t, in.Summary)
}

func TestEventFlags_UpdateWithEnd(t *testing.T) {
	in, err := parseEventFlags(t, true, "--start", "2026-02-01 09:00", "--end", "2026-02-01 11:00")
	require.NoError(t, err)

	require.NotNil(t, in.End)
	assert.True(t, in.End.DateTime.Equal(time.Date(2026, 2, 1, 11, 0, 0, 0, time.UTC)))
}

func TestEventFlags_Errors(t *testing.T) {
	_, err := parseEventFlags(t, true, "--end", "2026-02-01 11:00")
	assert.ErrorIs(t, err, ErrUsage)

	_, err = parseEventFlags(t, false, "--start", "2026-02-01 09:00", "--end", "2026-02-01 08:00")
	assert.ErrorIs(t, err, ErrUsage)
}
