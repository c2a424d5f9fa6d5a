package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `
client_id = "id-from-file"
client_secret = "secret"
timezone = "Europe/Berlin"
locale = "de"
alias_backend = "sqlite"
sync_window_days = 7
sync_schedule = "*/30 * * * *"

[accounts.work]
calendar = "team@example.com"

[accounts.nextcloud]
provider = "caldav"
server_url = "https://cloud.example.com/remote.php/dav"
username = "me"
password = "pw"
`)

	cfg, err := readConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "id-from-file", cfg.ClientID)
	assert.Equal(t, "de", cfg.Locale)
	assert.Equal(t, aliasBackendSQLite, cfg.AliasBackend)
	assert.Equal(t, 7, cfg.SyncWindowDays)
	assert.Equal(t, "*/30 * * * *", cfg.SyncSchedule)
	assert.Equal(t, []string{"nextcloud", "work"}, cfg.AccountNames())

	work, err := cfg.Account("work")
	require.NoError(t, err)
	assert.Equal(t, providerGoogle, work.Provider)
	assert.Equal(t, "team@example.com", work.Calendar)

	nc, err := cfg.Account("nextcloud")
	require.NoError(t, err)
	assert.Equal(t, providerCalDAV, nc.Provider)
	assert.Equal(t, "me", nc.Username)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.Dir)
	assert.Equal(t, filepath.Join(abs, "sync"), cfg.OutputDir)
	assert.Equal(t, filepath.Join(abs, "aliases.json"), cfg.AliasFile)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestReadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), `client_id = "id-from-file"`)
	t.Setenv("GCALCTL_CLIENT_ID", "id-from-env")
	t.Setenv("GCALCTL_SYNC_WINDOW_DAYS", "3")

	cfg, err := readConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "id-from-env", cfg.ClientID)
	assert.Equal(t, 3, cfg.SyncWindowDays)
}

func TestReadConfig_StateDirFallback(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	stateDir := filepath.Join(xdg, "gcalctl")
	require.NoError(t, os.MkdirAll(stateDir, 0o700))
	writeConfigFile(t, stateDir, `locale = "de"`)

	cfg, err := readConfig("")
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.Locale)
	assert.Equal(t, stateDir, cfg.Dir)
}

func TestReadConfig_Errors(t *testing.T) {
	_, err := readConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err, "an explicit path must exist")

	path := writeConfigFile(t, t.TempDir(), `client_id = `)
	_, err = readConfig(path)
	assert.Error(t, err)
}

func TestConfig_NormalizeDefaults(t *testing.T) {
	cfg := &Config{Dir: "/state", AliasBackend: "redis", AuthTimeout: "soon"}
	cfg.Normalize()

	assert.Equal(t, []string{"business", "personal"}, cfg.AccountNames())
	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, "127.0.0.1:8085", cfg.CallbackAddr)
	assert.Equal(t, aliasBackendJSON, cfg.AliasBackend)
	assert.Equal(t, filepath.Join("/state", "sync"), cfg.OutputDir)
	assert.Equal(t, 28, cfg.SyncWindowDays)
	assert.Equal(t, 5*time.Minute, cfg.AuthTimeoutDuration())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestConfig_UnknownAccountAndTimezone(t *testing.T) {
	cfg := &Config{Dir: "/state", Timezone: "Mars/Olympus"}
	cfg.Normalize()

	_, err := cfg.Account("holiday")
	assert.ErrorIs(t, err, ErrUnknownAccount)

	_, err = cfg.Location()
	assert.Error(t, err)
}

func TestNewOAuthConfig(t *testing.T) {
	cfg := &Config{Dir: "/state", ClientID: "id", ClientSecret: "secret", CallbackAddr: "127.0.0.1:9999"}
	cfg.Normalize()

	oc := newOAuthConfig(cfg)
	assert.Equal(t, "id", oc.ClientID)
	assert.Equal(t, "http://127.0.0.1:9999/callback", oc.RedirectURL)
}
