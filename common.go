package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const (
	configFileName = ".gcalctl.toml"
	dbFileName     = ".gcalctl.db"
	combinedName   = "combined"

	providerGoogle = "google"
	providerCalDAV = "caldav"

	aliasBackendJSON   = "json"
	aliasBackendSQLite = "sqlite"
)

type AccountConfig struct {
	Provider  string `toml:"provider"`
	Calendar  string `toml:"calendar"`
	ServerURL string `toml:"server_url"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

type Config struct {
	ClientID       string                   `toml:"client_id" envconfig:"CLIENT_ID"`
	ClientSecret   string                   `toml:"client_secret" envconfig:"CLIENT_SECRET"`
	VerbosityLevel int                      `toml:"verbosity_level" envconfig:"VERBOSITY_LEVEL"`
	Timezone       string                   `toml:"timezone" envconfig:"TIMEZONE"`
	Locale         string                   `toml:"locale" envconfig:"LOCALE"`
	CallbackAddr   string                   `toml:"callback_addr" envconfig:"CALLBACK_ADDR"`
	AuthTimeout    string                   `toml:"auth_timeout" envconfig:"AUTH_TIMEOUT"`
	OutputDir      string                   `toml:"output_dir" envconfig:"OUTPUT_DIR"`
	AliasBackend   string                   `toml:"alias_backend" envconfig:"ALIAS_BACKEND"`
	AliasFile      string                   `toml:"alias_file" envconfig:"ALIAS_FILE"`
	SyncWindowDays int                      `toml:"sync_window_days" envconfig:"SYNC_WINDOW_DAYS"`
	SyncSchedule   string                   `toml:"sync_schedule" envconfig:"SYNC_SCHEDULE"`
	Accounts       map[string]AccountConfig `toml:"accounts" ignored:"true"`

	// Dir is where state (db, aliases, sync output) lives by default.
	Dir string `toml:"-" ignored:"true"`
}

// Normalize fills unset values with defaults.
func (c *Config) Normalize() {
	if c.Dir == "" {
		c.Dir = defaultStateDir()
	}
	if len(c.Accounts) == 0 {
		c.Accounts = map[string]AccountConfig{
			"personal": {Provider: providerGoogle},
			"business": {Provider: providerGoogle},
		}
	}
	for name, acc := range c.Accounts {
		if acc.Provider == "" {
			acc.Provider = providerGoogle
			c.Accounts[name] = acc
		}
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.CallbackAddr == "" {
		c.CallbackAddr = "127.0.0.1:8085"
	}
	if c.AuthTimeout == "" {
		c.AuthTimeout = "5m"
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.Dir, "sync")
	}
	switch c.AliasBackend {
	case aliasBackendJSON, aliasBackendSQLite:
	default:
		c.AliasBackend = aliasBackendJSON
	}
	if c.AliasFile == "" {
		c.AliasFile = filepath.Join(c.Dir, "aliases.json")
	}
	if c.SyncWindowDays <= 0 {
		c.SyncWindowDays = 28
	}
}

// Location resolves the configured timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) AuthTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.AuthTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Account looks up a configured account by name.
func (c *Config) Account(name string) (AccountConfig, error) {
	acc, ok := c.Accounts[name]
	if !ok {
		return AccountConfig{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownAccount, name, c.AccountNames())
	}
	return acc, nil
}

func (c *Config) AccountNames() []string {
	names := make([]string, 0, len(c.Accounts))
	for name := range c.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func defaultStateDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "gcalctl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gcalctl")
}

// readConfig loads the config from path, or when path is empty from the
// current dir and then the state dir. A missing file yields defaults.
func readConfig(path string) (*Config, error) {
	candidates := []string{path}
	if path == "" {
		candidates = []string{configFileName, filepath.Join(defaultStateDir(), configFileName)}
	}

	var cfg Config
	found := false
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == "" {
				continue
			}
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", candidate, err)
		}
		abs, err := filepath.Abs(candidate)
		if err == nil {
			cfg.Dir = filepath.Dir(abs)
		}
		log.Debug().Str("path", candidate).Msg("config loaded")
		found = true
		break
	}
	if !found {
		log.Debug().Msg("no config file found, using defaults")
	}

	if err := envconfig.Process("gcalctl", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

func newOAuthConfig(config *Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://" + config.CallbackAddr + callbackPath,
		Scopes:       []string{calendar.CalendarScope},
	}
}

func openDB(dir string) (*sql.DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, err
	}
	if err := dbInit(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// setupLogger maps the config verbosity onto zerolog levels; debug wins.
func setupLogger(verbosity int, debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	})

	level := zerolog.WarnLevel
	switch {
	case debug:
		level = zerolog.DebugLevel
	case verbosity >= 5:
		level = zerolog.TraceLevel
	case verbosity >= 2:
		level = zerolog.DebugLevel
	case verbosity == 1:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
