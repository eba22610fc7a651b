package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const configFileName = "gridcal.toml"

// DefaultDiscoveryDoc is the discovery document for the Google Calendar v3
// API, fetched with the configured API key during the session handshake.
const DefaultDiscoveryDoc = "https://www.googleapis.com/discovery/v1/apis/calendar/v3/rest"

// ErrMissing indicates that required configuration values are absent.
// The wrapping error names every missing key.
var ErrMissing = errors.New("missing required configuration")

// Config holds all application settings.
type Config struct {
	// Credentials for the remote calendar provider. All three are
	// required; Validate reports the missing ones.
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	APIKey       string `toml:"api_key"`

	// Calendar query settings.
	CalendarID    string   `toml:"calendar_id"`
	TimeZone      string   `toml:"time_zone"`
	MaxResults    int64    `toml:"max_results"`
	DiscoveryDocs []string `toml:"discovery_docs"`

	// View API settings.
	ViewListen      string `toml:"view_listen"`
	ViewWindowStart int    `toml:"view_window_start"`
	ViewWindowEnd   int    `toml:"view_window_end"`
	ViewUsername    string `toml:"view_username"`
	ViewPassword    string `toml:"view_password"`

	// Token storage and scheduling.
	TokenDB         string `toml:"token_db"`
	RefreshSchedule string `toml:"refresh_schedule"`

	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns a Config populated with defaults. Credentials are
// intentionally left empty.
func DefaultConfig() *Config {
	return &Config{
		CalendarID:      "primary",
		TimeZone:        "Europe/Warsaw",
		MaxResults:      50,
		DiscoveryDocs:   []string{DefaultDiscoveryDoc},
		ViewListen:      "127.0.0.1:8787",
		ViewWindowStart: 8,
		ViewWindowEnd:   16,
		TokenDB:         defaultTokenDBPath(),
		LogLevel:        "info",
	}
}

// Load assembles the configuration from defaults, an optional TOML file
// and GRIDCAL_* environment variables, then validates it. path may be
// empty, in which case the default file locations are searched; a file
// given explicitly must exist.
func Load(path string) (*Config, error) {
	// A .env file in the working directory feeds the environment
	// overrides below. Absence is not an error.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readConfigFile returns the raw TOML data, or nil when no file was found
// in the default locations. An explicitly given path must be readable.
func readConfigFile(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return data, nil
	}

	// Try first the current dir, then ~/.config/gridcal/.
	if data, err := os.ReadFile(configFileName); err == nil {
		return data, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil
	}
	if data, err := os.ReadFile(filepath.Join(home, ".config", "gridcal", configFileName)); err == nil {
		return data, nil
	}
	return nil, nil
}

func (c *Config) applyEnv() {
	c.ClientID = getenvDefault("GRIDCAL_CLIENT_ID", c.ClientID)
	c.ClientSecret = getenvDefault("GRIDCAL_CLIENT_SECRET", c.ClientSecret)
	c.APIKey = getenvDefault("GRIDCAL_API_KEY", c.APIKey)
	c.CalendarID = getenvDefault("GRIDCAL_CALENDAR_ID", c.CalendarID)
	c.TimeZone = getenvDefault("GRIDCAL_TIME_ZONE", c.TimeZone)
	c.MaxResults = getenvInt64("GRIDCAL_MAX_RESULTS", c.MaxResults)
	c.ViewListen = getenvDefault("GRIDCAL_VIEW_LISTEN", c.ViewListen)
	c.ViewUsername = getenvDefault("GRIDCAL_VIEW_USERNAME", c.ViewUsername)
	c.ViewPassword = getenvDefault("GRIDCAL_VIEW_PASSWORD", c.ViewPassword)
	c.TokenDB = getenvDefault("GRIDCAL_TOKEN_DB", c.TokenDB)
	c.RefreshSchedule = getenvDefault("GRIDCAL_REFRESH_SCHEDULE", c.RefreshSchedule)
	c.LogLevel = getenvDefault("GRIDCAL_LOG_LEVEL", c.LogLevel)
}

// Validate checks the configuration and reports every problem it can
// detect. Missing credentials are collected into a single error wrapping
// ErrMissing so the operator sees the full list at once.
func (c *Config) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	if c.CalendarID == "" {
		return errors.New("calendar_id must not be empty")
	}
	if c.TimeZone == "" {
		return errors.New("time_zone must not be empty")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	if len(c.DiscoveryDocs) == 0 {
		return errors.New("at least one discovery document URL is required")
	}
	if c.ViewWindowStart < 0 || c.ViewWindowEnd > 24 || c.ViewWindowStart >= c.ViewWindowEnd {
		return fmt.Errorf("view window %02d:00-%02d:00 is not a valid range", c.ViewWindowStart, c.ViewWindowEnd)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

func defaultTokenDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tokens.db"
	}
	return filepath.Join(home, ".config", "gridcal", "tokens.db")
}

func getenvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
