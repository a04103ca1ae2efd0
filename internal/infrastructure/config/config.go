package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Sync      SyncConfig
	Rates     RatesConfig
	Settings  SettingsConfig
	HTML      HTMLConfig
	Session   SessionConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// SyncConfig holds synchronizer tuning.
type SyncConfig struct {
	PollInterval  time.Duration `envconfig:"SYNC_POLL_INTERVAL" default:"2s"`
	FrameDelay    time.Duration `envconfig:"SYNC_FRAME_DELAY" default:"16ms"`
	MaxTextLength int           `envconfig:"SYNC_MAX_TEXT_LENGTH" default:"500"`
	Unit          string        `envconfig:"SYNC_UNIT" default:"ZEC"`
}

// RatesConfig holds rate table configuration.
type RatesConfig struct {
	File    string        `envconfig:"RATES_FILE"`
	MaxAge  time.Duration `envconfig:"RATES_MAX_AGE" default:"10m"`
	Sources []string      `envconfig:"RATES_SOURCES" default:"coingecko,kraken"`
	Timeout time.Duration `envconfig:"RATES_TIMEOUT" default:"10s"`
}

// SettingsConfig holds the user settings location.
type SettingsConfig struct {
	File string `envconfig:"SETTINGS_FILE"`
}

// HTMLConfig holds document loading limits.
type HTMLConfig struct {
	Sanitize bool  `envconfig:"HTML_SANITIZE" default:"false"`
	MaxBytes int64 `envconfig:"HTML_MAX_BYTES" default:"10485760"`
}

// SessionConfig holds session limits.
type SessionConfig struct {
	Max int `envconfig:"SESSION_MAX" default:"100"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Sync: SyncConfig{
			PollInterval:  2 * time.Second,
			FrameDelay:    16 * time.Millisecond,
			MaxTextLength: 500,
			Unit:          "ZEC",
		},
		Rates: RatesConfig{
			MaxAge:  10 * time.Minute,
			Sources: []string{"coingecko", "kraken"},
			Timeout: 10 * time.Second,
		},
		HTML: HTMLConfig{
			MaxBytes: 10 << 20,
		},
		Session: SessionConfig{
			Max: 100,
		},
	}
}
