package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config represents the complete journal configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger"`
	Sessions SessionsConfig `json:"sessions" yaml:"sessions"`
	Stats    StatsConfig    `json:"stats" yaml:"stats"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	StartBalance float64 `json:"start_balance" yaml:"start_balance"`
	Currency     string  `json:"currency" yaml:"currency"`
	Timezone     string  `json:"timezone" yaml:"timezone"` // IANA name, "Local" or "UTC"
}

// Location loads the time zone calendar days are taken in.
func (a AccountConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

// LedgerConfig selects where closed trades are stored
type LedgerConfig struct {
	Type        string `json:"type" yaml:"type"` // "sqlite" or "postgres"
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
}

// SessionsConfig selects where open trades are kept
type SessionsConfig struct {
	Type string `json:"type" yaml:"type"` // "snapshot" or "pebble"
	Path string `json:"path" yaml:"path"`
}

// StatsConfig bounds the list reports
type StatsConfig struct {
	QualityLimit   int    `json:"quality_limit" yaml:"quality_limit"`
	QualityPreview int    `json:"quality_preview" yaml:"quality_preview"`
	SignalsLimit   int    `json:"signals_limit" yaml:"signals_limit"`
	WeekWindow     string `json:"week_window" yaml:"week_window"` // e.g. "168h"
}

// ParseWeekWindow converts the window string to time.Duration
func (s StatsConfig) ParseWeekWindow() (time.Duration, error) {
	if s.WeekWindow == "" {
		return 7 * 24 * time.Hour, nil
	}
	return time.ParseDuration(s.WeekWindow)
}

// ServerConfig contains HTTP API parameters
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to
// JSON). Keys missing from the file keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads envPath (or ./.env when empty and present) and applies
// TRADEJOURNAL_* overrides. Variables already set in the process win over
// the file.
func (c *Config) ApplyEnv(envPath string) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("TRADEJOURNAL_START_BALANCE"); v != "" {
		b, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRADEJOURNAL_START_BALANCE: %w", err)
		}
		c.Account.StartBalance = b
	}
	c.Account.Timezone = getEnv("TRADEJOURNAL_TIMEZONE", c.Account.Timezone)

	c.Ledger.Type = getEnv("TRADEJOURNAL_LEDGER", c.Ledger.Type)
	c.Ledger.DBPath = getEnv("TRADEJOURNAL_DB_PATH", c.Ledger.DBPath)
	c.Ledger.DatabaseURL = getEnv("DATABASE_URL", c.Ledger.DatabaseURL)

	c.Sessions.Type = getEnv("TRADEJOURNAL_SESSIONS", c.Sessions.Type)
	c.Sessions.Path = getEnv("TRADEJOURNAL_SESSIONS_PATH", c.Sessions.Path)

	c.Server.Addr = getEnv("TRADEJOURNAL_ADDR", c.Server.Addr)
	if v := os.Getenv("TRADEJOURNAL_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	}

	c.Log.Level = getEnv("TRADEJOURNAL_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("TRADEJOURNAL_LOG_FILE", c.Log.File)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.StartBalance < 0 {
		return fmt.Errorf("account.start_balance must not be negative")
	}
	if _, err := c.Account.Location(); err != nil {
		return fmt.Errorf("account.timezone: %w", err)
	}

	switch c.Ledger.Type {
	case "sqlite":
		if c.Ledger.DBPath == "" {
			return fmt.Errorf("ledger db_path required for SQLite type")
		}
	case "postgres":
		if c.Ledger.DatabaseURL == "" {
			return fmt.Errorf("ledger database_url required for Postgres type")
		}
	default:
		return fmt.Errorf("ledger.type must be 'sqlite' or 'postgres'")
	}

	if c.Sessions.Type != "snapshot" && c.Sessions.Type != "pebble" {
		return fmt.Errorf("sessions.type must be 'snapshot' or 'pebble'")
	}
	if c.Sessions.Path == "" {
		return fmt.Errorf("sessions.path is required")
	}

	if c.Stats.QualityLimit <= 0 || c.Stats.QualityPreview <= 0 || c.Stats.SignalsLimit <= 0 {
		return fmt.Errorf("stats limits must be positive")
	}
	if c.Stats.QualityPreview > c.Stats.QualityLimit {
		return fmt.Errorf("stats.quality_preview must not exceed stats.quality_limit")
	}
	if d, err := c.Stats.ParseWeekWindow(); err != nil || d <= 0 {
		return fmt.Errorf("stats.week_window must be a positive duration")
	}

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			StartBalance: 60,
			Currency:     "USD",
			Timezone:     "Local",
		},
		Ledger: LedgerConfig{
			Type:   "sqlite",
			DBPath: "./trading_stats.db",
		},
		Sessions: SessionsConfig{
			Type: "snapshot",
			Path: "./active_trades.yaml",
		},
		Stats: StatsConfig{
			QualityLimit:   10,
			QualityPreview: 5,
			SignalsLimit:   5,
			WeekWindow:     "168h",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
