// Package config loads lorasense configuration from a YAML file, a .env file,
// and the process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lorasense/lorasense/internal/database"
)

// Config holds all settings for the lorasense binaries.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	// RateLimit is the number of reading requests allowed per client IP per minute.
	RateLimit int `yaml:"rate_limit"`
}

// StoreConfig selects the reading store backend.
type StoreConfig struct {
	// Backend is "sql" or "influx".
	Backend string          `yaml:"backend"`
	SQL     database.Config `yaml:"sql"`
	Influx  InfluxConfig    `yaml:"influx"`
}

// InfluxConfig holds InfluxDB v2 connection parameters.
type InfluxConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
	// Lookback bounds the Flux range() for the latest point.
	Lookback time.Duration `yaml:"lookback"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// DashboardConfig holds display updater settings.
type DashboardConfig struct {
	// APIURL is the base URL of the readings API.
	APIURL  string        `yaml:"api_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Store backends.
const (
	BackendSQL    = "sql"
	BackendInflux = "influx"
)

// ErrUnknownBackend is returned when the store backend is not recognised.
var ErrUnknownBackend = errors.New("unknown store backend")

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		App: AppConfig{
			Port:        "8080",
			Environment: "development",
			LogLevel:    "info",
			RateLimit:   100,
		},
		Store: StoreConfig{
			Backend: BackendSQL,
			SQL:     database.DefaultConfig(),
			Influx: InfluxConfig{
				URL:         "http://localhost:8086",
				Org:         "lorasense",
				Bucket:      "sensors",
				Measurement: "aht",
				Lookback:    30 * 24 * time.Hour,
			},
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
		},
		Dashboard: DashboardConfig{
			APIURL:  "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
	}
}

// Load builds a Config. The YAML file named by LORASENSE_CONFIG is applied
// first, then a .env file in the working directory, then the environment.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("LORASENSE_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.App.Port, "APP_PORT")
	setString(&c.App.Environment, "APP_ENV")
	setString(&c.App.LogLevel, "LOG_LEVEL")
	if err := setInt(&c.App.RateLimit, "RATE_LIMIT_PER_MINUTE"); err != nil {
		return err
	}

	setString(&c.Store.Backend, "STORE_BACKEND")

	setString(&c.Store.SQL.Driver, "DB_DRIVER")
	setString(&c.Store.SQL.Host, "DB_HOST")
	if err := setInt(&c.Store.SQL.Port, "DB_PORT"); err != nil {
		return err
	}
	setString(&c.Store.SQL.User, "DB_USER")
	setString(&c.Store.SQL.Password, "DB_PASSWORD")
	setString(&c.Store.SQL.Database, "DB_NAME")
	setString(&c.Store.SQL.SSLMode, "DB_SSL_MODE")
	setString(&c.Store.SQL.Table, "DB_TABLE")
	setString(&c.Store.SQL.TimeColumn, "DB_TIME_COLUMN")

	setString(&c.Store.Influx.URL, "INFLUXDB_URL")
	setString(&c.Store.Influx.Token, "INFLUXDB_TOKEN")
	setString(&c.Store.Influx.Org, "INFLUXDB_ORG")
	setString(&c.Store.Influx.Bucket, "INFLUXDB_BUCKET")
	setString(&c.Store.Influx.Measurement, "INFLUXDB_MEASUREMENT")
	if err := setDuration(&c.Store.Influx.Lookback, "INFLUXDB_LOOKBACK"); err != nil {
		return err
	}

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true"
	}
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	setString(&c.Dashboard.APIURL, "DASHBOARD_API_URL")
	return setDuration(&c.Dashboard.Timeout, "DASHBOARD_TIMEOUT")
}

// Validate checks that the selected backend is known and complete.
func (c Config) Validate() error {
	if c.App.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.App.RateLimit)
	}
	switch c.Store.Backend {
	case BackendSQL:
		return c.Store.SQL.Validate()
	case BackendInflux:
		if c.Store.Influx.URL == "" || c.Store.Influx.Org == "" || c.Store.Influx.Bucket == "" {
			return errors.New("influx store requires url, org and bucket")
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Store.Backend)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}
