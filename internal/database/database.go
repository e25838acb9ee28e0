// Package database provides SQL connection configuration for the reading store.
package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// Supported drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Default ports, used when Config.Port is zero.
const (
	DefaultMySQLPort    = 3306
	DefaultPostgresPort = 5432
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidIdentifier is returned when a table or column name is not a plain SQL identifier.
var ErrInvalidIdentifier = errors.New("invalid sql identifier")

// Config holds database connection configuration.
type Config struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	// Table holds the readings; TimeColumn orders them.
	Table      string `yaml:"table"`
	TimeColumn string `yaml:"time_column"`
}

// DefaultConfig matches a stock local MySQL install with the aht readings table.
func DefaultConfig() Config {
	return Config{
		Driver:     DriverMySQL,
		Host:       "localhost",
		User:       "root",
		Database:   "sensors",
		SSLMode:    "disable",
		Table:      "aht",
		TimeColumn: "datetime",
	}
}

// Validate checks the driver and the configured identifiers.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid database port %d", c.Port)
	}
	if !identifierPattern.MatchString(c.Table) {
		return fmt.Errorf("%w: table %q", ErrInvalidIdentifier, c.Table)
	}
	if !identifierPattern.MatchString(c.TimeColumn) {
		return fmt.Errorf("%w: time column %q", ErrInvalidIdentifier, c.TimeColumn)
	}
	return nil
}

// EffectivePort returns Port, or the driver's default port when Port is zero.
func (c Config) EffectivePort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.Driver == DriverPostgres {
		return DefaultPostgresPort
	}
	return DefaultMySQLPort
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.EffectivePort()))
}

// ConnectionString returns the driver-specific DSN.
func (c Config) ConnectionString() string {
	if c.Driver == DriverPostgres {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.addr(),
			Path:     "/" + c.Database,
			RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
		}
		return u.String()
	}
	return c.mysqlConfig().FormatDSN()
}

func (c Config) mysqlConfig() *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.addr()
	mc.DBName = c.Database
	mc.ParseTime = true
	return mc
}

// Connector returns a driver connector for c. It parses the configuration
// but does not dial.
func (c Config) Connector() (driver.Connector, error) {
	if c.Driver == DriverPostgres {
		pc, err := pgx.ParseConfig(c.ConnectionString())
		if err != nil {
			return nil, fmt.Errorf("parse postgres config: %w", err)
		}
		return stdlib.GetConnector(*pc), nil
	}
	return mysql.NewConnector(c.mysqlConfig())
}

// Open returns a handle for cfg limited to a single connection. The caller must Close it.
func Open(cfg Config) (*sql.DB, error) {
	connector, err := cfg.Connector()
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}
	return OpenDB(connector), nil
}

// OpenDB wraps connector in a handle that holds at most one connection and
// keeps none idle. Nothing is dialed until the first Conn, Ping or query.
func OpenDB(connector driver.Connector) *sql.DB {
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)
	return db
}

// Opener returns a function that opens a fresh handle for cfg on every call.
func Opener(cfg Config) func() (*sql.DB, error) {
	return func() (*sql.DB, error) {
		return Open(cfg)
	}
}
