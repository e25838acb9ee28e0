package reading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lorasense/lorasense/internal/database"
)

// Opener returns a fresh, not yet dialed database handle.
type Opener func() (*sql.DB, error)

// SQLStore reads the newest row of a readings table. Every call opens its own
// connection and closes it before returning.
type SQLStore struct {
	open  Opener
	query string
}

// NewSQLStore creates a store for the table and time column in cfg.
// A nil opener uses database.Opener(cfg).
func NewSQLStore(cfg database.Config, open Opener) (*SQLStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if open == nil {
		open = database.Opener(cfg)
	}
	return &SQLStore{
		open:  open,
		query: LatestQuery(cfg.Table, cfg.TimeColumn),
	}, nil
}

// LatestQuery builds the latest-reading query. Identifiers must already be validated.
func LatestQuery(table, timeColumn string) string {
	return fmt.Sprintf(
		"SELECT temperature, humidity, moisture, %[2]s AS timestamp FROM %[1]s ORDER BY %[2]s DESC LIMIT 1",
		table, timeColumn,
	)
}

// Name returns the backend name.
func (s *SQLStore) Name() string {
	return "sql"
}

// Latest returns the newest reading. The ping and the query share one connection.
func (s *SQLStore) Latest(ctx context.Context) Latest {
	db, conn, err := s.acquire(ctx)
	if err != nil {
		return Absent(ReasonConnectionFailed, err)
	}
	defer db.Close()
	defer conn.Close()

	var (
		r                     Reading
		temp, humid, moisture sql.NullFloat64
		ts                    sql.NullTime
	)
	err = conn.QueryRowContext(ctx, s.query).Scan(&temp, &humid, &moisture, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Absent(ReasonNoRecords, ErrNoRecords)
		}
		return Absent(ReasonQueryFailed, err)
	}
	// NULL values read as zero.
	r.Temperature = temp.Float64
	r.Humidity = humid.Float64
	r.Moisture = moisture.Float64
	if ts.Valid {
		r.Timestamp = ts.Time
	}

	return Found(r)
}

// Ping opens a connection, pings it and closes it.
func (s *SQLStore) Ping(ctx context.Context) error {
	db, conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return db.Close()
}

// acquire opens a handle, takes its single connection and pings it.
func (s *SQLStore) acquire(ctx context.Context) (*sql.DB, *sql.Conn, error) {
	db, err := s.open()
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, nil, err
	}
	return db, conn, nil
}
