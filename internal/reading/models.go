// Package reading provides access to the most recent environmental sample.
package reading

import (
	"errors"
	"time"
)

// Errors describing why no reading could be produced.
var (
	ErrNoRecords = errors.New("no records found")
)

// Reading is one timestamped sample of temperature, humidity and moisture.
type Reading struct {
	Temperature float64
	Humidity    float64
	Moisture    float64
	Timestamp   time.Time
}

// Reason explains the outcome of a latest-reading lookup.
type Reason int

const (
	// ReasonNone means a reading was found.
	ReasonNone Reason = iota
	// ReasonConnectionFailed means the store could not be reached; no query was issued.
	ReasonConnectionFailed
	// ReasonQueryFailed means the store rejected or failed the query.
	ReasonQueryFailed
	// ReasonNoRecords means the query succeeded but the table is empty.
	ReasonNoRecords
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "found"
	case ReasonConnectionFailed:
		return "connection_failed"
	case ReasonQueryFailed:
		return "query_failed"
	case ReasonNoRecords:
		return "no_records"
	default:
		return "unknown"
	}
}

// Latest is the result of one lookup: either a Reading, or an absence with a
// Reason. The zero value is an absence with ReasonNoRecords.
type Latest struct {
	reading Reading
	found   bool
	reason  Reason
	err     error
}

// Found wraps a reading.
func Found(r Reading) Latest {
	return Latest{reading: r, found: true, reason: ReasonNone}
}

// Absent records why no reading is available. A nil err is replaced by a
// generic error for the reason so Err never returns nil on an absence.
func Absent(reason Reason, err error) Latest {
	if reason == ReasonNone {
		reason = ReasonNoRecords
	}
	if err == nil {
		err = errorFor(reason)
	}
	return Latest{reason: reason, err: err}
}

// Reading returns the reading and true when one was found.
func (l Latest) Reading() (Reading, bool) {
	return l.reading, l.found
}

// Reason returns ReasonNone for a found reading.
func (l Latest) Reason() Reason {
	if l.found {
		return ReasonNone
	}
	if l.reason == ReasonNone {
		return ReasonNoRecords
	}
	return l.reason
}

// Err returns the underlying failure, or nil when a reading was found.
func (l Latest) Err() error {
	if l.found {
		return nil
	}
	if l.err == nil {
		return ErrNoRecords
	}
	return l.err
}

func errorFor(reason Reason) error {
	switch reason {
	case ReasonConnectionFailed:
		return errors.New("connection failed")
	case ReasonQueryFailed:
		return errors.New("query failed")
	default:
		return ErrNoRecords
	}
}
