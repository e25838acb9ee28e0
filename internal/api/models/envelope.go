package models

import (
	"time"

	"github.com/lorasense/lorasense/internal/reading"
)

// EnvelopeStatus is the outcome field of an Envelope.
type EnvelopeStatus string

const (
	EnvelopeStatusSuccess EnvelopeStatus = "success"
	EnvelopeStatusError   EnvelopeStatus = "error"
)

// Envelope messages.
const (
	MessageSuccess          = "Data retrieved successfully"
	MessageNoRecords        = "No records found in the database."
	MessageConnectionFailed = "Connection failed: "
	MessageQueryFailed      = "Query failed: "
)

// Envelope is the response body of the latest-reading endpoint.
// Data is non-nil exactly when Status is success.
type Envelope struct {
	Status  EnvelopeStatus  `json:"status"`
	Message string          `json:"message"`
	Data    *ReadingPayload `json:"data"`
}

// ReadingPayload is the wire form of a reading.
type ReadingPayload struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Moisture    float64 `json:"moisture"`
	// Timestamp is RFC 3339, or empty when the store has no time for the row.
	Timestamp string `json:"timestamp"`
}

// NewEnvelope converts a lookup result into its wire envelope.
func NewEnvelope(latest reading.Latest) Envelope {
	if r, ok := latest.Reading(); ok {
		return Envelope{
			Status:  EnvelopeStatusSuccess,
			Message: MessageSuccess,
			Data:    newReadingPayload(r),
		}
	}

	env := Envelope{Status: EnvelopeStatusError}
	switch latest.Reason() {
	case reading.ReasonConnectionFailed:
		env.Message = MessageConnectionFailed + latest.Err().Error()
	case reading.ReasonQueryFailed:
		env.Message = MessageQueryFailed + latest.Err().Error()
	default:
		env.Message = MessageNoRecords
	}
	return env
}

// OK reports whether the envelope carries a reading.
func (e Envelope) OK() bool {
	return e.Status == EnvelopeStatusSuccess && e.Data != nil
}

func newReadingPayload(r reading.Reading) *ReadingPayload {
	p := &ReadingPayload{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Moisture:    r.Moisture,
	}
	if !r.Timestamp.IsZero() {
		p.Timestamp = r.Timestamp.Format(time.RFC3339)
	}
	return p
}
