// Package models defines the JSON bodies of the lorasense API.
package models

import "time"

// HealthStatus is the coarse state reported by the ops endpoints.
type HealthStatus string

// HealthStatusOK is the only status written; failures are problem responses.
const HealthStatusOK HealthStatus = "OK"

// Health is the body of the liveness and readiness endpoints.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewHealth returns an OK health report stamped with now in UTC, truncated to seconds.
func NewHealth(now time.Time) Health {
	return Health{
		Status: HealthStatusOK,
		Time:   now.UTC().Truncate(time.Second),
	}
}
