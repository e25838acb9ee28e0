package handler

import (
	"context"
	"net/http"

	"github.com/lorasense/lorasense/internal/api/middleware"
	"github.com/lorasense/lorasense/internal/api/models"
	"github.com/lorasense/lorasense/internal/api/response"
	"github.com/lorasense/lorasense/internal/reading"
)

// LatestReader returns the newest reading and names its backend.
type LatestReader interface {
	Latest(ctx context.Context) reading.Latest
	StoreName() string
}

// ReadingHandler serves the latest-reading endpoint.
type ReadingHandler struct {
	readings LatestReader
	metrics  *middleware.Metrics
}

// NewReadingHandler creates a new ReadingHandler. metrics may be nil.
func NewReadingHandler(readings LatestReader, metrics *middleware.Metrics) *ReadingHandler {
	return &ReadingHandler{
		readings: readings,
		metrics:  metrics,
	}
}

// GetLatest handles GET /v1/readings/latest.
// Every lookup outcome is reported in the envelope with status 200.
func (h *ReadingHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	latest := h.readings.Latest(r.Context())
	h.metrics.RecordLookup(r.Context(), h.readings.StoreName(), latest.Reason().String())

	response.Envelope(w, r, models.NewEnvelope(latest))
}
