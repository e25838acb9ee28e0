package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorasense/lorasense/internal/api/middleware"
)

// logLine serves one request through wrap(handler) and returns the decoded log entry.
func logLine(t *testing.T, wrap func(zerolog.Logger, http.Handler) http.Handler, handler http.Handler, req *http.Request) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	wrap(zerolog.New(&buf), handler).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func loggerOnly(log zerolog.Logger, h http.Handler) http.Handler {
	return middleware.Logger(log)(h)
}

func TestLogger_RequestFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/readings/latest", http.NoBody)
	req.Header.Set("User-Agent", "lorasense-dashboard")

	entry := logLine(t, loggerOnly, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}), req)

	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/v1/readings/latest", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(20), entry["bytes"])
	assert.Equal(t, "lorasense-dashboard", entry["user_agent"])
	assert.Contains(t, entry, "duration")
}

func TestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		code  int
		level string
	}{
		{http.StatusOK, "info"},
		{http.StatusNoContent, "info"},
		{http.StatusNotFound, "warn"},
		{http.StatusTooManyRequests, "warn"},
		{http.StatusInternalServerError, "error"},
		{http.StatusServiceUnavailable, "error"},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			entry := logLine(t, loggerOnly, statusHandler(tc.code),
				httptest.NewRequest(http.MethodPost, "/x", http.NoBody))

			assert.Equal(t, tc.level, entry["level"])
			assert.Equal(t, float64(tc.code), entry["status"])
		})
	}
}

func TestLogger_IncludesRequestID(t *testing.T) {
	withRequestID := func(log zerolog.Logger, h http.Handler) http.Handler {
		return middleware.RequestID(middleware.Logger(log)(h))
	}

	entry := logLine(t, withRequestID, statusHandler(http.StatusOK),
		httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

	requestID, ok := entry["request_id"].(string)
	require.True(t, ok)
	assert.Contains(t, requestID, "req_")
}

func TestLogger_IncludesTraceAndSpanIDs(t *testing.T) {
	sr := installRecorder(t)
	withTracing := func(log zerolog.Logger, h http.Handler) http.Handler {
		return middleware.Tracing("svc")(middleware.Logger(log)(h))
	}

	entry := logLine(t, withTracing, statusHandler(http.StatusOK),
		httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

	span := onlySpan(t, sr)
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
}

func TestLogger_NoTraceFieldsWithoutSpan(t *testing.T) {
	entry := logLine(t, loggerOnly, statusHandler(http.StatusOK),
		httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestLogger_IncludesRoutePattern(t *testing.T) {
	var buf bytes.Buffer

	r := chi.NewRouter()
	r.Use(middleware.Logger(zerolog.New(&buf)))
	r.Get("/v1/readings/{id}", func(w http.ResponseWriter, r *http.Request) {})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/readings/7", http.NoBody))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "/v1/readings/{id}", entry["route"])
	assert.Equal(t, "/v1/readings/7", entry["path"])
}
