package api_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorasense/lorasense/internal/api"
	"github.com/lorasense/lorasense/internal/api/middleware"
	"github.com/lorasense/lorasense/internal/api/models"
	"github.com/lorasense/lorasense/internal/reading"
)

func newTestRouter(store reading.Store) http.Handler {
	logger := zerolog.New(io.Discard)
	return api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2024-01-01T00:00:00Z",
		Logger:    logger,
		ReadingService: reading.NewService(reading.ServiceConfig{
			Store:  store,
			Logger: logger,
		}),
	})
}

func getEnvelope(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, models.Envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env models.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestRouter_LatestReading_Success(t *testing.T) {
	store := reading.NewMemoryStore()
	store.Add(reading.Reading{Temperature: 70, Humidity: 35, Moisture: 10, Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	store.Add(reading.Reading{Temperature: 72.5, Humidity: 40.1, Moisture: 15, Timestamp: time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)})

	w, env := getEnvelope(t, newTestRouter(store), api.LatestReadingPath)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	assert.Equal(t, models.EnvelopeStatusSuccess, env.Status)
	assert.Equal(t, "Data retrieved successfully", env.Message)
	require.NotNil(t, env.Data)
	assert.Equal(t, 72.5, env.Data.Temperature)
	assert.Equal(t, 40.1, env.Data.Humidity)
	assert.Equal(t, 15.0, env.Data.Moisture)
	assert.Equal(t, "2024-01-01T00:05:00Z", env.Data.Timestamp)
}

func TestRouter_LatestReading_Empty(t *testing.T) {
	w, env := getEnvelope(t, newTestRouter(reading.NewMemoryStore()), api.LatestReadingPath)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EnvelopeStatusError, env.Status)
	assert.Equal(t, "No records found in the database.", env.Message)
	assert.Nil(t, env.Data)
	assert.Contains(t, w.Body.String(), `"data":null`)
}

func TestRouter_LatestReading_ConnectionFailed(t *testing.T) {
	store := reading.NewMemoryStore()
	store.Fail(reading.ReasonConnectionFailed, errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"))

	w, env := getEnvelope(t, newTestRouter(store), api.LatestReadingPath)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EnvelopeStatusError, env.Status)
	assert.Equal(t, "Connection failed: dial tcp 127.0.0.1:3306: connect: connection refused", env.Message)
	assert.Nil(t, env.Data)
}

func TestRouter_LatestReading_QueryFailed(t *testing.T) {
	store := reading.NewMemoryStore()
	store.Fail(reading.ReasonQueryFailed, errors.New("Table 'sensors.aht' doesn't exist"))

	w, env := getEnvelope(t, newTestRouter(store), api.LatestReadingPath)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Query failed: Table 'sensors.aht' doesn't exist", env.Message)
	assert.Nil(t, env.Data)
}

func TestRouter_LegacyPath(t *testing.T) {
	store := reading.NewMemoryStore()
	store.Add(reading.Reading{Temperature: 1, Humidity: 2, Moisture: 3})

	w, env := getEnvelope(t, newTestRouter(store), "/get_data.php")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.OK())
	assert.Empty(t, env.Data.Timestamp)
}

func TestRouter_LatestReading_Preflight(t *testing.T) {
	router := newTestRouter(reading.NewMemoryStore())

	req := httptest.NewRequest(http.MethodOptions, api.LatestReadingPath, http.NoBody)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(reading.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.False(t, health.Time.IsZero())
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(reading.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "memory", health.Details["store"])
}

func TestRouter_ReadinessCheck_StoreDown(t *testing.T) {
	store := reading.NewMemoryStore()
	store.Fail(reading.ReasonConnectionFailed, errors.New("connection refused"))
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeUnavailable, problem.Type)
	assert.Contains(t, problem.Detail, "connection refused")
}

func TestRouter_ReadinessCheck_NoStore(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{Logger: zerolog.Nop()})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(reading.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/readings/history", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeNotFound, problem.Type)
	assert.Equal(t, "/v1/readings/history", problem.Instance)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(reading.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, api.LatestReadingPath, http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeMethodNotAllowed, problem.Type)
}

func TestRouter_LatestReading_RateLimited(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{
		Logger:    zerolog.Nop(),
		RateLimit: middleware.PerMinute(2),
		ReadingService: reading.NewService(reading.ServiceConfig{
			Store:  reading.NewMemoryStore(),
			Logger: zerolog.Nop(),
		}),
	})

	var last *httptest.ResponseRecorder
	for i := 0; i <= 2; i++ {
		req := httptest.NewRequest(http.MethodGet, api.LatestReadingPath, http.NoBody)
		req.RemoteAddr = "198.51.100.7:4000"
		last = httptest.NewRecorder()
		router.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "application/problem+json", last.Header().Get("Content-Type"))
}
