// Package api provides the HTTP API for lorasense.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lorasense/lorasense/internal/api/handler"
	"github.com/lorasense/lorasense/internal/api/middleware"
	"github.com/lorasense/lorasense/internal/api/response"
	"github.com/lorasense/lorasense/internal/reading"
)

// LatestReadingPath is the path the dashboard fetches.
const LatestReadingPath = "/v1/readings/latest"

// legacyLatestReadingPath keeps dashboards built against the PHP backend working.
const legacyLatestReadingPath = "/get_data.php"

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version        string
	BuildTime      string
	Logger         zerolog.Logger
	ServiceName    string
	Metrics        *middleware.Metrics
	ReadingService *reading.Service
	// RateLimit applies per client IP to the reading routes.
	// Zero uses middleware.StandardRateLimit.
	RateLimit middleware.RateLimitConfig
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "lorasense-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r, r.Method+" is not supported on "+r.URL.Path)
	})

	// A nil interface keeps readiness trivially OK when no store is wired.
	var readiness handler.ReadinessChecker
	if cfg.ReadingService != nil {
		readiness = cfg.ReadingService
	}
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, readiness)

	rateLimit := cfg.RateLimit
	if rateLimit.RequestLimit <= 0 || rateLimit.WindowLength <= 0 {
		rateLimit = middleware.StandardRateLimit
	}

	if cfg.ReadingService != nil {
		readingHandler := handler.NewReadingHandler(cfg.ReadingService, cfg.Metrics)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(rateLimit))
			r.Get(LatestReadingPath, readingHandler.GetLatest)
			r.Get(legacyLatestReadingPath, readingHandler.GetLatest)
		})
	}

	r.Route("/v1/ops", func(r chi.Router) {
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/ready", opsHandler.ReadinessCheck)
	})

	return r
}
