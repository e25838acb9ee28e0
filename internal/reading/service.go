package reading

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/lorasense/lorasense/internal/reading"

// ServiceConfig holds configuration for the reading service.
type ServiceConfig struct {
	// Store is the reading backend.
	Store Store

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service serves the latest reading from a Store.
type Service struct {
	store  Store
	logger zerolog.Logger
}

// NewService creates a new reading service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		store:  cfg.Store,
		logger: cfg.Logger,
	}
}

// Latest looks up the newest reading. The lookup is never retried.
func (s *Service) Latest(ctx context.Context) Latest {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "reading.Latest")
	defer span.End()

	start := time.Now()
	latest := s.store.Latest(ctx)

	span.SetAttributes(
		attribute.String("store.backend", s.store.Name()),
		attribute.String("reading.outcome", latest.Reason().String()),
	)

	switch latest.Reason() {
	case ReasonNone:
		r, _ := latest.Reading()
		s.logger.Debug().
			Str("store", s.store.Name()).
			Float64("temperature", r.Temperature).
			Float64("humidity", r.Humidity).
			Float64("moisture", r.Moisture).
			Time("timestamp", r.Timestamp).
			Dur("duration", time.Since(start)).
			Msg("latest reading retrieved")
	case ReasonNoRecords:
		s.logger.Info().
			Str("store", s.store.Name()).
			Msg("no readings stored yet")
	default:
		span.RecordError(latest.Err())
		span.SetStatus(codes.Error, latest.Reason().String())
		s.logger.Error().Err(latest.Err()).
			Str("store", s.store.Name()).
			Str("reason", latest.Reason().String()).
			Msg("failed to read latest reading")
	}

	return latest
}

// Ready reports whether the store can be reached.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// StoreName returns the name of the underlying backend.
func (s *Service) StoreName() string {
	return s.store.Name()
}
