// Package handler provides HTTP handlers for the lorasense API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/lorasense/lorasense/internal/api/models"
	"github.com/lorasense/lorasense/internal/api/response"
)

// readyTimeout bounds the store ping of a readiness probe.
const readyTimeout = 2 * time.Second

// ReadinessChecker reports whether a backing store is reachable.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
	StoreName() string
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	store     ReadinessChecker
}

// NewOpsHandler creates a new OpsHandler. A nil store is always ready.
func NewOpsHandler(version, buildTime string, store ReadinessChecker) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		store:     store,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.NewHealth(time.Now())
	health.Details = map[string]interface{}{
		"version":   h.version,
		"buildTime": h.buildTime,
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - pings the reading store.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.NewHealth(time.Now())
	if h.store == nil {
		response.JSON(w, r, http.StatusOK, health)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	health.Details = map[string]interface{}{"store": h.store.StoreName()}
	if err := h.store.Ready(ctx); err != nil {
		response.ServiceUnavailable(w, r, h.store.StoreName()+" store unreachable: "+err.Error())
		return
	}
	response.JSON(w, r, http.StatusOK, health)
}
