// Package handler provides HTTP handlers for the railwake API.
package handler

import (
	"net/http"
	"time"

	"github.com/railwake/railwake/internal/api/models"
	"github.com/railwake/railwake/internal/api/response"
	"github.com/railwake/railwake/internal/transit"
)

// ProviderHealthReporter exposes the transit provider health table.
type ProviderHealthReporter interface {
	Health() []transit.ProviderHealth
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	providers ProviderHealthReporter
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, providers ProviderHealthReporter) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		providers: providers,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now().UTC(),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now().UTC(),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - transit provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	overall := models.HealthStatusOK

	var providers []models.ProviderStatus
	for _, p := range h.providers.Health() {
		status := models.HealthStatusOK
		if !p.IsAvailable {
			status = models.HealthStatusDegraded
			overall = models.HealthStatusDegraded
		}

		ps := models.ProviderStatus{
			Provider:  p.Name,
			Status:    status,
			LastError: p.LastError,
		}
		if !p.UnavailableSince.IsZero() {
			since := p.UnavailableSince
			ps.UnavailableSince = &since
		}
		providers = append(providers, ps)
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:    overall,
		Time:      time.Now().UTC(),
		Providers: providers,
	})
}
