package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scoutsec/cmmc-scout/pkg/database"
	"github.com/scoutsec/cmmc-scout/pkg/events"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db        *database.DB
	producer  *events.Producer
	version   string
	gitCommit string
}

// NewHealthHandler creates a new HealthHandler. Both db and producer
// may be nil when the corresponding subsystem is disabled.
func NewHealthHandler(db *database.DB, producer *events.Producer, version, gitCommit string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		producer:  producer,
		version:   version,
		gitCommit: gitCommit,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	Service   string `json:"service"`
}

// Liveness handles the liveness probe.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readiness handles the readiness probe. The event producer running in
// file fallback mode degrades the status but does not fail it.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	allHealthy := true

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.producer != nil {
		if h.producer.FallbackMode() {
			checks["events"] = "fallback"
		} else {
			checks["events"] = "healthy"
		}
	} else {
		checks["events"] = "not configured"
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: status, Checks: checks})
}

// Version handles the version endpoint.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:   h.version,
		GitCommit: h.gitCommit,
		Service:   "cmmc-scout-api",
	})
}

// Metrics handles the Prometheus metrics endpoint.
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
