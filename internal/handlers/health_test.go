package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scoutsec/cmmc-scout/internal/handlers"
)

func TestHealthHandler_Liveness(t *testing.T) {
	handler := handlers.NewHealthHandler(nil, nil, "1.0.0", "abc123")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	handler.Liveness(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var response handlers.HealthResponse
	decodeJSON(t, rr, &response)
	assert.Equal(t, "ok", response.Status)
}

func TestHealthHandler_Readiness(t *testing.T) {
	t.Run("nothing configured is still ready", func(t *testing.T) {
		handler := handlers.NewHealthHandler(nil, nil, "1.0.0", "abc123")

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rr := httptest.NewRecorder()

		handler.Readiness(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var response handlers.HealthResponse
		decodeJSON(t, rr, &response)
		assert.Equal(t, "ok", response.Status)
		assert.Equal(t, "not configured", response.Checks["database"])
		assert.Equal(t, "not configured", response.Checks["events"])
	})
}

func TestHealthHandler_Version(t *testing.T) {
	handler := handlers.NewHealthHandler(nil, nil, "2.0.0", "def456")

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rr := httptest.NewRecorder()

	handler.Version(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var response handlers.VersionResponse
	decodeJSON(t, rr, &response)
	assert.Equal(t, "2.0.0", response.Version)
	assert.Equal(t, "def456", response.GitCommit)
	assert.Equal(t, "cmmc-scout-api", response.Service)
}
