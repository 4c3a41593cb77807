package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoutsec/cmmc-scout/internal/routes"
	"github.com/scoutsec/cmmc-scout/internal/service"
	"github.com/scoutsec/cmmc-scout/pkg/catalog"
	"github.com/scoutsec/cmmc-scout/pkg/config"
	"github.com/scoutsec/cmmc-scout/pkg/events"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
	"github.com/scoutsec/cmmc-scout/pkg/models"
)

// stubClassifier classifies by scanning the answer for keywords, so
// handler tests run without an LLM.
type stubClassifier struct{}

func (stubClassifier) Classify(_ context.Context, _ models.Control, userResponse string) models.ClassificationResult {
	lower := strings.ToLower(userResponse)
	switch {
	case strings.Contains(lower, "documented"):
		return models.ClassificationResult{
			Classification: models.ClassificationCompliant,
			Explanation:    "Documented policy with evidence.",
			Confidence:     0.9,
		}
	case strings.Contains(lower, "nothing"):
		return models.ClassificationResult{
			Classification: models.ClassificationNonCompliant,
			Explanation:    "No policy in place.",
			Remediation:    "Write and approve a policy.",
			Confidence:     0.85,
		}
	default:
		return models.ClassificationResult{
			Classification: models.ClassificationPartial,
			Explanation:    "Partially implemented.",
			Remediation:    "Close the remaining gaps.",
			Confidence:     0.7,
		}
	}
}

func (stubClassifier) GenerateQuestion(_ context.Context, ctl models.Control) string {
	return "How do you implement " + ctl.ControlID + "?"
}

func testCatalog(t *testing.T, controlCount int) *catalog.Catalog {
	t.Helper()
	var entries []string
	for i := 0; i < controlCount; i++ {
		entries = append(entries, fmt.Sprintf(
			`{"control_id":"AC.L2-3.1.%d","domain":"Access Control","title":"Control %d","requirement":"Requirement %d"}`,
			i+1, i+1, i+1))
	}
	c, err := catalog.Load(strings.NewReader("[" + strings.Join(entries, ",") + "]"))
	require.NoError(t, err)
	return c
}

// newTestServer builds the full router with dev-mode auth, an in-memory
// service, and no database or event broker.
func newTestServer(t *testing.T, controlCount int) http.Handler {
	t.Helper()
	log := logger.New("error", "text")
	svc := service.New(testCatalog(t, controlCount), stubClassifier{}, events.NopSink{}, nil, log)

	return routes.New(routes.Config{
		Service: svc,
		Config: &config.Config{
			Auth:    config.AuthConfig{DevMode: true},
			Metrics: config.MetricsConfig{Enabled: false},
		},
		Logger:    log,
		BuildInfo: routes.BuildInfo{Version: "test", GitCommit: "abc123"},
	})
}

// doJSON executes a request with a JSON body against the router.
func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// decodeJSON decodes a JSON response body into the target struct.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(target))
}
