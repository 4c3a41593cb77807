package events

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutsec/cmmc-scout/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fallbackProducer(t *testing.T) *Producer {
	t.Helper()
	return &Producer{
		fallbackMode: true,
		fallbackPath: filepath.Join(t.TempDir(), "events.jsonl"),
		logger:       testLogger(),
	}
}

func TestEmitFallbackFile(t *testing.T) {
	p := fallbackProducer(t)
	assessmentID := uuid.New()

	ev := AssessmentStartedEvent{
		BaseEvent:    NewBase(TypeAssessmentStarted, "user-1", assessmentID),
		Domain:       "Access Control",
		ControlCount: 5,
	}
	require.True(t, p.Emit("assessment.events", ev, assessmentID.String()))

	ev2 := ControlEvaluatedEvent{
		BaseEvent:      NewBase(TypeControlEvaluated, "user-1", assessmentID),
		ControlID:      "AC.L2-3.1.1",
		Classification: models.ClassificationCompliant,
		UserResponse:   "We maintain an access control policy.",
	}
	require.True(t, p.Emit("assessment.events", ev2, assessmentID.String()))

	f, err := os.Open(p.fallbackPath)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)

	assert.Equal(t, "assessment.events", lines[0]["topic"])
	assert.Equal(t, assessmentID.String(), lines[0]["key"])

	value, ok := lines[0]["value"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, TypeAssessmentStarted, value["event_type"])
	assert.Equal(t, "Access Control", value["domain"])
	assert.Equal(t, float64(5), value["control_count"])

	value2 := lines[1]["value"].(map[string]any)
	assert.Equal(t, TypeControlEvaluated, value2["event_type"])
	assert.Equal(t, "compliant", value2["classification"])
}

func TestEmitUnmarshalableEvent(t *testing.T) {
	p := fallbackProducer(t)
	assert.False(t, p.Emit("assessment.events", func() {}, "k"))
}

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	assert.True(t, s.Emit("any", struct{}{}, ""))
	assert.NoError(t, s.Close())
}
