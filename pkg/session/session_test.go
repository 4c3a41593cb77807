package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutsec/cmmc-scout/pkg/catalog"
	"github.com/scoutsec/cmmc-scout/pkg/events"
	"github.com/scoutsec/cmmc-scout/pkg/gaps"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
	"github.com/scoutsec/cmmc-scout/pkg/models"
)

// captureSink records emitted events for assertions.
type captureSink struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (c *captureSink) Emit(topic string, event any, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.events = append(c.events, event)
	return true
}

func (c *captureSink) Close() error { return nil }

func (c *captureSink) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, ev := range c.events {
		switch e := ev.(type) {
		case events.AssessmentStartedEvent:
			out = append(out, e.EventType)
		case events.ControlEvaluatedEvent:
			out = append(out, e.EventType)
		case events.GapIdentifiedEvent:
			out = append(out, e.EventType)
		case events.ReportGeneratedEvent:
			out = append(out, e.EventType)
		}
	}
	return out
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

func newTestSession(t *testing.T, controlCount int) (*Session, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	s := New(uuid.New(), "user-1", testCatalog(t, controlCount), sink, logger.New("error", "text"))
	return s, sink
}

func response(id string, c models.Classification) models.ClassifiedResponse {
	return models.ClassifiedResponse{
		ControlID:      id,
		ControlTitle:   "Control " + id,
		UserResponse:   "answer for " + id,
		Classification: c,
	}
}

func TestStart(t *testing.T) {
	s, sink := newTestSession(t, 3)

	first, err := s.Start("Access Control")
	require.NoError(t, err)
	assert.Equal(t, "AC.L2-3.1.1", first.ControlID)

	state := s.State()
	assert.Equal(t, models.SessionStatusInProgress, state.Status)
	assert.Equal(t, 0, state.CurrentIndex)
	require.NotNil(t, state.StartedAt)
	assert.Nil(t, state.CompletedAt)

	assert.Equal(t, []string{"assessment.started"}, sink.types())
}

func TestStartUnknownDomain(t *testing.T) {
	s, _ := newTestSession(t, 3)

	_, err := s.Start("Bogus Domain")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDomain)
	assert.Equal(t, models.SessionStatusInitialized, s.State().Status)
}

func TestStartTwiceRejected(t *testing.T) {
	s, _ := newTestSession(t, 3)

	_, err := s.Start("Access Control")
	require.NoError(t, err)

	_, err = s.Start("Access Control")
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	// Paused sessions are started, too.
	require.NoError(t, s.Pause())
	_, err = s.Start("Access Control")
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestSubmitAdvancesAndCompletes(t *testing.T) {
	s, sink := newTestSession(t, 3)
	_, err := s.Start("Access Control")
	require.NoError(t, err)

	res, err := s.Submit(response("AC.L2-3.1.1", models.ClassificationCompliant))
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, "AC.L2-3.1.2", res.Next.ControlID)
	assert.Equal(t, 1, res.Progress.Completed)
	assert.Equal(t, 3, res.Progress.Total)
	assert.InDelta(t, 33.333, res.Progress.Percentage, 0.01)

	res, err = s.Submit(response("AC.L2-3.1.2", models.ClassificationPartial))
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, "AC.L2-3.1.3", res.Next.ControlID)

	res, err = s.Submit(response("AC.L2-3.1.3", models.ClassificationNonCompliant))
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.InDelta(t, 100.0, res.Progress.Percentage, 1e-9)

	state := s.State()
	assert.Equal(t, models.SessionStatusCompleted, state.Status)
	require.NotNil(t, state.CompletedAt)
	require.Len(t, state.Responses, 3)

	// started, 3 evaluated, 2 gaps (partial + non_compliant)
	types := sink.types()
	assert.Equal(t, 1, countOf(types, "assessment.started"))
	assert.Equal(t, 3, countOf(types, "control.evaluated"))
	assert.Equal(t, 2, countOf(types, "gap.identified"))
}

func TestGapEventsCarryRuleAttributes(t *testing.T) {
	s, sink := newTestSession(t, 2)
	_, err := s.Start("Access Control")
	require.NoError(t, err)

	_, err = s.Submit(response("AC.L2-3.1.1", models.ClassificationPartial))
	require.NoError(t, err)
	_, err = s.Submit(response("AC.L2-3.1.2", models.ClassificationNonCompliant))
	require.NoError(t, err)

	var gapEvents []events.GapIdentifiedEvent
	sink.mu.Lock()
	for _, ev := range sink.events {
		if e, ok := ev.(events.GapIdentifiedEvent); ok {
			gapEvents = append(gapEvents, e)
		}
	}
	sink.mu.Unlock()
	require.Len(t, gapEvents, 2)

	// Event payloads use the same rule table as gap analysis.
	partialRule, ok := gaps.RuleFor(models.ClassificationPartial)
	require.True(t, ok)
	assert.Equal(t, "AC.L2-3.1.1", gapEvents[0].ControlID)
	assert.Equal(t, partialRule.Severity, gapEvents[0].Severity)
	assert.Equal(t, partialRule.Priority, gapEvents[0].RemediationPriority)
	assert.Equal(t, partialRule.Effort, gapEvents[0].EstimatedEffort)

	nonCompliantRule, ok := gaps.RuleFor(models.ClassificationNonCompliant)
	require.True(t, ok)
	assert.Equal(t, "AC.L2-3.1.2", gapEvents[1].ControlID)
	assert.Equal(t, nonCompliantRule.Severity, gapEvents[1].Severity)
	assert.Equal(t, nonCompliantRule.Priority, gapEvents[1].RemediationPriority)
	assert.Equal(t, nonCompliantRule.Effort, gapEvents[1].EstimatedEffort)
}

func TestSubmitInvalidStates(t *testing.T) {
	s, _ := newTestSession(t, 2)

	// Before start.
	_, err := s.Submit(response("AC.L2-3.1.1", models.ClassificationCompliant))
	var ise *InvalidStateError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, models.SessionStatusInitialized, ise.Status)

	// While paused.
	_, err = s.Start("Access Control")
	require.NoError(t, err)
	require.NoError(t, s.Pause())
	_, err = s.Submit(response("AC.L2-3.1.1", models.ClassificationCompliant))
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, models.SessionStatusPaused, ise.Status)

	// After completion.
	require.NoError(t, s.Resume())
	_, err = s.Submit(response("AC.L2-3.1.1", models.ClassificationCompliant))
	require.NoError(t, err)
	_, err = s.Submit(response("AC.L2-3.1.2", models.ClassificationCompliant))
	require.NoError(t, err)
	_, err = s.Submit(response("AC.L2-3.1.2", models.ClassificationCompliant))
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, models.SessionStatusCompleted, ise.Status)
}

func TestPauseResume(t *testing.T) {
	s, _ := newTestSession(t, 2)

	// Pause before start fails.
	var ise *InvalidStateError
	require.ErrorAs(t, s.Pause(), &ise)

	_, err := s.Start("Access Control")
	require.NoError(t, err)

	require.NoError(t, s.Pause())
	assert.Equal(t, models.SessionStatusPaused, s.State().Status)

	// Double pause fails.
	require.ErrorAs(t, s.Pause(), &ise)
	assert.Equal(t, models.SessionStatusPaused, ise.Status)

	require.NoError(t, s.Resume())
	assert.Equal(t, models.SessionStatusInProgress, s.State().Status)

	// Resume when not paused fails.
	require.ErrorAs(t, s.Resume(), &ise)
}

func TestCurrentControl(t *testing.T) {
	s, _ := newTestSession(t, 2)

	_, ok := s.CurrentControl()
	assert.False(t, ok)

	_, err := s.Start("Access Control")
	require.NoError(t, err)

	ctl, ok := s.CurrentControl()
	require.True(t, ok)
	assert.Equal(t, "AC.L2-3.1.1", ctl.ControlID)

	_, err = s.Submit(response("AC.L2-3.1.1", models.ClassificationCompliant))
	require.NoError(t, err)

	ctl, ok = s.CurrentControl()
	require.True(t, ok)
	assert.Equal(t, "AC.L2-3.1.2", ctl.ControlID)
}

func TestStateIsSnapshot(t *testing.T) {
	s, _ := newTestSession(t, 2)
	_, err := s.Start("Access Control")
	require.NoError(t, err)
	_, err = s.Submit(response("AC.L2-3.1.1", models.ClassificationCompliant))
	require.NoError(t, err)

	state := s.State()
	state.Responses[0].ControlID = "mutated"
	assert.Equal(t, "AC.L2-3.1.1", s.State().Responses[0].ControlID)
}

func TestConcurrentSubmitsSerialize(t *testing.T) {
	s, _ := newTestSession(t, 8)
	_, err := s.Start("Access Control")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Submit(response(fmt.Sprintf("AC.L2-3.1.%d", n%8+1), models.ClassificationCompliant))
		}(i)
	}
	wg.Wait()

	// Exactly control-count submits succeed; the rest fail on state.
	state := s.State()
	assert.Equal(t, models.SessionStatusCompleted, state.Status)
	assert.Len(t, state.Responses, 8)
	assert.Equal(t, 8, state.CurrentIndex)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	s, _ := newTestSession(t, 1)

	_, err := r.Get(s.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	r.Add(s)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	r.Remove(s.ID())
	assert.Equal(t, 0, r.Len())
	_, err = r.Get(s.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidStateErrorMessage(t *testing.T) {
	err := &InvalidStateError{Op: "pause", Status: models.SessionStatusCompleted}
	assert.Equal(t, "cannot pause: session is completed", err.Error())
	assert.True(t, errors.As(error(err), new(*InvalidStateError)))
}

func countOf(ss []string, want string) int {
	n := 0
	for _, s := range ss {
		if s == want {
			n++
		}
	}
	return n
}
