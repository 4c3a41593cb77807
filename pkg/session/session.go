// Package session implements the assessment state machine. Each session
// owns the lifecycle of one assessment: initialized, in progress, optionally
// paused, and finally completed.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scoutsec/cmmc-scout/pkg/catalog"
	"github.com/scoutsec/cmmc-scout/pkg/events"
	"github.com/scoutsec/cmmc-scout/pkg/gaps"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
	"github.com/scoutsec/cmmc-scout/pkg/models"
)

// EventTopic is the topic all assessment events are emitted on.
const EventTopic = "assessment.events"

var (
	// ErrInvalidDomain means the requested domain has no controls.
	ErrInvalidDomain = errors.New("unknown assessment domain")
	// ErrAlreadyStarted means Start was called on a running session.
	ErrAlreadyStarted = errors.New("assessment already started")
)

// InvalidStateError reports an operation attempted in the wrong state.
type InvalidStateError struct {
	Op     string
	Status models.SessionStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s: session is %s", e.Op, e.Status)
}

// Session is the single writer for one assessment. All mutations are
// serialized through its mutex; concurrent sessions are fully independent.
type Session struct {
	mu sync.Mutex

	id      uuid.UUID
	userID  string
	catalog *catalog.Catalog
	sink    events.Sink
	log     *logger.Logger

	status       models.SessionStatus
	domain       string
	controls     []models.Control
	currentIndex int
	responses    []models.ClassifiedResponse
	startedAt    *time.Time
	completedAt  *time.Time
}

// New creates a session in the initialized state. The sink may be a
// NopSink when event emission is not wanted.
func New(id uuid.UUID, userID string, cat *catalog.Catalog, sink events.Sink, log *logger.Logger) *Session {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Session{
		id:      id,
		userID:  userID,
		catalog: cat,
		sink:    sink,
		log:     log.WithAssessment(id.String()),
		status:  models.SessionStatusInitialized,
	}
}

// ID returns the assessment identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// UserID returns the owning user identifier.
func (s *Session) UserID() string { return s.userID }

// Start begins the assessment over the named domain and returns the first
// control. Starting an already-started session is rejected rather than
// silently resetting accumulated responses.
func (s *Session) Start(domain string) (models.Control, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionStatusInitialized {
		if s.status == models.SessionStatusInProgress || s.status == models.SessionStatusPaused {
			return models.Control{}, ErrAlreadyStarted
		}
		return models.Control{}, &InvalidStateError{Op: "start", Status: s.status}
	}

	controls, ok := s.catalog.ByDomain(domain)
	if !ok || len(controls) == 0 {
		return models.Control{}, fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}

	now := time.Now().UTC()
	s.domain = domain
	s.controls = controls
	s.currentIndex = 0
	s.status = models.SessionStatusInProgress
	s.startedAt = &now

	s.log.Info("assessment started", "domain", domain, "control_count", len(controls))
	s.sink.Emit(EventTopic, events.AssessmentStartedEvent{
		BaseEvent:    events.NewBase(events.TypeAssessmentStarted, s.userID, s.id),
		Domain:       domain,
		ControlCount: len(controls),
	}, s.id.String())

	return controls[0], nil
}

// SubmitResult is what Submit returns: the next control when the
// assessment continues, or Done=true when the final control was answered.
type SubmitResult struct {
	Done     bool
	Next     models.Control
	Progress models.Progress
}

// Submit records a classified response for the current control and
// advances. Valid only while in progress.
func (s *Session) Submit(resp models.ClassifiedResponse) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionStatusInProgress {
		return SubmitResult{}, &InvalidStateError{Op: "submit response", Status: s.status}
	}

	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}
	s.responses = append(s.responses, resp)
	s.currentIndex++

	s.sink.Emit(EventTopic, events.ControlEvaluatedEvent{
		BaseEvent:        events.NewBase(events.TypeControlEvaluated, s.userID, s.id),
		ControlID:        resp.ControlID,
		ControlTitle:     resp.ControlTitle,
		Classification:   resp.Classification,
		UserResponse:     resp.UserResponse,
		AgentNotes:       resp.Explanation,
		EvidenceProvided: resp.EvidenceProvided,
	}, s.id.String())

	if rule, ok := gaps.RuleFor(resp.Classification); ok {
		description := resp.Explanation
		if description == "" {
			description = "Implementation gap identified"
		}
		if len(description) > 500 {
			description = description[:500]
		}
		s.sink.Emit(EventTopic, events.GapIdentifiedEvent{
			BaseEvent:           events.NewBase(events.TypeGapIdentified, s.userID, s.id),
			ControlID:           resp.ControlID,
			ControlTitle:        resp.ControlTitle,
			Severity:            rule.Severity,
			Description:         description,
			RemediationPriority: rule.Priority,
			EstimatedEffort:     rule.Effort,
		}, s.id.String())
	}

	if s.currentIndex < len(s.controls) {
		return SubmitResult{
			Next:     s.controls[s.currentIndex],
			Progress: s.progressLocked(),
		}, nil
	}

	now := time.Now().UTC()
	s.status = models.SessionStatusCompleted
	s.completedAt = &now
	s.log.Info("assessment completed",
		"domain", s.domain, "responses", len(s.responses))

	return SubmitResult{Done: true, Progress: s.progressLocked()}, nil
}

// Pause suspends an in-progress assessment.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionStatusInProgress {
		return &InvalidStateError{Op: "pause", Status: s.status}
	}
	s.status = models.SessionStatusPaused
	s.log.Info("assessment paused")
	return nil
}

// Resume continues a paused assessment.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionStatusPaused {
		return &InvalidStateError{Op: "resume", Status: s.status}
	}
	s.status = models.SessionStatusInProgress
	s.log.Info("assessment resumed")
	return nil
}

// CurrentControl returns the control awaiting a response. ok is false when
// the session is not in progress or all controls are answered.
func (s *Session) CurrentControl() (models.Control, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionStatusInProgress || s.currentIndex >= len(s.controls) {
		return models.Control{}, false
	}
	return s.controls[s.currentIndex], true
}

// State returns a deep snapshot of the session. Safe to read in any state.
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	responses := make([]models.ClassifiedResponse, len(s.responses))
	copy(responses, s.responses)

	return models.SessionState{
		UserID:       s.userID,
		AssessmentID: s.id,
		Domain:       s.domain,
		Status:       s.status,
		CurrentIndex: s.currentIndex,
		Responses:    responses,
		StartedAt:    copyTime(s.startedAt),
		CompletedAt:  copyTime(s.completedAt),
	}
}

// Progress reports how far through the control list the session is.
func (s *Session) Progress() models.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Session) progressLocked() models.Progress {
	total := len(s.controls)
	p := models.Progress{Completed: s.currentIndex, Total: total}
	if total > 0 {
		p.Percentage = float64(s.currentIndex) / float64(total) * 100
	}
	return p
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
