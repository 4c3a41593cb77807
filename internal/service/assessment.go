// Package service orchestrates assessment sessions: it wires the catalog,
// classifier, event sink, and optional persistence behind one API used by
// both the HTTP handlers and the CLI.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scoutsec/cmmc-scout/internal/classifier"
	"github.com/scoutsec/cmmc-scout/internal/repository"
	"github.com/scoutsec/cmmc-scout/pkg/catalog"
	"github.com/scoutsec/cmmc-scout/pkg/events"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
	"github.com/scoutsec/cmmc-scout/pkg/models"
	"github.com/scoutsec/cmmc-scout/pkg/report"
	"github.com/scoutsec/cmmc-scout/pkg/session"
)

// Classifier is the LLM collaborator. It never fails; degraded results
// carry low confidence instead.
type Classifier interface {
	Classify(ctx context.Context, ctl models.Control, userResponse string) models.ClassificationResult
	GenerateQuestion(ctx context.Context, ctl models.Control) string
}

var _ Classifier = (*classifier.Classifier)(nil)

// Persistence is the subset of repository operations the service uses.
type Persistence interface {
	CreateAssessment(ctx context.Context, id uuid.UUID, userID, domain string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error
	SaveScore(ctx context.Context, id uuid.UUID, scores models.ScoringResult) error
	InsertResponse(ctx context.Context, assessmentID uuid.UUID, resp models.ClassifiedResponse) error
}

var _ Persistence = (*repository.Repository)(nil)

// AssessmentService coordinates the assessment lifecycle.
type AssessmentService struct {
	catalog    *catalog.Catalog
	registry   *session.Registry
	classifier Classifier
	sink       events.Sink
	repo       Persistence // nil means persistence disabled
	log        *logger.Logger
}

// New creates the service. repo may be nil to disable persistence (the
// CLI runs without a database).
func New(cat *catalog.Catalog, cls Classifier, sink events.Sink, repo Persistence, log *logger.Logger) *AssessmentService {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &AssessmentService{
		catalog:    cat,
		registry:   session.NewRegistry(),
		classifier: cls,
		sink:       sink,
		repo:       repo,
		log:        log.WithService("assessment"),
	}
}

// StartResult describes a newly started assessment.
type StartResult struct {
	AssessmentID uuid.UUID      `json:"assessment_id"`
	Domain       string         `json:"domain"`
	ControlCount int            `json:"control_count"`
	Control      models.Control `json:"control"`
	Question     string         `json:"question"`
}

// StartAssessment creates a session for the domain and returns the first
// control with its generated assessment question.
func (s *AssessmentService) StartAssessment(ctx context.Context, userID, domain string) (*StartResult, error) {
	id := uuid.New()
	sess := session.New(id, userID, s.catalog, s.sink, s.log)

	first, err := sess.Start(domain)
	if err != nil {
		return nil, err
	}

	if s.repo != nil {
		if err := s.repo.CreateAssessment(ctx, id, userID, domain); err != nil {
			return nil, fmt.Errorf("persist assessment: %w", err)
		}
	}
	s.registry.Add(sess)

	controls, _ := s.catalog.ByDomain(domain)
	return &StartResult{
		AssessmentID: id,
		Domain:       domain,
		ControlCount: len(controls),
		Control:      first,
		Question:     s.classifier.GenerateQuestion(ctx, first),
	}, nil
}

// SubmitResult describes the outcome of one submitted answer.
type SubmitResult struct {
	AssessmentID   uuid.UUID                   `json:"assessment_id"`
	Classification models.ClassificationResult `json:"classification"`
	Done           bool                        `json:"done"`
	NextControl    *models.Control             `json:"next_control,omitempty"`
	NextQuestion   string                      `json:"next_question,omitempty"`
	Progress       models.Progress             `json:"progress"`
}

// SubmitResponse classifies a user's answer for the session's current
// control, records it, and advances the session.
func (s *AssessmentService) SubmitResponse(ctx context.Context, assessmentID uuid.UUID, userResponse string, evidenceProvided bool) (*SubmitResult, error) {
	sess, err := s.registry.Get(assessmentID)
	if err != nil {
		return nil, err
	}

	ctl, ok := sess.CurrentControl()
	if !ok {
		// Session is paused, completed, or not started; let Submit
		// produce the precise state error.
		st := sess.State()
		return nil, &session.InvalidStateError{Op: "submit response", Status: st.Status}
	}

	// Classification happens outside the session lock; the LLM call can
	// take many seconds.
	result := s.classifier.Classify(ctx, ctl, userResponse)

	resp := models.ClassifiedResponse{
		ControlID:        ctl.ControlID,
		ControlTitle:     ctl.Title,
		UserResponse:     userResponse,
		Classification:   result.Classification,
		Explanation:      result.Explanation,
		RemediationNotes: result.Remediation,
		EvidenceProvided: evidenceProvided,
		CreatedAt:        time.Now().UTC(),
	}

	submitted, err := sess.Submit(resp)
	if err != nil {
		return nil, err
	}

	if s.repo != nil {
		if err := s.repo.InsertResponse(ctx, assessmentID, resp); err != nil {
			s.log.Warn("failed to persist control response",
				"assessment_id", assessmentID, "control_id", ctl.ControlID, "error", err)
		}
	}

	out := &SubmitResult{
		AssessmentID:   assessmentID,
		Classification: result,
		Done:           submitted.Done,
		Progress:       submitted.Progress,
	}

	if submitted.Done {
		if s.repo != nil {
			if err := s.repo.UpdateStatus(ctx, assessmentID, models.SessionStatusCompleted); err != nil {
				s.log.Warn("failed to persist completion",
					"assessment_id", assessmentID, "error", err)
			}
		}
		return out, nil
	}

	next := submitted.Next
	out.NextControl = &next
	out.NextQuestion = s.classifier.GenerateQuestion(ctx, next)
	return out, nil
}

// GetStatus returns a snapshot of the session state and progress.
func (s *AssessmentService) GetStatus(assessmentID uuid.UUID) (models.SessionState, models.Progress, error) {
	sess, err := s.registry.Get(assessmentID)
	if err != nil {
		return models.SessionState{}, models.Progress{}, err
	}
	return sess.State(), sess.Progress(), nil
}

// Pause suspends an in-progress assessment.
func (s *AssessmentService) Pause(ctx context.Context, assessmentID uuid.UUID) error {
	sess, err := s.registry.Get(assessmentID)
	if err != nil {
		return err
	}
	if err := sess.Pause(); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.UpdateStatus(ctx, assessmentID, models.SessionStatusPaused); err != nil {
			s.log.Warn("failed to persist pause", "assessment_id", assessmentID, "error", err)
		}
	}
	return nil
}

// Resume continues a paused assessment.
func (s *AssessmentService) Resume(ctx context.Context, assessmentID uuid.UUID) error {
	sess, err := s.registry.Get(assessmentID)
	if err != nil {
		return err
	}
	if err := sess.Resume(); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.UpdateStatus(ctx, assessmentID, models.SessionStatusInProgress); err != nil {
			s.log.Warn("failed to persist resume", "assessment_id", assessmentID, "error", err)
		}
	}
	return nil
}

// GetReport builds the gap report for a completed assessment and emits the
// report.generated event.
func (s *AssessmentService) GetReport(ctx context.Context, assessmentID uuid.UUID, format string) (models.AssessmentReport, error) {
	sess, err := s.registry.Get(assessmentID)
	if err != nil {
		return models.AssessmentReport{}, err
	}

	rep, err := report.Build(sess.State())
	if err != nil {
		return models.AssessmentReport{}, err
	}

	if s.repo != nil {
		if err := s.repo.SaveScore(ctx, assessmentID, rep.Scoring); err != nil {
			s.log.Warn("failed to persist score", "assessment_id", assessmentID, "error", err)
		}
	}

	if format == "" {
		format = "json"
	}
	s.sink.Emit(session.EventTopic, events.ReportGeneratedEvent{
		BaseEvent:         events.NewBase(events.TypeReportGenerated, sess.UserID(), assessmentID),
		Domain:            rep.Domain,
		TotalControls:     rep.Scoring.TotalControls,
		CompliantCount:    rep.Scoring.CompliantCount,
		PartialCount:      rep.Scoring.PartialCount,
		NonCompliantCount: rep.Scoring.NonCompliantCount,
		ComplianceScore:   rep.Scoring.ComplianceScore,
		GapCount:          len(rep.Gaps),
		ReportFormat:      format,
	}, assessmentID.String())

	s.log.Info("report generated",
		"assessment_id", assessmentID,
		"domain", rep.Domain,
		"score", rep.Scoring.ComplianceScore,
		"gaps", len(rep.Gaps),
	)
	return rep, nil
}

// ListDomains returns the assessable domains with control counts.
func (s *AssessmentService) ListDomains() map[string]int {
	return s.catalog.CountByDomain()
}

// Domains returns the sorted list of domain names.
func (s *AssessmentService) Domains() []string {
	return s.catalog.Domains()
}
