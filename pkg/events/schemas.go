// Package events defines assessment event schemas and the best-effort
// producer that emits them to Redpanda, with a JSONL file fallback for
// development environments without a broker.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/scoutsec/cmmc-scout/pkg/models"
)

// Event types carried on the assessment topic.
const (
	TypeAssessmentStarted = "assessment.started"
	TypeControlEvaluated  = "control.evaluated"
	TypeGapIdentified     = "gap.identified"
	TypeReportGenerated   = "report.generated"
)

// BaseEvent carries the fields common to every assessment event.
type BaseEvent struct {
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"user_id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
}

// AssessmentStartedEvent is emitted when a new assessment begins.
type AssessmentStartedEvent struct {
	BaseEvent
	Domain       string `json:"domain"`
	ControlCount int    `json:"control_count"`
}

// ControlEvaluatedEvent is emitted after each control response is classified.
type ControlEvaluatedEvent struct {
	BaseEvent
	ControlID        string                `json:"control_id"`
	ControlTitle     string                `json:"control_title"`
	Classification   models.Classification `json:"classification"`
	UserResponse     string                `json:"user_response"`
	AgentNotes       string                `json:"agent_notes,omitempty"`
	EvidenceProvided bool                  `json:"evidence_provided"`
}

// GapIdentifiedEvent is emitted when a response produces a compliance gap.
type GapIdentifiedEvent struct {
	BaseEvent
	ControlID           string          `json:"control_id"`
	ControlTitle        string          `json:"control_title"`
	Severity            models.Severity `json:"severity"`
	Description         string          `json:"description"`
	RemediationPriority int             `json:"remediation_priority"`
	EstimatedEffort     string          `json:"estimated_effort,omitempty"`
}

// ReportGeneratedEvent is emitted when a completed assessment is reported on.
type ReportGeneratedEvent struct {
	BaseEvent
	Domain            string  `json:"domain"`
	TotalControls     int     `json:"total_controls"`
	CompliantCount    int     `json:"compliant_count"`
	PartialCount      int     `json:"partial_count"`
	NonCompliantCount int     `json:"non_compliant_count"`
	ComplianceScore   float64 `json:"compliance_score"`
	GapCount          int     `json:"gap_count"`
	ReportFormat      string  `json:"report_format"`
}

// NewBase builds the common envelope for an event.
func NewBase(eventType, userID string, assessmentID uuid.UUID) BaseEvent {
	return BaseEvent{
		EventType:    eventType,
		Timestamp:    time.Now().UTC(),
		UserID:       userID,
		AssessmentID: assessmentID,
	}
}
