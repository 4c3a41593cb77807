// Package models defines the shared domain types for CMMC assessments.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Classification is the compliance classification of a control response.
type Classification string

const (
	ClassificationCompliant    Classification = "compliant"
	ClassificationPartial      Classification = "partial"
	ClassificationNonCompliant Classification = "non_compliant"
)

// Valid reports whether the classification is one of the known values.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationCompliant, ClassificationPartial, ClassificationNonCompliant:
		return true
	}
	return false
}

// TrafficLight is the overall compliance status color.
type TrafficLight string

const (
	TrafficLightGreen  TrafficLight = "green"
	TrafficLightYellow TrafficLight = "yellow"
	TrafficLightRed    TrafficLight = "red"
)

// Severity represents gap severity levels.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// SessionStatus represents the lifecycle state of an assessment session.
type SessionStatus string

const (
	SessionStatusInitialized SessionStatus = "initialized"
	SessionStatusInProgress  SessionStatus = "in_progress"
	SessionStatusPaused      SessionStatus = "paused"
	SessionStatusCompleted   SessionStatus = "completed"
)

// Control is a single CMMC Level 2 control. Controls are loaded once at
// startup and never mutated.
type Control struct {
	ControlID           string `json:"control_id"` // e.g. "AC.L2-3.1.1"
	Domain              string `json:"domain"`     // e.g. "Access Control"
	Title               string `json:"title"`
	Requirement         string `json:"requirement"`
	AssessmentObjective string `json:"assessment_objective"`
	Discussion          string `json:"discussion"`
	NISTReference       string `json:"nist_reference"`
}

// ClassificationResult is the shape returned by the classifier collaborator.
type ClassificationResult struct {
	Classification Classification `json:"classification"`
	Explanation    string         `json:"explanation"`
	Remediation    string         `json:"remediation,omitempty"`
	Confidence     float64        `json:"confidence"`
}

// ClassifiedResponse records the classified answer for one control. Created
// exactly once per control per session and never updated in place.
type ClassifiedResponse struct {
	ControlID        string         `json:"control_id"`
	ControlTitle     string         `json:"control_title"`
	UserResponse     string         `json:"user_response"`
	Classification   Classification `json:"classification"`
	Explanation      string         `json:"explanation,omitempty"`
	RemediationNotes string         `json:"remediation_notes,omitempty"`
	EvidenceProvided bool           `json:"evidence_provided"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Progress reports how far through a domain's controls a session is.
type Progress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// SessionState is the full state of one assessment session. It is owned
// exclusively by a single session instance; readers always receive copies.
type SessionState struct {
	UserID       string               `json:"user_id"`
	AssessmentID uuid.UUID            `json:"assessment_id"`
	Domain       string               `json:"domain"`
	Status       SessionStatus        `json:"status"`
	CurrentIndex int                  `json:"current_index"`
	Responses    []ClassifiedResponse `json:"responses"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

// ScoringResult is the derived scoring summary for a set of responses.
// It is recomputed on demand and always reproducible from the responses.
type ScoringResult struct {
	TotalControls        int          `json:"total_controls"`
	CompliantCount       int          `json:"compliant_count"`
	PartialCount         int          `json:"partial_count"`
	NonCompliantCount    int          `json:"non_compliant_count"`
	ComplianceScore      float64      `json:"compliance_score"`      // 0.0-1.0, 4 decimals
	CompliancePercentage float64      `json:"compliance_percentage"` // 0.0-100.0, 2 decimals
	TrafficLight         TrafficLight `json:"traffic_light"`
}

// GapItem is a single compliance gap derived from a partial or
// non-compliant response.
type GapItem struct {
	ControlID        string         `json:"control_id"`
	ControlTitle     string         `json:"control_title"`
	Severity         Severity       `json:"severity"`
	CurrentStatus    Classification `json:"current_status"`
	GapDescription   string         `json:"gap_description"`
	RemediationSteps []string       `json:"remediation_steps"`
	EstimatedEffort  string         `json:"estimated_effort"`
	EstimatedCost    string         `json:"estimated_cost"`
	Priority         int            `json:"priority"` // 1-10
}

// RemediationAction is one entry in a remediation plan bucket.
type RemediationAction struct {
	ControlID    string   `json:"control_id"`
	ControlTitle string   `json:"control_title"`
	Priority     int      `json:"priority"`
	Steps        []string `json:"steps"`
	Effort       string   `json:"effort"`
	Cost         string   `json:"cost"`
}

// RemediationSummary aggregates plan-level estimates.
type RemediationSummary struct {
	TotalGaps               int     `json:"total_gaps"`
	HighPriority            int     `json:"high_priority"`
	MediumPriority          int     `json:"medium_priority"`
	LowPriority             int     `json:"low_priority"`
	EstimatedTotalCost      string  `json:"estimated_total_cost"`
	EstimatedTimelineWeeks  int     `json:"estimated_timeline_weeks"`
	EstimatedTimelineMonths float64 `json:"estimated_timeline_months"`
}

// RemediationPlan groups gaps into action buckets by priority.
type RemediationPlan struct {
	ImmediateActions []RemediationAction `json:"immediate_actions"`
	ShortTerm        []RemediationAction `json:"short_term"`
	LongTerm         []RemediationAction `json:"long_term"`
	Summary          RemediationSummary  `json:"summary"`
}

// ControlResponseSummary is the per-control section of a report.
type ControlResponseSummary struct {
	ControlID      string         `json:"control_id"`
	ControlTitle   string         `json:"control_title"`
	Classification Classification `json:"classification"`
	UserResponse   string         `json:"user_response"`
	Explanation    string         `json:"explanation"`
	Remediation    string         `json:"remediation,omitempty"`
}

// AssessmentReport is the complete gap report for a completed assessment.
type AssessmentReport struct {
	AssessmentID     string                   `json:"assessment_id"`
	Domain           string                   `json:"domain"`
	GeneratedAt      time.Time                `json:"generated_at"`
	Scoring          ScoringResult            `json:"scoring"`
	ExecutiveSummary string                   `json:"executive_summary"`
	ControlResponses []ControlResponseSummary `json:"control_responses"`
	Gaps             []GapItem                `json:"gaps"`
	Recommendations  []string                 `json:"recommendations"`
}
