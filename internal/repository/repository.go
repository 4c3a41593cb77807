// Package repository persists assessments and control responses to
// PostgreSQL. Persistence is optional: the service skips it entirely when
// constructed without a repository, which is how the CLI runs.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scoutsec/cmmc-scout/pkg/database"
	"github.com/scoutsec/cmmc-scout/pkg/models"
)

// ErrAssessmentNotFound means no assessment row exists for the ID.
var ErrAssessmentNotFound = errors.New("assessment not found")

// AssessmentRecord is the stored form of an assessment.
type AssessmentRecord struct {
	ID          uuid.UUID
	UserID      string
	Domain      string
	Status      models.SessionStatus
	Score       *float64
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Repository provides access to the assessments and control_responses
// tables.
type Repository struct {
	db *database.DB
}

// New creates a repository over the given connection pool.
func New(db *database.DB) *Repository {
	return &Repository{db: db}
}

// CreateAssessment inserts a new assessment row.
func (r *Repository) CreateAssessment(ctx context.Context, id uuid.UUID, userID, domain string) error {
	const q = `
		INSERT INTO assessments (id, user_id, domain, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if err := r.db.Exec(ctx, q, id, userID, domain, models.SessionStatusInProgress, time.Now().UTC()); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// UpdateStatus sets the assessment status, and the completion timestamp
// when the status is completed.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error {
	var err error
	if status == models.SessionStatusCompleted {
		const q = `UPDATE assessments SET status = $2, completed_at = $3 WHERE id = $1`
		err = r.db.Exec(ctx, q, id, status, time.Now().UTC())
	} else {
		const q = `UPDATE assessments SET status = $2 WHERE id = $1`
		err = r.db.Exec(ctx, q, id, status)
	}
	if err != nil {
		return fmt.Errorf("update assessment status: %w", err)
	}
	return nil
}

// SaveScore stores the final compliance score and counts.
func (r *Repository) SaveScore(ctx context.Context, id uuid.UUID, scores models.ScoringResult) error {
	const q = `
		UPDATE assessments
		SET score = $2, total_controls = $3, compliant_count = $4,
		    partial_count = $5, non_compliant_count = $6
		WHERE id = $1`
	err := r.db.Exec(ctx, q, id,
		scores.ComplianceScore, scores.TotalControls, scores.CompliantCount,
		scores.PartialCount, scores.NonCompliantCount)
	if err != nil {
		return fmt.Errorf("save assessment score: %w", err)
	}
	return nil
}

// GetAssessment loads one assessment row.
func (r *Repository) GetAssessment(ctx context.Context, id uuid.UUID) (*AssessmentRecord, error) {
	const q = `
		SELECT id, user_id, domain, status, score, created_at, completed_at
		FROM assessments WHERE id = $1`

	var rec AssessmentRecord
	err := r.db.QueryRow(ctx, q, id).Scan(
		&rec.ID, &rec.UserID, &rec.Domain, &rec.Status,
		&rec.Score, &rec.CreatedAt, &rec.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return &rec, nil
}

// InsertResponse appends one classified control response.
func (r *Repository) InsertResponse(ctx context.Context, assessmentID uuid.UUID, resp models.ClassifiedResponse) error {
	const q = `
		INSERT INTO control_responses
			(id, assessment_id, control_id, control_title, user_response,
			 classification, agent_notes, evidence_provided, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	err := r.db.Exec(ctx, q,
		uuid.New(), assessmentID, resp.ControlID, resp.ControlTitle,
		resp.UserResponse, resp.Classification, resp.Explanation,
		resp.EvidenceProvided, resp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert control response: %w", err)
	}
	return nil
}

// ListResponses returns the responses for an assessment in insertion order.
func (r *Repository) ListResponses(ctx context.Context, assessmentID uuid.UUID) ([]models.ClassifiedResponse, error) {
	const q = `
		SELECT control_id, control_title, user_response, classification,
		       agent_notes, evidence_provided, created_at
		FROM control_responses
		WHERE assessment_id = $1
		ORDER BY created_at, control_id`

	rows, err := r.db.Query(ctx, q, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list control responses: %w", err)
	}
	defer rows.Close()

	var responses []models.ClassifiedResponse
	for rows.Next() {
		var resp models.ClassifiedResponse
		var notes *string
		if err := rows.Scan(
			&resp.ControlID, &resp.ControlTitle, &resp.UserResponse,
			&resp.Classification, &notes, &resp.EvidenceProvided, &resp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan control response: %w", err)
		}
		if notes != nil {
			resp.Explanation = *notes
		}
		responses = append(responses, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate control responses: %w", err)
	}
	return responses, nil
}
