// Package handlers provides HTTP request handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scoutsec/cmmc-scout/internal/service"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
	"github.com/scoutsec/cmmc-scout/pkg/models"
	"github.com/scoutsec/cmmc-scout/pkg/report"
	"github.com/scoutsec/cmmc-scout/pkg/session"
)

// AssessmentHandler handles assessment lifecycle requests.
type AssessmentHandler struct {
	svc *service.AssessmentService
	log *logger.Logger
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(svc *service.AssessmentService, log *logger.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		svc: svc,
		log: log.WithComponent("assessment-handler"),
	}
}

// StartRequest is the request body for starting an assessment.
type StartRequest struct {
	Domain string `json:"domain"`
}

// Start begins a new assessment for a domain.
func (h *AssessmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}

	userID := logger.GetUserID(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	result, err := h.svc.StartAssessment(ctx, userID, req.Domain)
	if err != nil {
		if errors.Is(err, session.ErrInvalidDomain) {
			writeError(w, http.StatusBadRequest, "unknown domain: "+req.Domain)
			return
		}
		h.log.Error("failed to start assessment", "error", err, "domain", req.Domain)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// SubmitRequest is the request body for submitting a control response.
type SubmitRequest struct {
	Response         string `json:"response"`
	EvidenceProvided bool   `json:"evidence_provided"`
}

// Submit records and classifies an answer for the current control.
func (h *AssessmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := assessmentID(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Response == "" {
		writeError(w, http.StatusBadRequest, "response is required")
		return
	}

	result, err := h.svc.SubmitResponse(ctx, id, req.Response, req.EvidenceProvided)
	if err != nil {
		h.writeServiceError(w, err, "failed to submit response")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// StatusResponse describes the current state of an assessment.
type StatusResponse struct {
	AssessmentID uuid.UUID            `json:"assessment_id"`
	Domain       string               `json:"domain"`
	Status       models.SessionStatus `json:"status"`
	Progress     models.Progress      `json:"progress"`
}

// Get returns the current status and progress of an assessment.
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := assessmentID(w, r)
	if !ok {
		return
	}

	state, progress, err := h.svc.GetStatus(id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get assessment")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		AssessmentID: state.AssessmentID,
		Domain:       state.Domain,
		Status:       state.Status,
		Progress:     progress,
	})
}

// Report generates the gap report for a completed assessment. The
// format query parameter selects JSON (default) or markdown output.
func (h *AssessmentHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := assessmentID(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "markdown" {
		writeError(w, http.StatusBadRequest, "unsupported format: "+format)
		return
	}

	rep, err := h.svc.GetReport(ctx, id, format)
	if err != nil {
		h.writeServiceError(w, err, "failed to generate report")
		return
	}

	if format == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.Markdown(rep)))
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// Pause suspends an in-progress assessment.
func (h *AssessmentHandler) Pause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := assessmentID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Pause(ctx, id); err != nil {
		h.writeServiceError(w, err, "failed to pause assessment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.SessionStatusPaused)})
}

// Resume continues a paused assessment.
func (h *AssessmentHandler) Resume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := assessmentID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Resume(ctx, id); err != nil {
		h.writeServiceError(w, err, "failed to resume assessment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.SessionStatusInProgress)})
}

// DomainsResponse lists assessable domains with their control counts.
type DomainsResponse struct {
	Domains map[string]int `json:"domains"`
}

// Domains returns the assessable CMMC domains.
func (h *AssessmentHandler) Domains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DomainsResponse{Domains: h.svc.ListDomains()})
}

// assessmentID parses the id URL parameter, writing a 400 on failure.
func assessmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assessment ID")
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service errors to HTTP status codes.
func (h *AssessmentHandler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	var stateErr *session.InvalidStateError
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "assessment not found")
	case errors.Is(err, session.ErrAlreadyStarted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, report.ErrNotCompleted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &stateErr):
		writeError(w, http.StatusConflict, stateErr.Error())
	default:
		h.log.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
