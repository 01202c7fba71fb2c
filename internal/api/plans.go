package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mutaplan/mutaplan/internal/jobs"
)

// PlanResponse is the API representation of a planning job.
type PlanResponse struct {
	ID           uuid.UUID       `json:"id"`
	Status       string          `json:"status"`
	Priority     int             `json:"priority"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

func planToResponse(j *jobs.Job) *PlanResponse {
	if j == nil {
		return nil
	}

	resp := &PlanResponse{
		ID:           j.ID,
		Status:       string(j.Status),
		Priority:     j.Priority,
		ErrorMessage: j.ErrorMessage,
		RetryCount:   j.RetryCount,
		MaxRetries:   j.MaxRetries,
		CreatedAt:    j.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    j.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if j.Result != nil {
		resp.Result = *j.Result
	}
	return resp
}

// createPlan submits a new planning job.
func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "planning pipeline not available")
		return
	}

	var payload jobs.PlanningPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.ProjectPath == "" {
		respondError(w, http.StatusBadRequest, "project_path is required")
		return
	}

	job, err := s.pipeline.SubmitPlanningJob(r.Context(), payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to submit planning job")
		respondError(w, http.StatusInternalServerError, "failed to submit planning job")
		return
	}

	respondJSON(w, http.StatusCreated, planToResponse(job))
}

// getPlan returns the current status and, once complete, the result of
// a planning job.
func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "planning pipeline not available")
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	job, err := s.pipeline.GetJobStatus(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, planToResponse(job))
}
