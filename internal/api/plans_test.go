package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mutaplan/mutaplan/internal/jobs"
)

func TestCreatePlan_NoPipeline(t *testing.T) {
	server := NewServer(nil, nil, nil)

	body := bytes.NewBufferString(`{"project_path": "/repo"}`)
	req := httptest.NewRequest("POST", "/api/v1/plans/", body)
	rr := httptest.NewRecorder()

	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("createPlan returned status %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestCreatePlan_InvalidJSON(t *testing.T) {
	server := NewServer(jobs.NewPipeline(nil, nil), nil, nil)

	body := bytes.NewBufferString(`{invalid json}`)
	req := httptest.NewRequest("POST", "/api/v1/plans/", body)
	rr := httptest.NewRecorder()

	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("createPlan returned status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreatePlan_MissingProjectPath(t *testing.T) {
	server := NewServer(jobs.NewPipeline(nil, nil), nil, nil)

	body := bytes.NewBufferString(`{}`)
	req := httptest.NewRequest("POST", "/api/v1/plans/", body)
	rr := httptest.NewRecorder()

	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("createPlan returned status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetPlan_NoPipeline(t *testing.T) {
	server := NewServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/plans/"+uuid.New().String(), nil)
	rr := httptest.NewRecorder()

	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("getPlan returned status %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestGetPlan_InvalidID(t *testing.T) {
	server := NewServer(jobs.NewPipeline(nil, nil), nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/plans/not-a-uuid", nil)
	rr := httptest.NewRecorder()

	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("getPlan returned status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestPlanToResponse_NilJob(t *testing.T) {
	if resp := planToResponse(nil); resp != nil {
		t.Error("expected nil response for nil job")
	}
}

func TestPlanToResponse_Fields(t *testing.T) {
	now := time.Now()
	job := &jobs.Job{
		ID:         uuid.New(),
		Status:     jobs.StatusCompleted,
		Priority:   3,
		RetryCount: 1,
		MaxRetries: 3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	resp := planToResponse(job)

	if resp.ID != job.ID {
		t.Error("ID mismatch")
	}
	if resp.Status != "completed" {
		t.Errorf("Status = %s, want completed", resp.Status)
	}
	if resp.Priority != 3 {
		t.Errorf("Priority = %d, want 3", resp.Priority)
	}
}
