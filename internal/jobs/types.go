// Package jobs defines the asynchronous planning job queued through
// internal/nats and persisted through internal/db.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mutaplan/mutaplan/pkg/plan"
)

// JobType represents the type of async job. There is currently exactly
// one: a planning run.
type JobType string

const (
	JobTypePlanning JobType = "planning"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusRetrying  JobStatus = "retrying"
	StatusCancelled JobStatus = "cancelled"
)

// Job is a queued planning run.
type Job struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Type         JobType          `json:"type" db:"type"`
	Status       JobStatus        `json:"status" db:"status"`
	Priority     int              `json:"priority" db:"priority"`
	Payload      json.RawMessage  `json:"payload" db:"payload"`
	Result       *json.RawMessage `json:"result,omitempty" db:"result"`
	ErrorMessage *string          `json:"error_message,omitempty" db:"error_message"`
	RetryCount   int              `json:"retry_count" db:"retry_count"`
	MaxRetries   int              `json:"max_retries" db:"max_retries"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	LockedUntil  *time.Time       `json:"locked_until,omitempty" db:"locked_until"`
	WorkerID     *string          `json:"worker_id,omitempty" db:"worker_id"`
}

// PlanningPayload is the payload for a planning job: everything the
// facade's Plan call needs beyond its injected collaborators.
type PlanningPayload struct {
	ProjectPath string          `json:"project_path"`
	Mutants     []plan.Mutant   `json:"mutants"`
	DryRun      plan.DryRunResult `json:"dryRun"`
	Options     plan.Options    `json:"options"`
}

// PlanningResult is the result recorded for a completed planning job.
type PlanningResult struct {
	Plans []plan.PlanRecord `json:"plans"`
}

// NewJob creates a new job with defaults.
func NewJob(jobType JobType, payload interface{}) (*Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		Status:     StatusPending,
		Priority:   0,
		Payload:    payloadBytes,
		RetryCount: 0,
		MaxRetries: 3,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}, nil
}

// SetPayload marshals and sets the payload.
func (j *Job) SetPayload(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	j.Payload = data
	return nil
}

// GetPayload unmarshals the payload into the provided struct.
func (j *Job) GetPayload(v interface{}) error {
	return json.Unmarshal(j.Payload, v)
}

// SetResult marshals and sets the result.
func (j *Job) SetResult(result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	raw := json.RawMessage(data)
	j.Result = &raw
	return nil
}

// GetResult unmarshals the result into the provided struct.
func (j *Job) GetResult(v interface{}) error {
	if j.Result == nil {
		return nil
	}
	return json.Unmarshal(*j.Result, v)
}

// CanRetry returns true if the job can be retried.
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// JobMessage is the message sent via NATS to announce a queued job.
type JobMessage struct {
	JobID    uuid.UUID `json:"job_id"`
	Type     JobType   `json:"type"`
	Priority int       `json:"priority"`
}

// Encode serializes the job message to JSON.
func (m *JobMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeJobMessage deserializes a job message from JSON.
func DecodeJobMessage(data []byte) (*JobMessage, error) {
	var m JobMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
