// Package jobs provides queueing and persistence for planning jobs.
package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	mutaplannats "github.com/mutaplan/mutaplan/internal/nats"
)

// Pipeline queues planning jobs, persisting them and notifying workers
// over NATS.
type Pipeline struct {
	repo *Repository
	nats *mutaplannats.Client
}

// NewPipeline creates a new pipeline manager.
func NewPipeline(repo *Repository, nats *mutaplannats.Client) *Pipeline {
	return &Pipeline{
		repo: repo,
		nats: nats,
	}
}

// SubmitPlanningJob persists a new planning job and publishes it to the
// planning queue.
func (p *Pipeline) SubmitPlanningJob(ctx context.Context, payload PlanningPayload) (*Job, error) {
	job, err := NewJob(JobTypePlanning, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := p.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	if err := p.publishJob(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to publish job")
		// Job is in the DB; a worker can still poll for it.
	}

	log.Info().
		Str("job_id", job.ID.String()).
		Str("project_path", payload.ProjectPath).
		Msg("submitted planning job")

	return job, nil
}

// publishJob publishes a job notification to NATS.
func (p *Pipeline) publishJob(ctx context.Context, job *Job) error {
	if p.nats == nil {
		return nil // NATS not configured, workers will poll the DB.
	}

	msg := &JobMessage{
		JobID:    job.ID,
		Type:     job.Type,
		Priority: job.Priority,
	}

	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	_, err = p.nats.Publish(ctx, mutaplannats.SubjectJobPlanning, data)
	return err
}

// GetJobStatus returns the current status of a job.
func (p *Pipeline) GetJobStatus(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	job, err := p.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job not found")
	}
	return job, nil
}

// RetryFailedJobs requeues all jobs in retrying status.
func (p *Pipeline) RetryFailedJobs(ctx context.Context) (int, error) {
	jobs, err := p.repo.ListByStatus(ctx, StatusRetrying, 100)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, job := range jobs {
		if err := p.repo.Retry(ctx, job.ID); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to retry job")
			continue
		}

		job.Status = StatusPending
		if err := p.publishJob(ctx, job); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to republish job")
		}

		count++
	}

	return count, nil
}
