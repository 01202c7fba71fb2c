// Package worker provides base worker functionality with NATS integration
// for planning jobs.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mutaplan/mutaplan/internal/jobs"
	mutaplannats "github.com/mutaplan/mutaplan/internal/nats"
)

// JobHandler processes a single claimed job.
type JobHandler func(ctx context.Context, job *jobs.Job) error

// BaseWorker provides the claim/process/ack loop shared by planning
// workers, polling NATS when available and falling back to database
// polling otherwise.
type BaseWorker struct {
	workerID   string
	repo       *jobs.Repository
	nats       *mutaplannats.Client
	pipeline   *jobs.Pipeline
	consumer   jetstream.Consumer
	handler    JobHandler
	pollPeriod time.Duration
	lockTime   time.Duration
}

// BaseWorkerConfig configures a base worker.
type BaseWorkerConfig struct {
	WorkerID   string
	Repository *jobs.Repository
	NATS       *mutaplannats.Client
	Pipeline   *jobs.Pipeline
	Handler    JobHandler
}

// NewBaseWorker creates a new base worker.
func NewBaseWorker(cfg BaseWorkerConfig) *BaseWorker {
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = fmt.Sprintf("planning-%s", uuid.New().String()[:8])
	}

	return &BaseWorker{
		workerID:   workerID,
		repo:       cfg.Repository,
		nats:       cfg.NATS,
		pipeline:   cfg.Pipeline,
		handler:    cfg.Handler,
		pollPeriod: 5 * time.Second,
		lockTime:   5 * time.Minute,
	}
}

// Run starts the worker processing loop, returning when ctx is cancelled.
func (w *BaseWorker) Run(ctx context.Context) error {
	logger := log.With().Str("worker_id", w.workerID).Logger()

	if w.nats != nil && w.nats.IsConnected() {
		consumer, err := w.nats.JetStream().Consumer(ctx, mutaplannats.StreamJobs, mutaplannats.ConsumerPlanning)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to get consumer, falling back to polling")
		} else {
			w.consumer = consumer
			logger.Info().Msg("connected to NATS consumer")
		}
	}

	logger.Info().Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker stopping")
			return nil
		default:
			if err := w.processNext(ctx); err != nil {
				logger.Error().Err(err).Msg("error processing job")
			}
		}
	}
}

func (w *BaseWorker) processNext(ctx context.Context) error {
	if w.consumer != nil {
		return w.processFromNATS(ctx)
	}
	return w.processFromDB(ctx)
}

func (w *BaseWorker) processFromNATS(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, w.pollPeriod)
	defer cancel()

	msgs, err := w.consumer.Fetch(1, jetstream.FetchMaxWait(w.pollPeriod))
	if err != nil {
		if err == context.DeadlineExceeded || fetchCtx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to fetch from NATS: %w", err)
	}

	for msg := range msgs.Messages() {
		jobMsg, err := jobs.DecodeJobMessage(msg.Data())
		if err != nil {
			log.Error().Err(err).Msg("failed to decode job message")
			_ = msg.Nak()
			continue
		}

		job, err := w.repo.Claim(ctx, jobMsg.JobID, w.workerID, w.lockTime)
		if err != nil {
			log.Error().Err(err).Str("job_id", jobMsg.JobID.String()).Msg("failed to claim job")
			_ = msg.Nak()
			continue
		}

		if job == nil {
			_ = msg.Ack()
			continue
		}

		if err := w.processJob(ctx, job); err != nil {
			log.Error().Err(err).Str("job_id", job.ID.String()).Msg("job processing failed")
		}

		_ = msg.Ack()
	}

	if msgs.Error() != nil && msgs.Error() != context.DeadlineExceeded {
		return msgs.Error()
	}

	return nil
}

func (w *BaseWorker) processFromDB(ctx context.Context) error {
	pending, err := w.repo.ListPending(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}

	if len(pending) == 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.pollPeriod):
			return nil
		}
	}

	for _, candidate := range pending {
		job, err := w.repo.Claim(ctx, candidate.ID, w.workerID, w.lockTime)
		if err != nil {
			log.Warn().Err(err).Str("job_id", candidate.ID.String()).Msg("failed to claim job")
			continue
		}
		if job == nil {
			continue
		}

		if err := w.processJob(ctx, job); err != nil {
			log.Error().Err(err).Str("job_id", job.ID.String()).Msg("job processing failed")
		}
	}

	return nil
}

func (w *BaseWorker) processJob(ctx context.Context, job *jobs.Job) error {
	logger := log.With().
		Str("worker_id", w.workerID).
		Str("job_id", job.ID.String()).
		Logger()

	logger.Info().Msg("processing job")

	jobCtx, cancel := context.WithTimeout(ctx, w.lockTime-30*time.Second)
	defer cancel()

	done := make(chan struct{})
	go w.extendLockPeriodically(ctx, job.ID, done)

	err := w.handler(jobCtx, job)

	close(done)

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		if failErr := w.repo.Fail(ctx, job.ID, err.Error()); failErr != nil {
			logger.Error().Err(failErr).Msg("failed to mark job as failed")
		}
		return err
	}

	logger.Info().Msg("job completed")
	return nil
}

func (w *BaseWorker) extendLockPeriodically(ctx context.Context, jobID uuid.UUID, done chan struct{}) {
	ticker := time.NewTicker(w.lockTime / 2)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.repo.ExtendLock(ctx, jobID, w.workerID, w.lockTime); err != nil {
				log.Warn().Err(err).Str("job_id", jobID.String()).Msg("failed to extend lock")
			}
		}
	}
}

// WorkerID returns the worker's unique ID.
func (w *BaseWorker) WorkerID() string { return w.workerID }

// SetPollPeriod sets the polling interval.
func (w *BaseWorker) SetPollPeriod(d time.Duration) { w.pollPeriod = d }

// SetLockTime sets the job lock duration.
func (w *BaseWorker) SetLockTime(d time.Duration) { w.lockTime = d }
