package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Stream names
const (
	StreamJobs = "MUTAPLAN_JOBS"
)

// Subject patterns
const (
	// SubjectJobPlanning carries planning job requests.
	SubjectJobPlanning = "jobs.planning"

	// SubjectPlanReady carries the plan-ready event a successful
	// planning call notifies a Reporter with.
	SubjectPlanReady = "planning.plan-ready"
)

// ConsumerPlanning is the durable consumer name planning workers claim
// jobs.planning messages under.
const ConsumerPlanning = "planning-worker"

// Retention and delivery tuning for a single-consumer, moderate-volume
// queue: no need for the 100k/500MB/7-day defaults a shared multi-tenant
// stream would carry, and a lower MaxAckPending keeps one slow planning
// run from starving the rest of the queue behind it.
const (
	streamMaxMsgs  = 20000
	streamMaxBytes = 1024 * 1024 * 100 // 100MB
	streamMaxAge   = 72 * time.Hour

	// consumerAckWait bounds how long a worker can hold a job before
	// NATS redelivers it; a planning run walking a large mutant catalog
	// can run well past the 5-minute default of a typical job queue.
	consumerAckWait       = 15 * time.Minute
	consumerMaxDeliver    = 3
	consumerMaxAckPending = 20
)

// SetupStreams creates the planning stream and its consumer.
func (c *Client) SetupStreams(ctx context.Context) error {
	js := c.JetStream()
	if js == nil {
		return fmt.Errorf("not connected to NATS")
	}

	streamCfg := jetstream.StreamConfig{
		Name:        StreamJobs,
		Subjects:    []string{SubjectJobPlanning, SubjectPlanReady},
		MaxMsgs:     streamMaxMsgs,
		MaxBytes:    streamMaxBytes,
		MaxAge:      streamMaxAge,
		Replicas:    1,
		Description: "mutaplan planning job stream",
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy, // each message delivered once
		Discard:     jetstream.DiscardOld,
	}

	if _, err := js.CreateOrUpdateStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", StreamJobs, err)
	}
	log.Debug().Str("stream", StreamJobs).Msg("stream ready")

	consumerCfg := jetstream.ConsumerConfig{
		Name:          ConsumerPlanning,
		Durable:       ConsumerPlanning,
		FilterSubject: SubjectJobPlanning,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       consumerAckWait,
		MaxDeliver:    consumerMaxDeliver,
		MaxAckPending: consumerMaxAckPending,
	}

	if _, err := js.CreateOrUpdateConsumer(ctx, StreamJobs, consumerCfg); err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", ConsumerPlanning, err)
	}
	log.Debug().
		Str("stream", StreamJobs).
		Str("consumer", ConsumerPlanning).
		Msg("consumer ready")

	return nil
}
