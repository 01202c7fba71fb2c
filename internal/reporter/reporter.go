// Package reporter delivers a finished mutation-testing plan to whatever
// external system actually runs it, mirroring the way internal/jobs
// publishes job-queued notifications over NATS.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	mutaplannats "github.com/mutaplan/mutaplan/internal/nats"
	"github.com/mutaplan/mutaplan/pkg/plan"
)

// PlanReadyEvent is the message published when a planning run completes.
type PlanReadyEvent struct {
	Records []plan.PlanRecord `json:"records"`
}

// NATSReporter publishes a plan-ready event to the planning stream. It
// implements plan.Reporter.
type NATSReporter struct {
	client *mutaplannats.Client
}

// NewNATSReporter constructs a NATSReporter over an existing client.
func NewNATSReporter(client *mutaplannats.Client) *NATSReporter {
	return &NATSReporter{client: client}
}

// OnMutationTestingPlanReady publishes plans to the plan-ready subject.
func (r *NATSReporter) OnMutationTestingPlanReady(ctx context.Context, plans []plan.PlanRecord) error {
	data, err := json.Marshal(PlanReadyEvent{Records: plans})
	if err != nil {
		return fmt.Errorf("failed to encode plan-ready event: %w", err)
	}

	ack, err := r.client.Publish(ctx, mutaplannats.SubjectPlanReady, data)
	if err != nil {
		return fmt.Errorf("failed to publish plan-ready event: %w", err)
	}

	log.Info().
		Str("stream", ack.Stream).
		Uint64("seq", ack.Sequence).
		Int("records", len(plans)).
		Msg("published plan-ready event")

	return nil
}

// NoopReporter discards plans. Useful where a caller wants the facade's
// side effect skipped entirely, e.g. in tests or a one-shot CLI run.
type NoopReporter struct{}

// OnMutationTestingPlanReady does nothing and never fails.
func (NoopReporter) OnMutationTestingPlanReady(ctx context.Context, plans []plan.PlanRecord) error {
	return nil
}

var (
	_ plan.Reporter = (*NATSReporter)(nil)
	_ plan.Reporter = NoopReporter{}
)
