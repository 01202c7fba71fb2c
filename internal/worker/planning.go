package worker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mutaplan/mutaplan/internal/jobs"
	"github.com/mutaplan/mutaplan/internal/mutation"
	"github.com/mutaplan/mutaplan/internal/project"
	"github.com/mutaplan/mutaplan/internal/sandbox"
	"github.com/mutaplan/mutaplan/pkg/plan"
)

// PlanningWorker claims queued planning jobs, resolves their project and
// sandbox collaborators, runs the planning facade, and persists the
// resulting plan summary back onto the job row. It never calls
// OnMutationTestingPlanReady itself; that stays the facade's exclusive
// responsibility via the injected plan.Reporter.
type PlanningWorker struct {
	*BaseWorker
	reporter plan.Reporter
}

// NewPlanningWorker builds a PlanningWorker on top of base, wiring its
// own handler.
func NewPlanningWorker(base *BaseWorker, reporter plan.Reporter) *PlanningWorker {
	w := &PlanningWorker{BaseWorker: base, reporter: reporter}
	base.handler = w.handleJob
	return w
}

func (w *PlanningWorker) Name() string { return "planning" }

func (w *PlanningWorker) handleJob(ctx context.Context, job *jobs.Job) error {
	var payload jobs.PlanningPayload
	if err := job.GetPayload(&payload); err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	log.Info().
		Str("project_path", payload.ProjectPath).
		Int("mutants", len(payload.Mutants)).
		Msg("planning mutation test run")

	proj, err := project.Open(payload.ProjectPath)
	if err != nil {
		return fmt.Errorf("failed to open project: %w", err)
	}

	records, err := mutation.Plan(ctx, mutation.Input{
		Mutants: payload.Mutants,
		DryRun:  payload.DryRun,
		Options: payload.Options,
	}, proj, sandbox.NewHashingSandbox(), w.reporter)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	if err := w.repo.Complete(ctx, job.ID, jobs.PlanningResult{Plans: records}); err != nil {
		return fmt.Errorf("failed to store plan result: %w", err)
	}

	return nil
}
