// Package mutation is the public facade over the planning core:
// it orchestrates the incremental differ, the coverage classifier, the
// plan synthesizer, and the static-mutant heuristic, and notifies a
// Reporter once a plan is ready.
package mutation

import (
	"context"
	"errors"
	"fmt"

	"github.com/mutaplan/mutaplan/internal/coverage"
	"github.com/mutaplan/mutaplan/internal/incremental"
	"github.com/mutaplan/mutaplan/internal/planner"
	"github.com/mutaplan/mutaplan/pkg/plan"
)

// ErrInvalidInput is returned, wrapped with detail, when the input
// violates the schema contract (a mutant with no location, for
// instance). Planning never partially completes on a fatal input: no
// plan is returned and the reporter is not notified.
var ErrInvalidInput = errors.New("mutation: invalid planning input")

// Input bundles everything a planning call needs beyond its
// collaborators.
type Input struct {
	Mutants []plan.Mutant
	DryRun  plan.DryRunResult
	Options plan.Options
}

// Plan produces one plan record per input mutant, in order, and
// notifies reporter exactly once with the completed list before
// returning. It is synchronous: no goroutines, and no I/O besides
// project.SourceFor/IncrementalReport and the reporter call.
func Plan(ctx context.Context, input Input, project plan.Project, sandbox plan.Sandbox, reporter plan.Reporter) ([]plan.PlanRecord, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	covering := coverage.CoveringTests(input.DryRun)

	diffed, err := incremental.Diff(input.Mutants, input.DryRun, covering, project)
	if err != nil {
		return nil, fmt.Errorf("mutation: incremental diff failed: %w", err)
	}

	var toClassify []plan.Mutant
	for _, m := range diffed {
		if !m.Status.Terminal() {
			toClassify = append(toClassify, m)
		}
	}

	classifiedList := coverage.Classify(toClassify, input.DryRun, covering, input.Options)
	classified := make(map[string]coverage.Classified, len(classifiedList))
	for _, c := range classifiedList {
		classified[c.Mutant.ID] = c
	}

	records := planner.Synthesize(diffed, classified, input.DryRun, input.Options, sandbox)

	planner.WarnIfStaticDominates(records, classified, len(diffed), input.Options)

	if reporter != nil {
		if err := reporter.OnMutationTestingPlanReady(ctx, records); err != nil {
			return nil, fmt.Errorf("mutation: reporter failed: %w", err)
		}
	}

	return records, nil
}

// Result carries the outcome of an asynchronous Plan call.
type Result struct {
	Records []plan.PlanRecord
	Err     error
}

// PlanAsync runs Plan on a separate goroutine and delivers its outcome
// on the returned channel, for callers that need to interleave planning
// with other work.
func PlanAsync(ctx context.Context, input Input, project plan.Project, sandbox plan.Sandbox, reporter plan.Reporter) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		records, err := Plan(ctx, input, project, sandbox, reporter)
		out <- Result{Records: records, Err: err}
		close(out)
	}()
	return out
}

func validate(input Input) error {
	seen := make(map[string]bool, len(input.Mutants))
	for _, m := range input.Mutants {
		if m.ID == "" {
			return fmt.Errorf("%w: mutant has no id", ErrInvalidInput)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate mutant id %q", ErrInvalidInput, m.ID)
		}
		seen[m.ID] = true

		if m.FileName == "" {
			return fmt.Errorf("%w: mutant %q has no file name", ErrInvalidInput, m.ID)
		}
		if m.Location.StartLine < 1 {
			return fmt.Errorf("%w: mutant %q has no location", ErrInvalidInput, m.ID)
		}
	}
	return nil
}
