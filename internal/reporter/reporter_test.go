package reporter

import (
	"context"
	"testing"

	"github.com/mutaplan/mutaplan/pkg/plan"
)

func TestNoopReporter_NeverFails(t *testing.T) {
	var r NoopReporter

	records := []plan.PlanRecord{
		plan.EarlyResult(plan.Mutant{ID: "m1", FileName: "main.go", Status: plan.VerdictIgnored}),
	}

	if err := r.OnMutationTestingPlanReady(context.Background(), records); err != nil {
		t.Errorf("NoopReporter returned an error: %v", err)
	}
}

func TestNoopReporter_EmptyPlans(t *testing.T) {
	var r NoopReporter

	if err := r.OnMutationTestingPlanReady(context.Background(), nil); err != nil {
		t.Errorf("NoopReporter returned an error for nil plans: %v", err)
	}
}
