// Package planner turns classified mutants into the plan records a
// caller hands off to a test-runner pool: either an EarlyResult (no
// execution needed) or a Run with the activation mode, test filter,
// timeout, and hit limit the runner needs.
package planner

import (
	"github.com/mutaplan/mutaplan/internal/coverage"
	"github.com/mutaplan/mutaplan/pkg/plan"
)

// Synthesize builds one plan record per mutant, preserving input order.
// mutants is the post-diff mutant list (incremental reuse and input
// Ignored status already applied); classified holds, for every mutant
// whose status is not yet terminal, the coverage classification that
// decides its run shape.
func Synthesize(mutants []plan.Mutant, classified map[string]coverage.Classified, dryRun plan.DryRunResult, opts plan.Options, sandbox plan.Sandbox) []plan.PlanRecord {
	records := make([]plan.PlanRecord, len(mutants))

	for i, m := range mutants {
		if m.Status.Terminal() {
			records[i] = plan.EarlyResult(m)
			continue
		}

		c, ok := classified[m.ID]
		if !ok {
			records[i] = plan.EarlyResult(m)
			continue
		}

		if c.EarlyIgnored {
			ignored := c.Mutant
			ignored.Status = plan.VerdictIgnored
			ignored.StatusReason = c.Reason
			records[i] = plan.EarlyResult(ignored)
			continue
		}

		records[i] = run(c, dryRun, opts, sandbox)
	}

	return records
}

func run(c coverage.Classified, dryRun plan.DryRunResult, opts plan.Options, sandbox plan.Sandbox) plan.PlanRecord {
	var netTime float64
	var testFilter []string
	var activation plan.ActivationMode = plan.ActivationRuntime
	var reloadEnvironment bool

	switch c.Class {
	case coverage.ClassNoCoverage:
		netTime = sumAllTestTimes(dryRun)

	case coverage.ClassStatic:
		netTime = sumAllTestTimes(dryRun)
		activation = plan.ActivationStatic
		reloadEnvironment = true

	case coverage.ClassPerTest:
		testFilter = c.Mutant.CoveredBy
		netTime = sumTestTimes(dryRun, testFilter)
	}

	timeout := opts.TimeoutMS + opts.TimeoutFactor*netTime + opts.TimeOverheadMS

	runOpts := plan.RunOptions{
		ActiveMutant:      c.Mutant,
		TestFilter:        testFilter,
		SandboxFileName:   sandbox.SandboxFileFor(c.Mutant.FileName),
		TimeoutMs:         timeout,
		DisableBail:       opts.DisableBail,
		HitLimit:          hitLimit(c.Mutant.ID, dryRun),
		MutantActivation:  activation,
		ReloadEnvironment: reloadEnvironment,
	}

	return plan.RunPlan(c.Mutant, runOpts, netTime)
}

func sumAllTestTimes(dryRun plan.DryRunResult) float64 {
	var total float64
	for _, t := range dryRun.Tests {
		total += t.TimeSpentMs
	}
	return total
}

func sumTestTimes(dryRun plan.DryRunResult, ids []string) float64 {
	var total float64
	for _, id := range ids {
		if t, ok := dryRun.TestByID(id); ok {
			total += t.TimeSpentMs
		}
	}
	return total
}

// hitLimit computes 100x the total observed hits for a mutation point,
// or nil when no coverage matrix was recorded at all.
func hitLimit(mutationID string, dryRun plan.DryRunResult) *int {
	if dryRun.MutantCoverage == nil {
		return nil
	}

	total := dryRun.MutantCoverage.Static[mutationID]
	for _, hits := range dryRun.MutantCoverage.PerTest {
		total += hits[mutationID]
	}

	limit := 100 * total
	return &limit
}
