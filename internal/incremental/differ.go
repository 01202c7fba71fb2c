// Package incremental reconciles the current set of mutants and the
// tests covering them against a previous mutation-testing run, reusing
// a prior verdict wherever the mutant's body and its test dependencies
// are provably unchanged. It never touches a current mutant's identity
// fields (file name, mutator, replacement, location) — reused fields
// are merged into a fresh copy.
package incremental

import (
	"github.com/mutaplan/mutaplan/internal/rangematch"
	"github.com/mutaplan/mutaplan/internal/testindex"
	"github.com/mutaplan/mutaplan/pkg/plan"
)

type priorTestRef struct {
	fileName string
	name     string
}

// Diff rewrites currentMutants with reusable prior verdicts. coveringByID
// maps a mutant id to the current tests that cover it (as produced by
// internal/coverage.CoveringTests); dryRun supplies the full current
// test list, needed to close open-ended test positions against their
// siblings in the same file. project gives access to current source
// text and the prior report; a nil report (no incremental run available)
// makes Diff a no-op clone.
func Diff(currentMutants []plan.Mutant, dryRun plan.DryRunResult, coveringByID map[string][]plan.TestResult, project plan.Project) ([]plan.Mutant, error) {
	out := make([]plan.Mutant, len(currentMutants))
	for i, m := range currentMutants {
		out[i] = m.Clone()
	}

	report, err := project.IncrementalReport()
	if err != nil {
		return nil, err
	}
	if report == nil {
		return out, nil
	}

	idx := testindex.Build(report)
	priorTestNames := indexPriorTestNames(report)
	sourceCache := map[string]string{}

	sourceFor := func(fileName string) (string, error) {
		if s, ok := sourceCache[fileName]; ok {
			return s, nil
		}
		s, err := project.SourceFor(fileName)
		if err != nil {
			return "", err
		}
		sourceCache[fileName] = s
		return s, nil
	}

	closedCurrent := closeCurrentTestLocations(dryRun.Tests, sourceFor)

	for i, m := range currentMutants {
		reused, ok, err := reuse(m, report, idx, coveringByID[m.ID], closedCurrent, priorTestNames, sourceFor)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = reused
		}
	}

	return out, nil
}

func reuse(
	m plan.Mutant,
	report *plan.IncrementalReport,
	idx *testindex.Index,
	covering []plan.TestResult,
	closedCurrent map[string]plan.Location,
	priorTestNames map[string]priorTestRef,
	sourceFor func(string) (string, error),
) (plan.Mutant, bool, error) {
	file, ok := report.Files[m.FileName]
	if !ok {
		return plan.Mutant{}, false, nil
	}

	currentSource, err := sourceFor(m.FileName)
	if err != nil {
		return plan.Mutant{}, false, err
	}

	for _, prior := range file.Mutants {
		if prior.MutatorName != m.MutatorName || prior.Replacement != m.Replacement {
			continue
		}
		if !rangematch.Matches(file.Source, prior.Location, currentSource, m.Location) {
			continue
		}
		if !testDependenciesUnchanged(prior, covering, idx, priorTestNames, closedCurrent, sourceFor) {
			continue
		}

		merged := m.Clone()
		merged.Status = prior.Status
		merged.StatusReason = prior.StatusReason
		merged.TestsCompleted = prior.TestsCompleted
		merged.KilledBy = append([]string(nil), prior.KilledBy...)
		merged.CoveredBy = append([]string(nil), prior.CoveredBy...)
		static := prior.Static
		merged.Static = &static
		return merged, true, nil
	}

	return plan.Mutant{}, false, nil
}

func testDependenciesUnchanged(
	prior plan.PriorMutantResult,
	covering []plan.TestResult,
	idx *testindex.Index,
	priorTestNames map[string]priorTestRef,
	closedCurrent map[string]plan.Location,
	sourceFor func(string) (string, error),
) bool {
	for _, t := range covering {
		if !testUnchanged(idx, t, closedCurrent, sourceFor) {
			return false
		}
	}

	if prior.Status == plan.VerdictKilled {
		if len(prior.KilledBy) == 0 {
			return false
		}
		ref, ok := priorTestNames[prior.KilledBy[0]]
		if !ok {
			return false
		}
		if !anyCurrentTestMatches(idx, ref, sourceFor) {
			return false
		}
		return true
	}

	if prior.Status.Terminal() {
		coveredNames := make(map[priorTestRef]bool, len(covering))
		for _, t := range covering {
			coveredNames[priorTestRef{fileName: t.FileName, name: t.Name}] = true
		}
		for _, id := range prior.CoveredBy {
			ref, ok := priorTestNames[id]
			if !ok {
				continue
			}
			delete(coveredNames, ref)
		}
		// Anything left is a covering test with no counterpart in the
		// prior coveredBy list: a new test started covering this
		// mutant since the last run.
		if len(coveredNames) > 0 {
			return false
		}
	}

	return true
}

func testUnchanged(idx *testindex.Index, t plan.TestResult, closedCurrent map[string]plan.Location, sourceFor func(string) (string, error)) bool {
	currentSource, err := sourceFor(t.FileName)
	if err != nil {
		return false
	}
	var loc *plan.Location
	if l, ok := closedCurrent[t.ID]; ok {
		loc = &l
	}
	_, ok := idx.Match(t.FileName, t.Name, currentSource, loc)
	return ok
}

func anyCurrentTestMatches(idx *testindex.Index, ref priorTestRef, sourceFor func(string) (string, error)) bool {
	currentSource, err := sourceFor(ref.fileName)
	if err != nil {
		return false
	}
	_, ok := idx.Match(ref.fileName, ref.name, currentSource, nil)
	return ok
}

// closeCurrentTestLocations closes every current test's open-ended start
// position against its siblings in the same test file, mirroring the
// closing rule used for prior test definitions.
func closeCurrentTestLocations(tests []plan.TestResult, sourceFor func(string) (string, error)) map[string]plan.Location {
	byFile := map[string][]int{}
	for i, t := range tests {
		if t.StartPos != nil {
			byFile[t.FileName] = append(byFile[t.FileName], i)
		}
	}

	out := map[string]plan.Location{}
	for fileName, indices := range byFile {
		source, err := sourceFor(fileName)
		if err != nil {
			continue
		}
		locs := make([]plan.Location, len(indices))
		for i, idx := range indices {
			locs[i] = *tests[idx].StartPos
		}
		closed := testindex.CloseRanges(locs, source)
		for i, idx := range indices {
			out[tests[idx].ID] = closed[i]
		}
	}
	return out
}

// indexPriorTestNames builds a lookup from a prior test's id to its
// (file, name), used to resolve killedBy/coveredBy id references.
func indexPriorTestNames(report *plan.IncrementalReport) map[string]priorTestRef {
	out := map[string]priorTestRef{}
	for fileName, tf := range report.TestFiles {
		for _, def := range tf.Tests {
			out[def.ID] = priorTestRef{fileName: fileName, name: def.Name}
		}
	}
	return out
}
