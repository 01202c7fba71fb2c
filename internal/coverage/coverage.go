// Package coverage turns a dry run's coverage matrix into, first, a
// per-mutant list of covering tests, and second, a classification of
// each mutant (ignored / no-coverage / static / per-test) that the plan
// synthesizer (internal/planner) consumes.
package coverage

import (
	"github.com/rs/zerolog/log"

	"github.com/mutaplan/mutaplan/pkg/plan"
)

// Class is the coverage classification of a mutant not already settled
// by an incremental reuse or an input Ignored status.
type Class string

const (
	ClassNoCoverage Class = "NoCoverage"
	ClassStatic     Class = "Static"
	ClassPerTest    Class = "PerTest"
)

// Classified is one mutant's classification: the mutant, possibly
// enriched with Static/CoveredBy, its class, and — for the ignoreStatic
// early-out — the reason text a caller should attach to an EarlyResult.
type Classified struct {
	Mutant       plan.Mutant
	Class        Class
	EarlyIgnored bool
	Reason       string
}

// CoveringTests derives, for every mutation point id present in the
// dry run's perTest matrix, the list of tests that hit it at least once.
// A test id referenced by coverage but absent from the dry run's test
// list is skipped and logged at warn level.
func CoveringTests(dryRun plan.DryRunResult) map[string][]plan.TestResult {
	covering := make(map[string][]plan.TestResult)
	if dryRun.MutantCoverage == nil {
		return covering
	}

	for testID, hits := range dryRun.MutantCoverage.PerTest {
		test, ok := dryRun.TestByID(testID)
		if !ok {
			log.Warn().Str("testId", testID).Msg(
				"Found test with id \"" + testID + "\" in coverage data, but not in the test results of the dry run. Not taking coverage data for this test into account.",
			)
			continue
		}
		for mutationID, count := range hits {
			if count <= 0 {
				continue
			}
			covering[mutationID] = append(covering[mutationID], test)
		}
	}
	return covering
}

// Classify assigns a coverage class to every mutant, per §4.4 of the
// coverage-classification design: no-coverage, static-only (optionally
// folded into an early Ignored when ignoreStatic is set), hybrid, or
// plain per-test. Mutants are expected to already exclude anything
// carrying an input Ignored status or a reused incremental verdict;
// Classify does not look at Mutant.Status.
func Classify(mutants []plan.Mutant, dryRun plan.DryRunResult, coveringByID map[string][]plan.TestResult, opts plan.Options) []Classified {
	out := make([]Classified, len(mutants))

	var static map[string]int
	if dryRun.MutantCoverage != nil {
		static = dryRun.MutantCoverage.Static
	}
	hasCoverageData := dryRun.MutantCoverage != nil

	for i, m := range mutants {
		c := m.Clone()
		staticHits, hasStatic := static[m.ID]
		hasStatic = hasStatic && staticHits > 0
		covering := coveringByID[m.ID]
		hasPerTest := len(covering) > 0

		switch {
		case !hasCoverageData:
			out[i] = Classified{Mutant: c, Class: ClassNoCoverage}
			continue

		case hasStatic && !hasPerTest:
			b := true
			c.Static = &b
			c.CoveredBy = []string{}
			if opts.IgnoreStatic {
				out[i] = Classified{
					Mutant:       c,
					Class:        ClassStatic,
					EarlyIgnored: true,
					Reason:       `Static mutant (and "ignoreStatic" was enabled)`,
				}
			} else {
				out[i] = Classified{Mutant: c, Class: ClassStatic}
			}
			continue

		case hasStatic && hasPerTest:
			b := true
			c.Static = &b
			c.CoveredBy = testIDs(covering)
			if opts.IgnoreStatic {
				out[i] = Classified{Mutant: c, Class: ClassPerTest}
			} else {
				out[i] = Classified{Mutant: c, Class: ClassStatic}
			}
			continue

		case hasPerTest:
			b := false
			c.Static = &b
			c.CoveredBy = testIDs(covering)
			out[i] = Classified{Mutant: c, Class: ClassPerTest}
			continue

		default:
			b := false
			c.Static = &b
			c.CoveredBy = []string{}
			out[i] = Classified{Mutant: c, Class: ClassPerTest}
		}
	}

	return out
}

func testIDs(tests []plan.TestResult) []string {
	ids := make([]string, len(tests))
	for i, t := range tests {
		ids[i] = t.ID
	}
	return ids
}
