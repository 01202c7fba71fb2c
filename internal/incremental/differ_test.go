package incremental

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutaplan/mutaplan/pkg/plan"
)

type fakeProject struct {
	sources map[string]string
	report  *plan.IncrementalReport
	err     error
}

func (p *fakeProject) SourceFor(fileName string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	s, ok := p.sources[fileName]
	if !ok {
		return "", errors.New("no such file: " + fileName)
	}
	return s, nil
}

func (p *fakeProject) IncrementalReport() (*plan.IncrementalReport, error) {
	return p.report, p.err
}

func closedLoc(startLine, startCol, endLine, endCol int) plan.Location {
	el, ec := endLine, endCol
	return plan.Location{StartLine: startLine, StartCol: startCol, EndLine: &el, EndCol: &ec}
}

func TestDiff_NoReportIsNoOp(t *testing.T) {
	src := "function add(a, b) { return a + b; }\n"
	mutants := []plan.Mutant{{ID: "1", FileName: "src/add.js", MutatorName: "min-replacement", Replacement: "-", Location: closedLoc(1, 30, 1, 31)}}
	project := &fakeProject{sources: map[string]string{"src/add.js": src}}

	out, err := Diff(mutants, plan.DryRunResult{}, map[string][]plan.TestResult{}, project)
	require.NoError(t, err)
	assert.Equal(t, plan.VerdictPending, out[0].Status)
}

func TestDiff_ReusesKilledVerdictWhenUnchanged(t *testing.T) {
	srcBefore := "function add(a, b) {\n  return a + b;\n}\n"
	srcAfter := srcBefore // unchanged
	testSrc := "describe('add', () => {\n  it('adds', () => {\n    expect(add(1,2)).toBe(3);\n  });\n});\n"

	report := &plan.IncrementalReport{
		Files: map[string]plan.SourceFile{
			"src/add.js": {
				Source: srcBefore,
				Mutants: []plan.PriorMutantResult{
					{
						ID:          "m1",
						MutatorName: "min-replacement",
						Replacement: "-",
						Location:    closedLoc(2, 9, 2, 14),
						Status:      plan.VerdictKilled,
						KilledBy:    []string{"t1"},
						CoveredBy:   []string{"t1"},
					},
				},
			},
		},
		TestFiles: map[string]plan.TestFile{
			"src/add.test.js": {
				Source: testSrc,
				Tests: []plan.PriorTestDefinition{
					{ID: "t1", Name: "adds", Location: plan.Location{StartLine: 2, StartCol: 2}},
				},
			},
		},
	}

	project := &fakeProject{
		sources: map[string]string{"src/add.js": srcAfter, "src/add.test.js": testSrc},
		report:  report,
	}

	currentMutant := plan.Mutant{ID: "1", FileName: "src/add.js", MutatorName: "min-replacement", Replacement: "-", Location: closedLoc(2, 9, 2, 14)}
	dryRun := plan.DryRunResult{
		Tests: []plan.TestResult{
			{ID: "1", FileName: "src/add.test.js", Name: "adds", StartPos: &plan.Location{StartLine: 2, StartCol: 2}},
		},
	}
	covering := map[string][]plan.TestResult{"1": dryRun.Tests}

	out, err := Diff([]plan.Mutant{currentMutant}, dryRun, covering, project)
	require.NoError(t, err)

	got := out[0]
	assert.Equal(t, plan.VerdictKilled, got.Status)
	assert.Equal(t, []string{"t1"}, got.KilledBy)
	assert.Equal(t, "src/add.js", got.FileName, "identity fields must survive reuse")
	assert.Equal(t, "-", got.Replacement)
}

func TestDiff_BodyChangedPreventsReuse(t *testing.T) {
	srcBefore := "function add(a, b) {\n  return a + b;\n}\n"
	srcAfter := "function add(a, b) {\n  return a - b;\n}\n"

	report := &plan.IncrementalReport{
		Files: map[string]plan.SourceFile{
			"src/add.js": {
				Source: srcBefore,
				Mutants: []plan.PriorMutantResult{
					{ID: "m1", MutatorName: "min-replacement", Replacement: "-", Location: closedLoc(2, 9, 2, 14), Status: plan.VerdictKilled, KilledBy: []string{"t1"}},
				},
			},
		},
	}

	project := &fakeProject{sources: map[string]string{"src/add.js": srcAfter}, report: report}
	currentMutant := plan.Mutant{ID: "1", FileName: "src/add.js", MutatorName: "min-replacement", Replacement: "-", Location: closedLoc(2, 9, 2, 14)}

	out, err := Diff([]plan.Mutant{currentMutant}, plan.DryRunResult{}, map[string][]plan.TestResult{}, project)
	require.NoError(t, err)
	assert.Equal(t, plan.VerdictPending, out[0].Status)
}

func TestDiff_NewCoveringTestPreventsReuseOfNonKilledVerdict(t *testing.T) {
	src := "function add(a, b) {\n  return a + b;\n}\n"
	testSrc := "describe('add', () => {\n  it('adds', () => {});\n  it('new one', () => {});\n});\n"

	report := &plan.IncrementalReport{
		Files: map[string]plan.SourceFile{
			"src/add.js": {
				Source: src,
				Mutants: []plan.PriorMutantResult{
					{ID: "m1", MutatorName: "min-replacement", Replacement: "-", Location: closedLoc(2, 9, 2, 14), Status: plan.VerdictSurvived, CoveredBy: []string{"t1"}},
				},
			},
		},
		TestFiles: map[string]plan.TestFile{
			"src/add.test.js": {
				Source: testSrc,
				Tests: []plan.PriorTestDefinition{
					{ID: "t1", Name: "adds", Location: plan.Location{StartLine: 2, StartCol: 2}},
				},
			},
		},
	}

	project := &fakeProject{sources: map[string]string{"src/add.js": src, "src/add.test.js": testSrc}, report: report}
	currentMutant := plan.Mutant{ID: "1", FileName: "src/add.js", MutatorName: "min-replacement", Replacement: "-", Location: closedLoc(2, 9, 2, 14)}

	dryRun := plan.DryRunResult{
		Tests: []plan.TestResult{
			{ID: "1", FileName: "src/add.test.js", Name: "adds", StartPos: &plan.Location{StartLine: 2, StartCol: 2}},
			{ID: "2", FileName: "src/add.test.js", Name: "new one", StartPos: &plan.Location{StartLine: 3, StartCol: 2}},
		},
	}
	covering := map[string][]plan.TestResult{"1": dryRun.Tests} // both tests now cover the mutant

	out, err := Diff([]plan.Mutant{currentMutant}, dryRun, covering, project)
	require.NoError(t, err)
	assert.Equal(t, plan.VerdictPending, out[0].Status, "a newly-covering test must block reuse of a non-killed terminal verdict")
}
