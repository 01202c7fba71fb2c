// Package plan holds the data model shared by the mutation-test planning
// core: mutants, dry-run results, incremental reports, and the plan
// records the planner produces.
package plan

// Location is a half-open or fully-closed source range. Lines are
// 1-based, columns are 0-based. EndLine/EndCol are nil for an open-ended
// range (e.g. a prior test definition with only a start position).
type Location struct {
	StartLine int  `json:"startLine"`
	StartCol  int  `json:"startColumn"`
	EndLine   *int `json:"endLine,omitempty"`
	EndCol    *int `json:"endColumn,omitempty"`
}

// Closed reports whether the location has an end position.
func (l Location) Closed() bool {
	return l.EndLine != nil && l.EndCol != nil
}

// Verdict is the terminal status of a mutant, either assigned directly
// (Ignored) or reused from a prior incremental report.
type Verdict string

const (
	VerdictPending    Verdict = ""
	VerdictIgnored    Verdict = "Ignored"
	VerdictKilled     Verdict = "Killed"
	VerdictSurvived   Verdict = "Survived"
	VerdictNoCoverage Verdict = "NoCoverage"
	VerdictTimeout    Verdict = "Timeout"
	VerdictRuntimeErr Verdict = "RuntimeError"
	VerdictCompileErr Verdict = "CompileError"
)

// Terminal reports whether a verdict represents a finished mutant that
// does not require test execution to confirm again.
func (v Verdict) Terminal() bool {
	switch v {
	case VerdictIgnored, VerdictKilled, VerdictSurvived, VerdictNoCoverage, VerdictTimeout, VerdictRuntimeErr, VerdictCompileErr:
		return true
	default:
		return false
	}
}

// Mutant is a candidate program modification. The incrementally-reused
// fields (Status, StatusReason, TestsCompleted, KilledBy, CoveredBy,
// Static) are nil/zero until a component (the differ or the classifier)
// populates them on a freshly-allocated copy.
type Mutant struct {
	ID          string   `json:"id"`
	FileName    string   `json:"fileName"`
	MutatorName string   `json:"mutatorName"`
	Replacement string   `json:"replacement"`
	Location    Location `json:"location"`

	Status         Verdict  `json:"status,omitempty"`
	StatusReason   string   `json:"statusReason,omitempty"`
	TestsCompleted int      `json:"testsCompleted,omitempty"`
	KilledBy       []string `json:"killedBy,omitempty"`
	CoveredBy      []string `json:"coveredBy,omitempty"`
	Static         *bool    `json:"static,omitempty"`
}

// Clone returns a deep copy safe for a component to mutate without
// affecting the caller's input.
func (m Mutant) Clone() Mutant {
	c := m
	if m.KilledBy != nil {
		c.KilledBy = append([]string(nil), m.KilledBy...)
	}
	if m.CoveredBy != nil {
		c.CoveredBy = append([]string(nil), m.CoveredBy...)
	}
	if m.Static != nil {
		b := *m.Static
		c.Static = &b
	}
	return c
}

// TestResult is a single test's outcome from the dry run.
type TestResult struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	Name        string    `json:"name"`
	TimeSpentMs float64   `json:"timeSpentMs"`
	StartPos    *Location `json:"startPosition,omitempty"`
}

// CoverageMatrix records which mutation points were hit, statically and
// per test. Either field may be nil to denote "coverage unknown" for that
// half of the matrix.
type CoverageMatrix struct {
	Static  map[string]int            `json:"static"`
	PerTest map[string]map[string]int `json:"perTest"`
}

// DryRunResult is the recorded outcome of an untouched execution of the
// test suite: timings plus an optional coverage matrix.
type DryRunResult struct {
	Tests          []TestResult    `json:"tests"`
	MutantCoverage *CoverageMatrix `json:"mutantCoverage,omitempty"`
}

// TestByID returns the dry-run test with the given id, if present.
func (d DryRunResult) TestByID(id string) (TestResult, bool) {
	for _, t := range d.Tests {
		if t.ID == id {
			return t, true
		}
	}
	return TestResult{}, false
}

// PriorMutantResult is a mutant as recorded in an incremental report: it
// carries the same identifying fields as Mutant plus its final verdict.
type PriorMutantResult struct {
	ID             string   `json:"id"`
	MutatorName    string   `json:"mutatorName"`
	Replacement    string   `json:"replacement"`
	Location       Location `json:"location"`
	Status         Verdict  `json:"status"`
	StatusReason   string   `json:"statusReason,omitempty"`
	TestsCompleted int      `json:"testsCompleted,omitempty"`
	KilledBy       []string `json:"killedBy,omitempty"`
	CoveredBy      []string `json:"coveredBy,omitempty"`
	Static         bool     `json:"static,omitempty"`
}

// PriorTestDefinition is a test as recorded in an incremental report.
// Location may be open-ended (EndLine/EndCol nil) when the original tool
// only recorded the start of the test body.
type PriorTestDefinition struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location Location `json:"location"`
}

// SourceFile is one entry of an incremental report's `files` map.
type SourceFile struct {
	Source  string              `json:"source"`
	Mutants []PriorMutantResult `json:"mutants"`
}

// TestFile is one entry of an incremental report's `testFiles` map.
type TestFile struct {
	Source string                 `json:"source"`
	Tests  []PriorTestDefinition  `json:"tests"`
}

// IncrementalReport is the parsed outcome of a previous mutation-testing
// run, keyed by file path.
type IncrementalReport struct {
	Files     map[string]SourceFile `json:"files"`
	TestFiles map[string]TestFile   `json:"testFiles"`
}

// ActivationMode describes whether a mutant is injected at load time or
// gated at runtime by an identifier.
type ActivationMode string

const (
	ActivationStatic  ActivationMode = "static"
	ActivationRuntime ActivationMode = "runtime"
)

// RunOptions are the per-mutant execution parameters a Run plan carries.
type RunOptions struct {
	ActiveMutant      Mutant         `json:"activeMutant"`
	TestFilter        []string       `json:"testFilter,omitempty"`
	SandboxFileName   string         `json:"sandboxFileName"`
	TimeoutMs         float64        `json:"timeout"`
	DisableBail       bool           `json:"disableBail"`
	HitLimit          *int           `json:"hitLimit,omitempty"`
	MutantActivation  ActivationMode `json:"mutantActivation"`
	ReloadEnvironment bool           `json:"reloadEnvironment,omitempty"`
}

// RecordKind tags the PlanRecord union.
type RecordKind string

const (
	KindEarlyResult RecordKind = "EarlyResult"
	KindRun         RecordKind = "Run"
)

// PlanRecord is a tagged union: either an EarlyResult (no execution,
// verdict already known) or a Run (execute with the given RunOptions).
// Exactly one of the two payloads is meaningful, selected by Kind.
type PlanRecord struct {
	Kind    RecordKind `json:"kind"`
	Mutant  Mutant     `json:"mutant"`
	Run     *RunOptions `json:"runOptions,omitempty"`
	NetTime float64     `json:"netTime,omitempty"`
}

// EarlyResult constructs a no-execution plan record for the given mutant.
func EarlyResult(m Mutant) PlanRecord {
	return PlanRecord{Kind: KindEarlyResult, Mutant: m}
}

// RunPlan constructs an execution plan record.
func RunPlan(m Mutant, opts RunOptions, netTime float64) PlanRecord {
	return PlanRecord{Kind: KindRun, Mutant: m, Run: &opts, NetTime: netTime}
}

// Options are the policy knobs spec.md §6 enumerates.
type Options struct {
	IgnoreStatic  bool
	DisableBail   bool
	TimeoutMS     float64
	TimeoutFactor float64
	TimeOverheadMS float64
	WarnSlow      bool
}

// DefaultOptions mirrors the documented defaults.
func DefaultOptions() Options {
	return Options{
		IgnoreStatic:  false,
		DisableBail:   false,
		TimeoutMS:     10000,
		TimeoutFactor: 1.5,
		TimeOverheadMS: 0,
		WarnSlow:      true,
	}
}
