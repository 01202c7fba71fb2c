package plan

import "context"

// Project gives the planning core read-only access to the host project:
// current source text by path, and an optional report from a previous
// mutation-testing run.
type Project interface {
	// SourceFor returns the current text of fileName. fileName is the
	// same identifier used by Mutant.FileName and the keys of an
	// IncrementalReport's Files/TestFiles maps.
	SourceFor(fileName string) (string, error)

	// IncrementalReport returns the parsed outcome of a previous run, or
	// nil if none is available.
	IncrementalReport() (*IncrementalReport, error)
}

// Sandbox maps a source file name to the file the mutated variant of
// that source is (or would be) written to. Implementations must behave
// as a pure function of fileName from the core's perspective.
type Sandbox interface {
	SandboxFileFor(fileName string) string
}

// Reporter is notified once planning finishes successfully.
type Reporter interface {
	OnMutationTestingPlanReady(ctx context.Context, plans []PlanRecord) error
}
