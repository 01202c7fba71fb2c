// Package testindex builds a canonical (file, name) index over a prior
// incremental report's test definitions and resolves open-ended prior
// locations, so the incremental differ (internal/incremental) can decide
// whether a current test still matches a prior one.
package testindex

import (
	"sort"

	"github.com/mutaplan/mutaplan/internal/rangematch"
	"github.com/mutaplan/mutaplan/pkg/plan"
)

// Resolved is a prior test definition with its location closed (end
// position filled in per §4.1's open-ended-range policy).
type Resolved struct {
	plan.PriorTestDefinition
	FileName string
	Location plan.Location // always closed
}

// Index is keyed by (fileName, name); a file/name pair may have more than
// one definition when tests are generated (the same name reused across
// instances).
type Index struct {
	byKey  map[key][]Resolved
	source map[string]string // fileName -> source text, for EOF closing
}

type key struct {
	fileName string
	name     string
}

// Build indexes every test file in the report, closing each test's
// location via CloseRanges against its siblings in the same file.
func Build(report *plan.IncrementalReport) *Index {
	idx := &Index{
		byKey:  make(map[key][]Resolved),
		source: make(map[string]string),
	}
	if report == nil {
		return idx
	}

	for fileName, tf := range report.TestFiles {
		idx.source[fileName] = tf.Source

		locs := make([]plan.Location, len(tf.Tests))
		for i, def := range tf.Tests {
			locs[i] = def.Location
		}
		closed := CloseRanges(locs, tf.Source)

		for i, def := range tf.Tests {
			r := Resolved{PriorTestDefinition: def, FileName: fileName, Location: closed[i]}
			k := key{fileName: fileName, name: def.Name}
			idx.byKey[k] = append(idx.byKey[k], r)
		}
	}

	return idx
}

// CloseRanges closes every open-ended location in locs (end position
// nil) using the start of the next location with a *distinct* start in
// the slice (sorted by start line/col; entries sharing a start, as
// generated tests do, are skipped over per §4.1), falling back to
// end-of-file in source when there is no successor. Already-closed
// locations pass through unchanged. The result preserves the input
// order.
func CloseRanges(locs []plan.Location, source string) []plan.Location {
	type indexed struct {
		loc plan.Location
		pos int
	}
	sorted := make([]indexed, len(locs))
	for i, l := range locs {
		sorted[i] = indexed{loc: l, pos: i}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessStart(sorted[i].loc, sorted[j].loc)
	})

	out := make([]plan.Location, len(locs))
	for i, entry := range sorted {
		loc := entry.loc
		if loc.Closed() {
			out[entry.pos] = loc
			continue
		}

		closed := false
		for j := i + 1; j < len(sorted); j++ {
			next := sorted[j].loc
			if next.StartLine != loc.StartLine || next.StartCol != loc.StartCol {
				el, ec := next.StartLine, next.StartCol
				out[entry.pos] = plan.Location{StartLine: loc.StartLine, StartCol: loc.StartCol, EndLine: &el, EndCol: &ec}
				closed = true
				break
			}
		}
		if !closed {
			out[entry.pos] = rangematch.EndOfFile(source, loc.StartLine, loc.StartCol)
		}
	}
	return out
}

// lessStart orders by start line then start column.
func lessStart(a, b plan.Location) bool {
	if a.StartLine != b.StartLine {
		return a.StartLine < b.StartLine
	}
	return a.StartCol < b.StartCol
}

// Lookup returns every prior definition recorded under (fileName, name).
func (idx *Index) Lookup(fileName, name string) []Resolved {
	return idx.byKey[key{fileName: fileName, name: name}]
}

// Source returns the prior source text recorded for a test file.
func (idx *Index) Source(fileName string) (string, bool) {
	s, ok := idx.source[fileName]
	return s, ok
}

// Match resolves a current test to the prior definition it corresponds
// to, per §4.2: look up by (fileName, name). If exactly one candidate
// exists and the current test carries no (closed) start position, accept
// it unconditionally — there is nothing to disambiguate against.
// Otherwise require a structural range-match (§4.1) between the current
// test's closed location and a candidate's closed location, returning the
// first candidate that matches.
func (idx *Index) Match(fileName, name string, currentSource string, currentLoc *plan.Location) (Resolved, bool) {
	candidates := idx.Lookup(fileName, name)
	if len(candidates) == 0 {
		return Resolved{}, false
	}

	if len(candidates) == 1 && currentLoc == nil {
		return candidates[0], true
	}
	if currentLoc == nil {
		// Ambiguous without a position to disambiguate; conservatively
		// refuse rather than guess which generated instance matches.
		return Resolved{}, false
	}

	priorSource, _ := idx.Source(fileName)
	for _, c := range candidates {
		if rangematch.Matches(priorSource, c.Location, currentSource, *currentLoc) {
			return c, true
		}
	}

	return Resolved{}, false
}
