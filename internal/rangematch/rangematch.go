// Package rangematch decides whether a source range in one version of a
// text still exists, byte-for-byte, in another version — tolerating
// insertions or deletions of whole lines or characters outside the range
// itself. It is deliberately structural rather than AST-based: sources
// under comparison are not required to be syntactically valid.
package rangematch

import (
	"strings"

	"github.com/mutaplan/mutaplan/pkg/plan"
)

// Matches reports whether oldRange's body in oldSource is byte-identical
// to newRange's body in newSource. Both ranges must be closed (callers
// resolve open-ended prior locations before calling Matches; see
// internal/testindex). A range referencing a line beyond its source never
// matches.
func Matches(oldSource string, oldRange plan.Location, newSource string, newRange plan.Location) bool {
	oldBody, ok := body(oldSource, oldRange)
	if !ok {
		return false
	}
	newBody, ok := body(newSource, newRange)
	if !ok {
		return false
	}
	return oldBody == newBody
}

// body extracts the substring a location covers from source. Lines are
// 1-based, columns are 0-based byte offsets into the line.
func body(source string, loc plan.Location) (string, bool) {
	if !loc.Closed() {
		return "", false
	}
	lines := splitLines(source)

	startLine := loc.StartLine
	endLine := *loc.EndLine
	if startLine < 1 || endLine < 1 || startLine > len(lines) || endLine > len(lines) {
		return "", false
	}
	if startLine > endLine || (startLine == endLine && loc.StartCol > *loc.EndCol) {
		return "", false
	}

	if startLine == endLine {
		line := lines[startLine-1]
		if loc.StartCol < 0 || *loc.EndCol > len(line) {
			return "", false
		}
		return line[loc.StartCol:*loc.EndCol], true
	}

	var b strings.Builder
	first := lines[startLine-1]
	if loc.StartCol < 0 || loc.StartCol > len(first) {
		return "", false
	}
	b.WriteString(first[loc.StartCol:])
	b.WriteByte('\n')

	for i := startLine; i < endLine-1; i++ {
		b.WriteString(lines[i])
		b.WriteByte('\n')
	}

	last := lines[endLine-1]
	if *loc.EndCol < 0 || *loc.EndCol > len(last) {
		return "", false
	}
	b.WriteString(last[:*loc.EndCol])

	return b.String(), true
}

// splitLines splits on '\n' without discarding a trailing empty segment,
// so line numbers line up with editor-visible line numbers regardless of
// a final trailing newline.
func splitLines(source string) []string {
	return strings.Split(source, "\n")
}

// EndOfFile returns a closed location spanning from the given start
// position to the end of source's last line — used to close an open-ended
// prior definition that has no successor (§4.1 edge policy). A final
// trailing newline ends the last line; it does not start another one.
func EndOfFile(source string, startLine, startCol int) plan.Location {
	lines := splitLines(source)
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	endLine := len(lines)
	endCol := 0
	if endLine >= 1 {
		endCol = len(lines[endLine-1])
	}
	return plan.Location{
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   &endLine,
		EndCol:    &endCol,
	}
}
