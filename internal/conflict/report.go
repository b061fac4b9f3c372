package conflict

import (
	"gitmove.dev/gitmove/internal/strategy"
)

// Severity ranks how likely a path is to stop a real integration
type Severity int

const (
	// Low means both sides touched the file in separate regions
	Low Severity = iota + 1
	// High means overlapping line ranges changed differently
	High
	// Critical means binary content, a delete/rename against a modification,
	// or two changes claiming the same path
	Critical
)

func (s Severity) String() string {
	switch s {
	case Low:
		return "LOW"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Blocking reports whether the severity flips the verdict
func (s Severity) Blocking() bool {
	return s >= High
}

// Verdict is the overall outcome of a simulation
type Verdict string

const (
	// Clean means the integration is expected to apply without stopping
	Clean Verdict = "clean"
	// WouldConflict means at least one HIGH or CRITICAL entry exists
	WouldConflict Verdict = "would-conflict"
)

// Side names which branch a hunk comes from
type Side string

const (
	// Local is the branch being synchronized
	Local Side = "local"
	// Target is the branch being integrated
	Target Side = "target"
)

// Hunk is a changed region of the merge-base version of a file. Lines
// [Start, Start+Count) of the base were replaced by Added lines; Start is
// zero-based and Count is zero for pure insertions.
type Hunk struct {
	Side  Side
	Start int
	Count int
	Added int

	text string
}

// End is one past the last base line the hunk replaces
func (h Hunk) End() int {
	return h.Start + h.Count
}

// Entry is one path changed on both sides
type Entry struct {
	Path     string
	Severity Severity
	// Kind is content, add/add, binary, or a structural pair such as
	// delete/modify, rename/add or file/directory (local side first).
	Kind   string
	Hunks  []Hunk
	Reason string
	// Commits lists the local commits touching Path in replay order; rebase only.
	Commits []string
}

// Report is the result of a simulated integration
type Report struct {
	Branch      string
	Target      string
	Strategy    strategy.Strategy
	MergeBase   string
	Entries     []Entry
	Verdict     Verdict
	Suggestions []string
}

// HasConflicts reports whether the verdict is would-conflict
func (r *Report) HasConflicts() bool {
	return r.Verdict == WouldConflict
}

// ConflictingPaths returns the HIGH and CRITICAL paths in order
func (r *Report) ConflictingPaths() []string {
	var paths []string
	for _, e := range r.Entries {
		if e.Severity.Blocking() {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// Count returns the number of entries with severity s
func (r *Report) Count(s Severity) int {
	n := 0
	for _, e := range r.Entries {
		if e.Severity == s {
			n++
		}
	}
	return n
}
