// Package conflict predicts which paths an integration would conflict on.
//
// The simulation is a three-way comparison of the merge base against both
// tips, read straight from the object database. It never touches the work
// tree, the index or HEAD, so it can run while other read-only analysis runs
// in parallel.
package conflict

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/utils/binary"

	"gitmove.dev/gitmove/internal/divergence"
	"gitmove.dev/gitmove/internal/git"
	"gitmove.dev/gitmove/internal/strategy"
)

// Detector simulates integrations over a git.Backend
type Detector struct {
	backend  git.Backend
	analyzer *divergence.Analyzer
	logger   *slog.Logger
}

// NewDetector creates a Detector
func NewDetector(backend git.Backend, analyzer *divergence.Analyzer, logger *slog.Logger) *Detector {
	return &Detector{backend: backend, analyzer: analyzer, logger: logger}
}

// Simulate computes the divergence of local and target and predicts the
// conflicts of integrating target into local with s.
func (d *Detector) Simulate(ctx context.Context, local, target git.BranchRef, s strategy.Strategy) (*Report, error) {
	div, err := d.analyzer.Compute(ctx, local, target)
	if err != nil {
		return nil, err
	}
	return d.SimulateFrom(ctx, local, target, s, div)
}

// SimulateFrom is Simulate with an already computed divergence
func (d *Detector) SimulateFrom(ctx context.Context, local, target git.BranchRef, s strategy.Strategy, div divergence.Divergence) (*Report, error) {
	report := &Report{
		Branch:    local.Name,
		Target:    target.Name,
		Strategy:  s,
		MergeBase: div.MergeBase(),
		Verdict:   Clean,
	}
	// one side contains the other: a fast-forward or a no-op
	if div.Ahead == 0 || div.Behind == 0 {
		return report, nil
	}

	ours, err := d.changesByBase(ctx, report.MergeBase, local.Commit)
	if err != nil {
		return nil, err
	}
	theirs, err := d.changesByBase(ctx, report.MergeBase, target.Commit)
	if err != nil {
		return nil, err
	}

	for path, oc := range ours {
		tc, ok := theirs[path]
		if !ok {
			continue
		}
		entry, conflicting, err := d.classify(ctx, path, oc, tc)
		if err != nil {
			return nil, err
		}
		if conflicting {
			report.Entries = append(report.Entries, entry)
		}
	}
	reported := make(map[string]bool, len(report.Entries))
	for _, e := range report.Entries {
		reported[e.Path] = true
	}
	for _, e := range collisions(ours, theirs) {
		if !reported[e.Path] {
			reported[e.Path] = true
			report.Entries = append(report.Entries, e)
		}
	}
	sort.Slice(report.Entries, func(i, j int) bool { return report.Entries[i].Path < report.Entries[j].Path })

	if s == strategy.Rebase && len(report.Entries) > 0 {
		if err := d.attributeCommits(ctx, report, div.LocalOnly); err != nil {
			return nil, err
		}
	}

	for _, e := range report.Entries {
		if e.Severity.Blocking() {
			report.Verdict = WouldConflict
			break
		}
	}
	report.Suggestions = suggest(report)

	d.logger.Debug("simulated integration",
		"branch", local.Name, "target", target.Name, "strategy", s.String(),
		"entries", len(report.Entries), "verdict", string(report.Verdict))
	return report, nil
}

func (d *Detector) changesByBase(ctx context.Context, base, tip string) (map[string]git.FileChange, error) {
	changes, err := d.backend.ChangedFiles(ctx, base, tip)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..%s: %w", short(base), short(tip), err)
	}
	byPath := make(map[string]git.FileChange, len(changes))
	for _, c := range changes {
		byPath[c.BasePath()] = c
	}
	return byPath, nil
}

// classify compares the two changes of one base path. The boolean is false
// when the changes cannot conflict, such as identical edits on both sides.
func (d *Detector) classify(ctx context.Context, path string, ours, theirs git.FileChange) (Entry, bool, error) {
	entry := Entry{Path: path}
	critical := func(kind, reason string) (Entry, bool, error) {
		entry.Severity, entry.Kind, entry.Reason = Critical, kind, reason
		return entry, true, nil
	}

	switch {
	case ours.Kind == git.ChangeDeleted && theirs.Kind == git.ChangeDeleted:
		return entry, false, nil
	case ours.Kind == git.ChangeDeleted && theirs.Kind == git.ChangeRenamed:
		return critical("delete/rename", fmt.Sprintf("deleted locally, renamed to %s on the target", theirs.To))
	case ours.Kind == git.ChangeRenamed && theirs.Kind == git.ChangeDeleted:
		return critical("rename/delete", fmt.Sprintf("renamed to %s locally, deleted on the target", ours.To))
	case ours.Kind == git.ChangeDeleted:
		return critical("delete/modify", "deleted locally, modified on the target")
	case theirs.Kind == git.ChangeDeleted:
		return critical("modify/delete", "modified locally, deleted on the target")
	case ours.Kind == git.ChangeRenamed && theirs.Kind == git.ChangeRenamed:
		if ours.To != theirs.To {
			return critical("rename/rename", fmt.Sprintf("renamed to %s locally and to %s on the target", ours.To, theirs.To))
		}
		entry.Path = ours.To
	case ours.Kind == git.ChangeRenamed:
		return critical("rename/modify", fmt.Sprintf("renamed to %s locally, modified on the target", ours.To))
	case theirs.Kind == git.ChangeRenamed:
		return critical("modify/rename", fmt.Sprintf("modified locally, renamed to %s on the target", theirs.To))
	}

	if ours.ToBlob == theirs.ToBlob {
		return entry, false, nil
	}

	oursData, err := d.backend.ReadBlob(ctx, ours.ToBlob)
	if err != nil {
		return entry, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	theirsData, err := d.backend.ReadBlob(ctx, theirs.ToBlob)
	if err != nil {
		return entry, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var baseData []byte
	if ours.FromBlob != "" {
		if baseData, err = d.backend.ReadBlob(ctx, ours.FromBlob); err != nil {
			return entry, false, fmt.Errorf("failed to read base of %s: %w", path, err)
		}
	}

	for _, data := range [][]byte{baseData, oursData, theirsData} {
		if isBinary(data) {
			return critical("binary", "binary content changed on both sides")
		}
	}

	entry.Kind = "content"
	if ours.Kind == git.ChangeAdded {
		entry.Kind = "add/add"
	}
	local := hunks(Local, string(baseData), string(oursData))
	remote := hunks(Target, string(baseData), string(theirsData))
	if hit := overlapping(local, remote); len(hit) > 0 {
		entry.Severity = High
		entry.Hunks = hit
		entry.Reason = fmt.Sprintf("both sides changed overlapping lines (%s)", describe(hit))
		if entry.Kind == "add/add" {
			entry.Reason = "added on both sides with different content"
		}
		return entry, true, nil
	}

	entry.Severity = Low
	entry.Hunks = append(local, remote...)
	entry.Reason = "both sides changed the file in separate regions"
	return entry, true, nil
}

// destinations indexes the additions and rename targets of one side by the
// path they create.
func destinations(changes map[string]git.FileChange) map[string]git.FileChange {
	out := map[string]git.FileChange{}
	for _, c := range changes {
		if c.Kind == git.ChangeAdded || c.Kind == git.ChangeRenamed {
			out[c.To] = c
		}
	}
	return out
}

func origin(c git.FileChange) (string, string) {
	if c.Kind == git.ChangeRenamed {
		return "rename", "renamed from " + c.From
	}
	return "add", "added"
}

// collisions finds the conflicts that pairing by base path misses: two
// different sources arriving at one path, and a file on one side where the
// other side creates a directory.
func collisions(ours, theirs map[string]git.FileChange) []Entry {
	ourDest, theirDest := destinations(ours), destinations(theirs)
	var entries []Entry

	for path, oc := range ourDest {
		tc, ok := theirDest[path]
		if !ok || oc.BasePath() == tc.BasePath() || oc.ToBlob == tc.ToBlob {
			continue
		}
		ok1, why1 := origin(oc)
		ok2, why2 := origin(tc)
		entries = append(entries, Entry{
			Path:     path,
			Severity: Critical,
			Kind:     ok1 + "/" + ok2,
			Reason:   fmt.Sprintf("%s locally, %s on the target", why1, why2),
		})
	}

	ourPaths, theirPaths := sortedKeys(ourDest), sortedKeys(theirDest)
	for _, path := range ourPaths {
		if inside, ok := firstUnder(theirPaths, path); ok {
			entries = append(entries, Entry{
				Path:     path,
				Severity: Critical,
				Kind:     "file/directory",
				Reason:   fmt.Sprintf("a file locally, a directory on the target (%s)", inside),
			})
		}
	}
	for _, path := range theirPaths {
		if inside, ok := firstUnder(ourPaths, path); ok {
			entries = append(entries, Entry{
				Path:     path,
				Severity: Critical,
				Kind:     "directory/file",
				Reason:   fmt.Sprintf("a directory locally (%s), a file on the target", inside),
			})
		}
	}
	return entries
}

func sortedKeys(m map[string]git.FileChange) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// firstUnder returns the first of the sorted paths inside directory dir
func firstUnder(paths []string, dir string) (string, bool) {
	prefix := dir + "/"
	i := sort.SearchStrings(paths, prefix)
	if i < len(paths) && strings.HasPrefix(paths[i], prefix) {
		return paths[i], true
	}
	return "", false
}

// attributeCommits lists, for each entry, the local commits that touch it in
// the order a rebase would replay them.
func (d *Detector) attributeCommits(ctx context.Context, report *Report, localOnly []divergence.Commit) error {
	touched := map[string][]string{}
	for _, c := range localOnly {
		parents, err := d.backend.Parents(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("failed to read parents of %s: %w", short(c.ID), err)
		}
		if len(parents) != 1 {
			// merge commits are dropped by a rebase and roots have nothing to diff
			continue
		}
		changes, err := d.backend.ChangedFiles(ctx, parents[0], c.ID)
		if err != nil {
			return fmt.Errorf("failed to diff %s: %w", short(c.ID), err)
		}
		for _, ch := range changes {
			touched[ch.From] = append(touched[ch.From], c.ID)
			if ch.To != ch.From {
				touched[ch.To] = append(touched[ch.To], c.ID)
			}
		}
	}
	for i := range report.Entries {
		report.Entries[i].Commits = touched[report.Entries[i].Path]
	}
	return nil
}

func isBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	ok, err := binary.IsBinary(bytes.NewReader(data))
	return err == nil && ok
}

func describe(hs []Hunk) string {
	var b bytes.Buffer
	for i, h := range hs {
		if i > 0 {
			b.WriteString(", ")
		}
		if h.Count == 0 {
			fmt.Fprintf(&b, "%s inserts at line %d", h.Side, h.Start+1)
		} else {
			fmt.Fprintf(&b, "%s lines %d-%d", h.Side, h.Start+1, h.End())
		}
	}
	return b.String()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
