// Package divergence measures how far two branches have drifted apart.
package divergence

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dustin/go-humanize/english"

	"gitmove.dev/gitmove/internal/errors"
	"gitmove.dev/gitmove/internal/git"
)

// Commit is a commit id with its committer time
type Commit struct {
	ID   string
	When time.Time
}

// Divergence describes the commits each side has that the other lacks
type Divergence struct {
	Ahead  int
	Behind int
	// MergeBases are the best common ancestors; more than one after criss-cross merges.
	MergeBases []string
	// LocalOnly and TargetOnly are sorted oldest first.
	LocalOnly  []Commit
	TargetOnly []Commit
}

// MergeBase returns the first merge base, or "" when there is none
func (d Divergence) MergeBase() string {
	if len(d.MergeBases) == 0 {
		return ""
	}
	return d.MergeBases[0]
}

// OldestLocal returns the time of the oldest local-only commit
func (d Divergence) OldestLocal() (time.Time, bool) {
	if len(d.LocalOnly) == 0 {
		return time.Time{}, false
	}
	return d.LocalOnly[0].When, true
}

// SyncStatus is a fresh view of a branch relative to its target
type SyncStatus struct {
	Branch    string
	Target    string
	Ahead     int
	Behind    int
	IsSynced  bool
	Summary   string
	MergeBase string
}

// Analyzer computes divergence over a git.Backend
type Analyzer struct {
	backend git.Backend
	logger  *slog.Logger
}

// NewAnalyzer creates an Analyzer
func NewAnalyzer(backend git.Backend, logger *slog.Logger) *Analyzer {
	return &Analyzer{backend: backend, logger: logger}
}

// Compute counts the commits unique to each side. ahead is
// |reach(local) \ reach(target)| and behind the reverse, which stays correct
// when the histories contain merge commits. Only the divergent part of the
// graph is read.
func (a *Analyzer) Compute(ctx context.Context, local, target git.BranchRef) (Divergence, error) {
	if local.Commit == target.Commit {
		return Divergence{MergeBases: []string{local.Commit}}, nil
	}
	if err := ctx.Err(); err != nil {
		return Divergence{}, errors.NewDivergenceComputationError(local.Name, target.Name, "", err)
	}

	bases, err := a.backend.MergeBase(ctx, local.Commit, target.Commit)
	if err != nil {
		return Divergence{}, errors.NewDivergenceComputationError(local.Name, target.Name, "", err)
	}
	if len(bases) == 0 {
		return Divergence{}, errors.NewNoCommonAncestorError(local.Name, target.Name)
	}

	localOnly, err := a.backend.CommitsBetween(ctx, target.Commit, local.Commit)
	if err != nil {
		return Divergence{}, errors.NewDivergenceComputationError(local.Name, target.Name, local.Commit, err)
	}
	targetOnly, err := a.backend.CommitsBetween(ctx, local.Commit, target.Commit)
	if err != nil {
		return Divergence{}, errors.NewDivergenceComputationError(local.Name, target.Name, target.Commit, err)
	}

	div := Divergence{
		Ahead:      len(localOnly),
		Behind:     len(targetOnly),
		MergeBases: bases,
	}
	if div.LocalOnly, err = a.stamp(ctx, local, target, localOnly); err != nil {
		return Divergence{}, err
	}
	if div.TargetOnly, err = a.stamp(ctx, local, target, targetOnly); err != nil {
		return Divergence{}, err
	}

	a.logger.Debug("computed divergence",
		"branch", local.Name, "target", target.Name,
		"ahead", div.Ahead, "behind", div.Behind, "merge_bases", len(div.MergeBases))
	return div, nil
}

func (a *Analyzer) stamp(ctx context.Context, local, target git.BranchRef, ids []string) ([]Commit, error) {
	commits := make([]Commit, 0, len(ids))
	for _, id := range ids {
		when, err := a.backend.CommitTime(ctx, id)
		if err != nil {
			return nil, errors.NewDivergenceComputationError(local.Name, target.Name, id, err)
		}
		commits = append(commits, Commit{ID: id, When: when})
	}
	sort.Slice(commits, func(i, j int) bool {
		if !commits[i].When.Equal(commits[j].When) {
			return commits[i].When.Before(commits[j].When)
		}
		return commits[i].ID < commits[j].ID
	})
	return commits, nil
}

// Status resolves both names and returns a SyncStatus. A branch compared with
// itself is synced without walking any history.
func (a *Analyzer) Status(ctx context.Context, branch, target string) (SyncStatus, error) {
	status := SyncStatus{Branch: branch, Target: target}

	local, err := a.backend.ResolveRef(ctx, branch)
	if err != nil {
		return status, err
	}
	if branch == target {
		status.IsSynced = true
		status.MergeBase = local.Commit
		status.Summary = Summarize(branch, target, 0, 0)
		return status, nil
	}
	remote, err := a.backend.ResolveRef(ctx, target)
	if err != nil {
		return status, err
	}

	div, err := a.Compute(ctx, local, remote)
	if err != nil {
		return status, err
	}
	return StatusOf(branch, target, div), nil
}

// StatusOf turns a computed Divergence into a SyncStatus
func StatusOf(branch, target string, div Divergence) SyncStatus {
	return SyncStatus{
		Branch:    branch,
		Target:    target,
		Ahead:     div.Ahead,
		Behind:    div.Behind,
		IsSynced:  div.Ahead == 0 && div.Behind == 0,
		Summary:   Summarize(branch, target, div.Ahead, div.Behind),
		MergeBase: div.MergeBase(),
	}
}

// Summarize describes a divergence in one sentence
func Summarize(branch, target string, ahead, behind int) string {
	switch {
	case ahead == 0 && behind == 0:
		return fmt.Sprintf("%s is up to date with %s", branch, target)
	case ahead == 0:
		return fmt.Sprintf("%s is behind %s by %s", branch, target, english.Plural(behind, "commit", ""))
	case behind == 0:
		return fmt.Sprintf("%s is ahead of %s by %s", branch, target, english.Plural(ahead, "commit", ""))
	default:
		return fmt.Sprintf("%s is behind %s by %s and ahead by %s",
			branch, target, english.Plural(behind, "commit", ""), english.Plural(ahead, "commit", ""))
	}
}
