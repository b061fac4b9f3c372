package git

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	gitmoveerrors "gitmove.dev/gitmove/internal/errors"
)

// lookupBranch resolves ref as a local or remote-tracking branch. The
// returned name is the normalised branch name and remote reports whether it
// resolved to a remote-tracking ref. Callers hold goGitMu.
func lookupBranch(repo *Repository, ref string) (hash plumbing.Hash, name string, remote bool, ok bool) {
	// 1. Try as a full branch reference name
	if strings.HasPrefix(ref, "refs/") {
		refName := plumbing.ReferenceName(ref)
		if refName.IsBranch() || refName.IsRemote() {
			if r, err := repo.Reference(refName, true); err == nil {
				return r.Hash(), r.Name().Short(), r.Name().IsRemote(), true
			}
		}
	}

	// 2. Try as a local branch
	if r, err := repo.Reference(plumbing.NewBranchReferenceName(ref), true); err == nil {
		return r.Hash(), ref, false, true
	}

	// 3. Try as a remote-tracking branch spelled remote/branch
	if r, err := repo.Reference(plumbing.ReferenceName("refs/remotes/"+ref), true); err == nil {
		return r.Hash(), ref, true, true
	}

	// 4. Try as a branch that only exists on origin
	if r, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", ref), true); err == nil {
		return r.Hash(), "origin/" + ref, true, true
	}

	return plumbing.ZeroHash, "", false, false
}

// resolveRefHash resolves a ref (branch name, SHA, or ref path) to a hash.
func (b *realBackend) resolveRefHash(ref string) (hash plumbing.Hash, name string, remote bool, err error) {
	// Synchronize go-git operations to prevent concurrent packfile access.
	// b.repo is swapped by reload under the same lock.
	goGitMu.Lock()
	defer goGitMu.Unlock()

	if h, short, isRemote, ok := lookupBranch(b.repo, ref); ok {
		return h, short, isRemote, nil
	}

	// 5. Try ResolveRevision (handles SHAs, tags and expressions like HEAD~1)
	h, err := b.repo.ResolveRevision(plumbing.Revision(ref))
	if err == nil {
		return *h, ref, false, nil
	}

	return plumbing.ZeroHash, "", false, fmt.Errorf("failed to resolve ref %s: %w", ref, err)
}

// ResolveRef resolves a branch name or revision to a snapshot
func (b *realBackend) ResolveRef(ctx context.Context, name string) (BranchRef, error) {
	if err := ctx.Err(); err != nil {
		return BranchRef{}, err
	}
	hash, short, remote, err := b.resolveRefHash(name)
	if err != nil {
		return BranchRef{}, gitmoveerrors.NewRefNotFoundError(name, err)
	}
	return BranchRef{Name: short, Commit: hash.String(), Remote: remote}, nil
}

// BranchExists reports whether name is a local or remote-tracking branch.
// Commit ids, tags and revision expressions are not branches.
func (b *realBackend) BranchExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	goGitMu.Lock()
	defer goGitMu.Unlock()

	_, _, _, ok := lookupBranch(b.repo, name)
	return ok, nil
}

// MergeBase returns the best common ancestors of a and c
func (b *realBackend) MergeBase(ctx context.Context, a, c string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Synchronize go-git operations to prevent concurrent packfile access
	goGitMu.Lock()
	defer goGitMu.Unlock()

	first, err := b.repo.CommitObject(plumbing.NewHash(a))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", a, err)
	}
	second, err := b.repo.CommitObject(plumbing.NewHash(c))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", c, err)
	}

	bases, err := first.MergeBase(second)
	if err != nil {
		return nil, fmt.Errorf("failed to find merge base: %w", err)
	}
	ids := make([]string, 0, len(bases))
	for _, base := range bases {
		ids = append(ids, base.Hash.String())
	}
	sort.Strings(ids)
	return ids, nil
}

// CommitsBetween lists base..head oldest first. rev-list stops walking once
// only commits reachable from base remain queued, so the cost follows the
// size of the divergence rather than the size of the history.
func (b *realBackend) CommitsBetween(ctx context.Context, base, head string) ([]string, error) {
	return b.runner.RunLines(ctx, "rev-list", "--reverse", "--topo-order", head, "^"+base)
}

// Parents returns the parent commit ids of commit, first parent first
func (b *realBackend) Parents(ctx context.Context, commit string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Synchronize go-git operations to prevent concurrent packfile access
	goGitMu.Lock()
	defer goGitMu.Unlock()

	c, err := b.repo.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", commit, err)
	}

	parents := make([]string, 0, len(c.ParentHashes))
	for _, h := range c.ParentHashes {
		parents = append(parents, h.String())
	}
	return parents, nil
}

// CommitTime returns the committer date of commit
func (b *realBackend) CommitTime(ctx context.Context, commit string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	// Synchronize go-git operations to prevent concurrent packfile access
	goGitMu.Lock()
	defer goGitMu.Unlock()

	c, err := b.repo.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get commit %s: %w", commit, err)
	}
	return c.Committer.When, nil
}

// CurrentBranch returns the checked out branch, or "" when HEAD is detached
func (b *realBackend) CurrentBranch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	goGitMu.Lock()
	defer goGitMu.Unlock()

	head, err := b.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", nil
	}
	return head.Target().Short(), nil
}

// Head returns the commit HEAD points at
func (b *realBackend) Head(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	goGitMu.Lock()
	defer goGitMu.Unlock()

	head, err := b.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// reload reopens the object database so packfiles written by the git CLI
// become visible to go-git.
func (b *realBackend) reload() error {
	goGitMu.Lock()
	defer goGitMu.Unlock()

	repo, err := OpenRepository(b.root)
	if err != nil {
		return err
	}
	b.repo = repo
	return nil
}
