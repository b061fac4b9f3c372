package git

import (
	"context"
	"time"
)

// BranchRef is a resolved snapshot of a branch. Re-resolve to observe moves.
type BranchRef struct {
	Name   string
	Commit string
	// Remote is true for remote-tracking refs such as origin/main.
	Remote bool
}

// ChangeKind describes how a path changed between two trees
type ChangeKind int

const (
	// ChangeAdded is a path that only exists in the newer tree
	ChangeAdded ChangeKind = iota + 1
	// ChangeModified is a path whose content changed
	ChangeModified
	// ChangeDeleted is a path that only exists in the older tree
	ChangeDeleted
	// ChangeRenamed is a path moved to a new name, possibly with edits
	ChangeRenamed
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	case ChangeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileChange is one entry of a tree-to-tree diff. From is empty for
// additions and To is empty for deletions; the blob ids follow the same rule.
type FileChange struct {
	Kind     ChangeKind
	From     string
	To       string
	FromBlob string
	ToBlob   string
}

// BasePath is the path the change starts from in the older tree, or the new
// path for additions.
func (c FileChange) BasePath() string {
	if c.From != "" {
		return c.From
	}
	return c.To
}

// MergeOptions controls how Merge integrates the target
type MergeOptions struct {
	// FastForwardOnly refuses to create a merge commit.
	FastForwardOnly bool
	// NoFastForward always creates a merge commit.
	NoFastForward bool
	Message       string
}

// Lock is a held repository lock
type Lock interface {
	Unlock() error
}

// Backend is the set of repository operations gitmove needs. The real
// implementation reads objects through go-git and mutates through the git
// CLI; gitfake provides an in-memory one for tests.
type Backend interface {
	// Refs and history
	ResolveRef(ctx context.Context, name string) (BranchRef, error)
	BranchExists(ctx context.Context, name string) (bool, error)
	LocalBranches(ctx context.Context) ([]string, error)
	Parents(ctx context.Context, commit string) ([]string, error)
	// MergeBase returns the best common ancestors of a and b, sorted; more
	// than one after criss-cross merges and none for unrelated histories.
	MergeBase(ctx context.Context, a, b string) ([]string, error)
	// CommitsBetween lists the commits reachable from head but not from
	// base (base..head), oldest first.
	CommitsBetween(ctx context.Context, base, head string) ([]string, error)
	CommitTime(ctx context.Context, commit string) (time.Time, error)

	// Object database
	ChangedFiles(ctx context.Context, from, to string) ([]FileChange, error)
	ReadBlob(ctx context.Context, blob string) ([]byte, error)

	// Worktree state
	CurrentBranch(ctx context.Context) (string, error)
	Head(ctx context.Context) (string, error)
	IsDirty(ctx context.Context) (bool, error)

	// Remotes
	Fetch(ctx context.Context, remote string) error
	RemoteFor(ctx context.Context, ref BranchRef) (string, error)

	// Mutations
	Checkout(ctx context.Context, ref string) error
	Merge(ctx context.Context, branch, target string, opts MergeOptions) (string, error)
	Rebase(ctx context.Context, branch, onto string) (string, error)
	AbortMerge(ctx context.Context) error
	AbortRebase(ctx context.Context) error
	ResetHard(ctx context.Context, commit string) error

	// Stash
	StashPush(ctx context.Context, message string) (string, error)
	StashPop(ctx context.Context, id string) error
	StashExists(ctx context.Context, id string) (bool, error)

	// Locking
	GitDir() string
	Lock(ctx context.Context, timeout time.Duration) (Lock, error)
}
