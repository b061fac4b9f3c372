package errors_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"gitmove.dev/gitmove/internal/errors"
)

type paths []string

func (p paths) ConflictingPaths() []string { return p }

func TestSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"ref not found", errors.NewRefNotFoundError("x", nil), errors.ErrRefNotFound},
		{"no common ancestor", errors.NewNoCommonAncestorError("a", "b"), errors.ErrNoCommonAncestor},
		{"divergence", errors.NewDivergenceComputationError("a", "b", "abc", nil), errors.ErrDivergence},
		{"conflict detected", errors.NewConflictDetectedError("a", "b", nil), errors.ErrConflictDetected},
		{"merge conflict", errors.NewMergeConflictError("a", "b", nil), errors.ErrMergeConflict},
		{"rebase conflict", errors.NewRebaseConflictError("a", "b", "", nil), errors.ErrRebaseConflict},
		{"checkpoint", errors.NewCheckpointConflictError("sync/a"), errors.ErrCheckpointConflict},
		{"recovery", errors.NewRecoveryFailedError("sync", "a", "abc", "", nil, nil), errors.ErrRecoveryFailed},
		{"transient", errors.NewTransientGitError("fetch", nil), errors.ErrTransient},
		{"sync", errors.NewSyncError("a", "b", "MERGE", true, nil), errors.ErrSyncFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.err, tc.sentinel)
			require.ErrorIs(t, fmt.Errorf("wrapped: %w", tc.err), tc.sentinel)
		})
	}
}

func TestConflictDetectedErrorNamesPaths(t *testing.T) {
	err := errors.NewConflictDetectedError("feature", "main", paths{"a.txt", "b.txt"})
	require.EqualError(t, err, "integrating main into feature would conflict: a.txt, b.txt")
}

func TestRecoveryFailedError(t *testing.T) {
	cause := errors.NewGitCommandError("git", []string{"reset", "--hard"}, "", "fatal: locked", nil)
	original := errors.NewMergeConflictError("feature", "main", []string{"a.txt"})
	err := errors.NewRecoveryFailedError("sync/feature", "feature", "abc123", "def456", cause, original)

	require.Equal(t, []string{
		"git merge --abort || git rebase --abort",
		"git checkout -f feature",
		"git reset --hard abc123",
		"git stash apply def456",
	}, err.ManualSteps())
	require.Contains(t, err.Error(), "manual intervention")
	require.ErrorIs(t, err, errors.ErrMergeConflict)

	var cmdErr *errors.GitCommandError
	require.True(t, errors.As(err, &cmdErr))
	require.Equal(t, "fatal: locked", cmdErr.Stderr)

	detached := errors.NewRecoveryFailedError("sync/feature", "", "abc123", "", nil, nil)
	require.Contains(t, detached.ManualSteps(), "git checkout -f --detach abc123")
}

func TestSyncError(t *testing.T) {
	err := errors.NewSyncError("feature", "main", "REBASE", true, context.Canceled)
	require.EqualError(t, err, "failed to rebase main into feature: context canceled (repository restored to its previous state)")
	require.ErrorIs(t, err, context.Canceled)

	err = errors.NewSyncError("feature", "main", "", false, nil)
	require.EqualError(t, err, "failed to sync feature with main (repository needs manual intervention)")
}

func TestTransientUnwraps(t *testing.T) {
	err := errors.NewTransientGitError("fetch origin", context.DeadlineExceeded)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, errors.Is(err, errors.ErrTransient))
	require.Equal(t, "fetch origin failed temporarily: context deadline exceeded", err.Error())
}
