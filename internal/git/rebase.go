package git

import (
	"context"
	"fmt"

	gitmoveerrors "gitmove.dev/gitmove/internal/errors"
)

// Rebase replays the checked out branch onto onto. The caller has already
// switched to branch. On conflicts the rebase is left in progress and a
// RebaseConflictError naming the stopped commit is returned.
func (b *realBackend) Rebase(ctx context.Context, branch, onto string) (string, error) {
	_, err := b.runner.RunWithEnv(ctx, nonInteractiveEnv, "-c", "core.editor=true", "rebase", onto)
	if reloadErr := b.reload(); reloadErr != nil && err == nil {
		err = reloadErr
	}
	if err != nil {
		if interrupted(ctx, err) {
			return "", fmt.Errorf("rebase of %s onto %s interrupted: %w", branch, onto, err)
		}
		// Check if rebase is in progress (conflict)
		if b.isRebaseInProgress() {
			detached := context.WithoutCancel(ctx)
			stopped, _ := b.runner.Run(detached, "rev-parse", "-q", "--verify", "REBASE_HEAD")
			paths := b.unmergedFiles(detached)
			return "", gitmoveerrors.NewRebaseConflictError(branch, onto, stopped, paths)
		}
		return "", fmt.Errorf("failed to rebase %s onto %s: %w", branch, onto, err)
	}

	return b.Head(ctx)
}

// AbortRebase aborts an in-progress rebase. It is a no-op when none is running.
func (b *realBackend) AbortRebase(ctx context.Context) error {
	if !b.isRebaseInProgress() {
		return nil
	}
	_, err := b.runner.Run(ctx, "rebase", "--abort")
	if err != nil {
		return fmt.Errorf("rebase abort failed: %w", err)
	}
	return nil
}
