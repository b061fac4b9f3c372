package git

import (
	"context"
	"errors"
	"fmt"

	gitmoveerrors "gitmove.dev/gitmove/internal/errors"
)

// nonInteractiveEnv keeps git from opening an editor for merge messages
var nonInteractiveEnv = []string{"GIT_EDITOR=true", "GIT_MERGE_AUTOEDIT=no"}

// Merge merges target into the checked out branch, which the caller has
// already switched to. branch names it for error reporting. On conflicts the
// merge is left in progress and a MergeConflictError is returned.
func (b *realBackend) Merge(ctx context.Context, branch, target string, opts MergeOptions) (string, error) {
	args := []string{"merge", "--no-edit"}
	switch {
	case opts.FastForwardOnly:
		args = append(args, "--ff-only")
	case opts.NoFastForward:
		args = append(args, "--no-ff")
	}
	if opts.Message != "" {
		args = append(args, "-m", opts.Message)
	}
	args = append(args, target)

	_, err := b.runner.RunWithEnv(ctx, nonInteractiveEnv, args...)
	if reloadErr := b.reload(); reloadErr != nil && err == nil {
		err = reloadErr
	}
	if err != nil {
		if interrupted(ctx, err) {
			return "", fmt.Errorf("merge of %s into %s interrupted: %w", target, branch, err)
		}
		if b.isMergeInProgress() {
			paths := b.unmergedFiles(context.WithoutCancel(ctx))
			return "", gitmoveerrors.NewMergeConflictError(branch, target, paths)
		}
		return "", fmt.Errorf("failed to merge %s into %s: %w", target, branch, err)
	}

	return b.Head(ctx)
}

// interrupted reports whether err came from cancellation or a timeout. git
// leaves MERGE_HEAD or a rebase directory behind when it is killed, so this
// is checked before looking for conflicts.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// AbortMerge aborts an in-progress merge. It is a no-op when none is running.
func (b *realBackend) AbortMerge(ctx context.Context) error {
	if !b.isMergeInProgress() {
		return nil
	}
	_, err := b.runner.Run(ctx, "merge", "--abort")
	if err != nil {
		return fmt.Errorf("merge abort failed: %w", err)
	}
	return nil
}
