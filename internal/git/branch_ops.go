package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Checkout checks out a branch, or detaches HEAD at a commit
func (b *realBackend) Checkout(ctx context.Context, ref string) error {
	_, err := b.runner.Run(ctx, "checkout", "-q", ref)
	if err != nil {
		return fmt.Errorf("failed to checkout %s: %w", ref, err)
	}
	return nil
}

// StashPush stashes tracked and untracked changes and returns the stash
// commit id. It returns "" when there was nothing to stash.
func (b *realBackend) StashPush(ctx context.Context, message string) (string, error) {
	before := b.stashTip(ctx)

	args := []string{"stash", "push", "--include-untracked"}
	if message != "" {
		args = append(args, "-m", message)
	}
	if _, err := b.runner.Run(ctx, args...); err != nil {
		return "", fmt.Errorf("stash push failed: %w", err)
	}

	after := b.stashTip(ctx)
	if after == "" || after == before {
		return "", nil
	}
	return after, nil
}

// StashPop applies and drops the stash entry whose commit id is id, wherever
// it sits in the stash list.
func (b *realBackend) StashPop(ctx context.Context, id string) error {
	index, err := b.stashIndex(ctx, id)
	if err != nil {
		return err
	}
	if index < 0 {
		return fmt.Errorf("stash %s not found", id)
	}
	entry := "stash@{" + strconv.Itoa(index) + "}"
	if _, err := b.runner.Run(ctx, "stash", "pop", "-q", "--index", entry); err == nil {
		return nil
	}
	// Staged state that no longer applies cleanly is restored unstaged.
	if _, err := b.runner.Run(ctx, "stash", "pop", "-q", entry); err != nil {
		return fmt.Errorf("stash pop failed: %w", err)
	}
	return nil
}

// StashExists reports whether id is still in the stash list
func (b *realBackend) StashExists(ctx context.Context, id string) (bool, error) {
	index, err := b.stashIndex(ctx, id)
	if err != nil {
		return false, err
	}
	return index >= 0, nil
}

func (b *realBackend) stashTip(ctx context.Context) string {
	tip, err := b.runner.Run(ctx, "rev-parse", "-q", "--verify", "refs/stash")
	if err != nil {
		return ""
	}
	return tip
}

func (b *realBackend) stashIndex(ctx context.Context, id string) (int, error) {
	ids, err := b.runner.RunLines(ctx, "stash", "list", "--format=%H")
	if err != nil {
		return -1, fmt.Errorf("failed to list stashes: %w", err)
	}
	for i, s := range ids {
		if strings.TrimSpace(s) == id {
			return i, nil
		}
	}
	return -1, nil
}
