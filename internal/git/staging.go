package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// IsDirty reports tracked modifications, staged changes or untracked files.
// Ignored files do not count.
func (b *realBackend) IsDirty(ctx context.Context) (bool, error) {
	output, err := b.runner.Run(ctx, "--no-optional-locks", "status", "--porcelain", "--untracked-files=normal")
	if err != nil {
		return false, fmt.Errorf("failed to read work tree status: %w", err)
	}
	return output != "", nil
}

// unmergedFiles lists paths left with conflict markers in the index
func (b *realBackend) unmergedFiles(ctx context.Context) []string {
	files, err := b.runner.RunLines(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil
	}
	return files
}

// isMergeInProgress checks for MERGE_HEAD in the git directory
func (b *realBackend) isMergeInProgress() bool {
	_, err := os.Stat(filepath.Join(b.gitDir, "MERGE_HEAD"))
	return err == nil
}

// isRebaseInProgress checks for .git/rebase-merge or .git/rebase-apply directories.
// This is more reliable than checking REBASE_HEAD which can persist after rebase
func (b *realBackend) isRebaseInProgress() bool {
	if _, err := os.Stat(filepath.Join(b.gitDir, "rebase-merge")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(b.gitDir, "rebase-apply")); err == nil {
		return true
	}
	return false
}
