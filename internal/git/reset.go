package git

import (
	"context"
	"fmt"
)

// ResetHard moves the checked out branch and work tree to commit
func (b *realBackend) ResetHard(ctx context.Context, commit string) error {
	_, err := b.runner.Run(ctx, "reset", "--hard", "-q", commit)
	if err != nil {
		return fmt.Errorf("failed to hard reset to %s: %w", commit, err)
	}
	return b.reload()
}
