package git

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gitmoveerrors "gitmove.dev/gitmove/internal/errors"
)

// transientPatterns are stderr fragments git prints for failures that are
// worth retrying.
var transientPatterns = []string{
	"could not resolve host",
	"connection timed out",
	"connection refused",
	"connection reset",
	"operation timed out",
	"temporary failure",
	"early eof",
	"the remote end hung up unexpectedly",
	"rpc failed",
	"tls connection",
	"ssl_error",
	"unable to access",
	"could not read from remote repository",
}

// Fetch updates the remote-tracking refs of remote
func (b *realBackend) Fetch(ctx context.Context, remote string) error {
	_, err := b.runner.Run(ctx, "fetch", "--prune", "--quiet", remote)
	if err != nil {
		return classifyRemoteError("fetch "+remote, err)
	}
	return b.reload()
}

// classifyRemoteError wraps timeouts and network failures in a
// TransientGitError and leaves everything else as is.
func classifyRemoteError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return gitmoveerrors.NewTransientGitError(op, err)
	}
	var cmdErr *gitmoveerrors.GitCommandError
	if errors.As(err, &cmdErr) {
		stderr := strings.ToLower(cmdErr.Stderr)
		for _, pattern := range transientPatterns {
			if strings.Contains(stderr, pattern) {
				return gitmoveerrors.NewTransientGitError(op, err)
			}
		}
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// RemoteFor returns the remote a ref is fetched from: the remote part of a
// remote-tracking name, or the configured upstream of a local branch. It
// returns "" for purely local branches.
func (b *realBackend) RemoteFor(ctx context.Context, ref BranchRef) (string, error) {
	remotes, err := b.runner.RunLines(ctx, "remote")
	if err != nil {
		return "", fmt.Errorf("failed to list remotes: %w", err)
	}
	if len(remotes) == 0 {
		return "", nil
	}

	if ref.Remote {
		// Longest match first so "origin/x" never shadows "origin/x/y"
		sort.Slice(remotes, func(i, j int) bool { return len(remotes[i]) > len(remotes[j]) })
		for _, r := range remotes {
			if strings.HasPrefix(ref.Name, r+"/") {
				return r, nil
			}
		}
		return "", nil
	}

	upstream, err := b.runner.Run(ctx, "config", "--get", "branch."+ref.Name+".remote")
	if err != nil || upstream == "." {
		// git config exits 1 when the key is unset
		return "", nil
	}
	return upstream, nil
}
