package git

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
)

// goGitMu serialises go-git object access; its packfile readers are not
// safe for concurrent use.
var goGitMu sync.Mutex

// Repository wraps a go-git repository
type Repository struct {
	*git.Repository
	path string
}

// OpenRepository opens a git repository at the given path
func OpenRepository(path string) (*Repository, error) {
	// Resolve to absolute path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	return &Repository{
		Repository: repo,
		path:       absPath,
	}, nil
}

// Option configures the real backend
type Option func(*realBackend)

// WithCommandTimeout sets the timeout applied to git CLI calls that carry no
// deadline of their own.
func WithCommandTimeout(d time.Duration) Option {
	return func(b *realBackend) {
		b.runner = NewCommandRunner(b.runner.WorkingDir(), d)
	}
}

// realBackend implements Backend with go-git reads and git CLI writes
type realBackend struct {
	repo   *Repository
	runner *CommandRunner
	gitDir string
	root   string
}

// NewBackend opens the repository containing dir.
func NewBackend(dir string, opts ...Option) (Backend, error) {
	repo, err := OpenRepository(dir)
	if err != nil {
		return nil, err
	}

	b := &realBackend{
		repo:   repo,
		runner: NewCommandRunner(repo.path, DefaultCommandTimeout),
	}
	for _, opt := range opts {
		opt(b)
	}

	ctx := context.Background()
	root, err := b.runner.Run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git work tree: %w", err)
	}
	gitDir, err := b.runner.Run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to locate git directory: %w", err)
	}
	b.root = root
	b.gitDir = gitDir
	b.runner = NewCommandRunner(root, b.runner.timeout)

	return b, nil
}

// GitDir returns the absolute path of the repository's git directory
func (b *realBackend) GitDir() string {
	return b.gitDir
}

// RepoRoot returns the top-level directory of the work tree containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	return NewCommandRunner(dir, 0).Run(ctx, "rev-parse", "--show-toplevel")
}
