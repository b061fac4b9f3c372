package demo

import (
	"context"
	"time"

	"gitmove.dev/gitmove/internal/git"
	"gitmove.dev/gitmove/internal/git/gitfake"
	"gitmove.dev/gitmove/internal/runtime"
)

// Delay constants for simulating real operations
const (
	delayShort = 150 * time.Millisecond
	delayLong  = 500 * time.Millisecond
)

// simulateDelay sleeps for base unless ctx ends first
func simulateDelay(ctx context.Context, base time.Duration) {
	jitter := time.Duration(base.Nanoseconds()%100) * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(base + jitter):
	}
}

func init() {
	// Register the demo backend factory with runtime package
	runtime.DemoBackendFactory = func() git.Backend {
		return NewDemoBackend(time.Now(), true)
	}
}

// NewDemoBackend builds the demo repository with commits dated relative to
// now. With slow set, network and history rewriting operations are delayed
// like their real counterparts.
func NewDemoBackend(now time.Time, slow bool) git.Backend {
	f := Build(now)
	if !slow {
		return f
	}
	return &slowBackend{Fake: f}
}

// Build creates the demo history. main also exists as origin/main, with one
// more commit waiting to be fetched.
func Build(now time.Time) *gitfake.Fake {
	f := gitfake.New()

	oldest := 0
	for _, b := range demoBranches {
		oldest = max(oldest, b.AgeDays)
	}
	start := now.AddDate(0, 0, -oldest-1)

	tips := make([]string, len(mainCommits)+1)
	for i, files := range mainCommits {
		f.SetClock(start.Add(time.Duration(i) * time.Hour))
		tips[i+1] = f.Commit("main", "main change", files)
	}

	for _, b := range demoBranches {
		f.Branch(b.Name, tips[b.Base])
		for i, files := range b.Commits {
			when := now.AddDate(0, 0, -b.AgeDays).Add(time.Duration(i) * time.Minute)
			f.CommitAt(b.Name, "work on "+b.Name, when, files)
		}
	}

	f.SetRemoteBranch("origin/main", "main")
	f.SetUpstream("main", "origin")
	f.SetClock(now.Add(-time.Hour))
	upstream := f.Commit("main", "upstream change", map[string]string{"CHANGELOG.md": "## next\n"})
	f.QueueFetch("origin", "main", upstream)
	// main itself lags behind origin until the next fetch
	f.Branch("main", tips[len(mainCommits)])
	return f
}

// slowBackend delays the operations that are slow in a real repository
type slowBackend struct {
	*gitfake.Fake
}

func (b *slowBackend) Fetch(ctx context.Context, remote string) error {
	simulateDelay(ctx, delayLong)
	return b.Fake.Fetch(ctx, remote)
}

func (b *slowBackend) Merge(ctx context.Context, branch, target string, opts git.MergeOptions) (string, error) {
	simulateDelay(ctx, delayShort)
	return b.Fake.Merge(ctx, branch, target, opts)
}

func (b *slowBackend) Rebase(ctx context.Context, branch, onto string) (string, error) {
	simulateDelay(ctx, delayShort)
	return b.Fake.Rebase(ctx, branch, onto)
}
