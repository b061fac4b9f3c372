package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitmove.dev/gitmove/internal/config"
	"gitmove.dev/gitmove/internal/output"
	"gitmove.dev/gitmove/internal/strategy"
	"gitmove.dev/gitmove/internal/sync"
)

func TestDemoRepositoryCoversEveryOutcome(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := Build(now)
	fetched := f.RemoteTip("origin/main")

	e := sync.NewEngine(f, config.Default(), output.Discard(),
		sync.WithClock(func() time.Time { return now }))

	names := make([]string, len(demoBranches))
	for i, b := range demoBranches {
		names[i] = b.Name
	}
	results, err := e.SyncAll(context.Background(), names, "main")
	require.NoError(t, err)

	type outcome struct {
		status   sync.Status
		strategy strategy.Strategy
	}
	got := map[string]outcome{}
	for _, r := range results {
		got[r.Branch] = outcome{r.Status, r.Strategy}
	}
	require.Equal(t, map[string]outcome{
		"feature/docs-typo":   {sync.StatusUpToDate, ""},
		"feature/metrics":     {sync.StatusSynchronized, strategy.Rebase},
		"feature/auth":        {sync.StatusSynchronized, strategy.Rebase},
		"feature/search":      {sync.StatusSynchronized, strategy.Merge},
		"feature/config-port": {sync.StatusConflictDetected, strategy.Rebase},
		"legacy/importer":     {sync.StatusSynchronized, strategy.Merge},
	}, got)

	require.NotEqual(t, fetched, f.RemoteTip("origin/main"), "the queued upstream commit is fetched")
	require.Equal(t, f.Tip("main"), f.Tip("feature/metrics"))
}

func TestNewDemoBackend(t *testing.T) {
	now := time.Now()
	require.IsType(t, &slowBackend{}, NewDemoBackend(now, true))

	fast := NewDemoBackend(now, false)
	branches, err := fast.LocalBranches(context.Background())
	require.NoError(t, err)
	require.Len(t, branches, len(demoBranches)+1)
}
