package gitfake_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"gitmove.dev/gitmove/internal/errors"
	"gitmove.dev/gitmove/internal/git"
	"gitmove.dev/gitmove/internal/git/gitfake"
)

func TestRebaseReplaysLocalCommits(t *testing.T) {
	ctx := context.Background()
	f := gitfake.New()
	f.Commit("main", "base", map[string]string{"a.txt": "a\n"})
	f.Branch("feature", "main")
	f.Commit("feature", "feature", map[string]string{"f.txt": "f\n"})
	f.Commit("main", "main", map[string]string{"m.txt": "m\n"})

	require.NoError(t, f.Checkout(ctx, "feature"))
	tip, err := f.Rebase(ctx, "feature", "main")
	require.NoError(t, err)
	require.Equal(t, tip, f.Tip("feature"))
	require.Equal(t, []string{f.Tip("main")}, f.ParentsOf(tip))

	content, ok := f.FileAt(tip, "m.txt")
	require.True(t, ok)
	require.Equal(t, "m\n", content)
	content, ok = f.FileAt(tip, "f.txt")
	require.True(t, ok)
	require.Equal(t, "f\n", content)
}

func TestMergeModes(t *testing.T) {
	ctx := context.Background()
	setup := func() *gitfake.Fake {
		f := gitfake.New()
		f.Commit("main", "base", map[string]string{"a.txt": "a\n"})
		f.Branch("feature", "main")
		f.Commit("main", "main", map[string]string{"m.txt": "m\n"})
		return f
	}

	t.Run("fast-forward", func(t *testing.T) {
		f := setup()
		require.NoError(t, f.Checkout(ctx, "feature"))
		id, err := f.Merge(ctx, "feature", "main", git.MergeOptions{FastForwardOnly: true})
		require.NoError(t, err)
		require.Equal(t, f.Tip("main"), id)
	})

	t.Run("no fast-forward", func(t *testing.T) {
		f := setup()
		require.NoError(t, f.Checkout(ctx, "feature"))
		id, err := f.Merge(ctx, "feature", "main", git.MergeOptions{NoFastForward: true})
		require.NoError(t, err)
		require.Len(t, f.ParentsOf(id), 2)
	})

	t.Run("scripted conflict", func(t *testing.T) {
		f := setup()
		require.NoError(t, f.Checkout(ctx, "feature"))
		f.ConflictOnNextApply("a.txt")
		_, err := f.Merge(ctx, "feature", "main", git.MergeOptions{})
		require.ErrorIs(t, err, errors.ErrMergeConflict)
		require.Equal(t, "merge", f.InProgress())

		require.NoError(t, f.AbortMerge(ctx))
		require.Empty(t, f.InProgress())
	})
}

func TestStashAndWorktree(t *testing.T) {
	ctx := context.Background()
	f := gitfake.New()
	f.Commit("main", "base", map[string]string{"a.txt": "a\n"})
	f.Branch("feature", "main")
	f.WriteWorktree("notes.txt", "draft\n")

	dirty, err := f.IsDirty(ctx)
	require.NoError(t, err)
	require.True(t, dirty)
	require.Error(t, f.Checkout(ctx, "feature"))

	id, err := f.StashPush(ctx, "wip")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, 1, f.StashLen())
	require.NoError(t, f.Checkout(ctx, "feature"))

	require.NoError(t, f.StashPop(ctx, id))
	require.Equal(t, map[string]string{"notes.txt": "draft\n"}, f.Worktree())
	exists, err := f.StashExists(ctx, id)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestScriptedFailures(t *testing.T) {
	ctx := context.Background()
	f := gitfake.New()
	f.Commit("main", "base", map[string]string{"a.txt": "a\n"})
	f.SetRemoteBranch("origin/main", "main")
	f.SetUpstream("main", "origin")
	next := f.Commit("main", "upstream", map[string]string{"b.txt": "b\n"})
	f.QueueFetch("origin", "main", next)

	boom := stderrors.New("boom")
	f.FailNext("checkout", boom)
	require.ErrorIs(t, f.Checkout(ctx, "main~0"), boom)

	f.FailFetch(errors.NewTransientGitError("fetch origin", nil))
	require.ErrorIs(t, f.Fetch(ctx, "origin"), errors.ErrTransient)
	require.NotEqual(t, next, f.RemoteTip("origin/main"))

	require.NoError(t, f.Fetch(ctx, "origin"))
	require.Equal(t, next, f.RemoteTip("origin/main"))
	require.Equal(t, []string{"checkout main~0", "fetch origin", "fetch origin"}, f.Ops())
}
