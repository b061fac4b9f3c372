package git_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitmove.dev/gitmove/internal/errors"
	"gitmove.dev/gitmove/internal/git"
	"gitmove.dev/gitmove/testhelpers"
)

// sharedFileSetup edits shared.txt on both main and feature, and adds one
// file on each side.
func sharedFileSetup(s *testhelpers.Scene) error {
	if err := s.Repo.CommitFiles("base", map[string]string{"shared.txt": "one\n"}); err != nil {
		return err
	}
	if err := s.Repo.CreateAndCheckoutBranch("feature"); err != nil {
		return err
	}
	if err := s.Repo.CommitFiles("feature edit", map[string]string{"shared.txt": "feature\n", "feature.txt": "f\n"}); err != nil {
		return err
	}
	if err := s.Repo.CheckoutBranch("main"); err != nil {
		return err
	}
	return s.Repo.CommitFiles("main edit", map[string]string{"shared.txt": "main\n", "main.txt": "m\n"})
}

func openBackend(t *testing.T, scene *testhelpers.Scene) git.Backend {
	t.Helper()
	b, err := git.NewBackend(scene.Dir)
	require.NoError(t, err)
	return b
}

func TestReads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	scene := testhelpers.NewScene(t, sharedFileSetup)
	b := openBackend(t, scene)

	t.Run("refs", func(t *testing.T) {
		main, err := b.ResolveRef(ctx, "main")
		require.NoError(t, err)
		require.Equal(t, testhelpers.Must(scene.Repo.GetRef("main")), main.Commit)
		require.False(t, main.Remote)

		_, err = b.ResolveRef(ctx, "missing")
		require.ErrorIs(t, err, errors.ErrRefNotFound)

		ok, err := b.BranchExists(ctx, "feature")
		require.NoError(t, err)
		require.True(t, ok)

		// revisions resolve but are not branches
		for _, rev := range []string{main.Commit, "main~1", "HEAD"} {
			_, err = b.ResolveRef(ctx, rev)
			require.NoError(t, err)
			ok, err = b.BranchExists(ctx, rev)
			require.NoError(t, err)
			require.False(t, ok, rev)
		}

		branches, err := b.LocalBranches(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"feature", "main"}, branches)
	})

	t.Run("history", func(t *testing.T) {
		base := testhelpers.Must(scene.Repo.GetRef("main~1"))
		parents, err := b.Parents(ctx, testhelpers.Must(scene.Repo.GetRef("main")))
		require.NoError(t, err)
		require.Equal(t, []string{base}, parents)

		when, err := b.CommitTime(ctx, base)
		require.NoError(t, err)
		require.False(t, when.IsZero())
	})

	t.Run("merge base and commits between", func(t *testing.T) {
		base := testhelpers.Must(scene.Repo.GetRef("main~1"))
		mainTip := testhelpers.Must(scene.Repo.GetRef("main"))
		featureTip := testhelpers.Must(scene.Repo.GetRef("feature"))

		bases, err := b.MergeBase(ctx, featureTip, mainTip)
		require.NoError(t, err)
		require.Equal(t, []string{base}, bases)

		ahead, err := b.CommitsBetween(ctx, mainTip, featureTip)
		require.NoError(t, err)
		require.Equal(t, []string{featureTip}, ahead)

		none, err := b.CommitsBetween(ctx, mainTip, base)
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("changed files", func(t *testing.T) {
		base := testhelpers.Must(scene.Repo.GetRef("main~1"))
		changes, err := b.ChangedFiles(ctx, base, testhelpers.Must(scene.Repo.GetRef("feature")))
		require.NoError(t, err)

		kinds := map[string]git.ChangeKind{}
		for _, c := range changes {
			kinds[c.BasePath()] = c.Kind
		}
		require.Equal(t, map[string]git.ChangeKind{
			"feature.txt": git.ChangeAdded,
			"shared.txt":  git.ChangeModified,
		}, kinds)

		for _, c := range changes {
			if c.To == "shared.txt" {
				content, err := b.ReadBlob(ctx, c.ToBlob)
				require.NoError(t, err)
				require.Equal(t, "feature\n", string(content))
			}
		}
	})

	t.Run("work tree", func(t *testing.T) {
		current, err := b.CurrentBranch(ctx)
		require.NoError(t, err)
		require.Equal(t, "main", current)

		dirty, err := b.IsDirty(ctx)
		require.NoError(t, err)
		require.False(t, dirty)
	})
}

func TestMutations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("merge conflict is reported and aborted", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, sharedFileSetup)
		b := openBackend(t, scene)
		require.NoError(t, b.Checkout(ctx, "feature"))
		before := testhelpers.TakeSnapshot(t, scene.Repo)

		_, err := b.Merge(ctx, "feature", "main", git.MergeOptions{NoFastForward: true})
		require.ErrorIs(t, err, errors.ErrMergeConflict)
		require.Contains(t, err.Error(), "shared.txt")
		require.True(t, scene.Repo.MergeInProgress())

		require.NoError(t, b.AbortMerge(ctx))
		testhelpers.ExpectRestored(t, scene.Repo, before)
	})

	t.Run("rebase conflict is reported and aborted", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, sharedFileSetup)
		b := openBackend(t, scene)
		require.NoError(t, b.Checkout(ctx, "feature"))

		_, err := b.Rebase(ctx, "feature", "main")
		require.ErrorIs(t, err, errors.ErrRebaseConflict)
		require.True(t, scene.Repo.RebaseInProgress())

		require.NoError(t, b.AbortRebase(ctx))
		require.False(t, scene.Repo.RebaseInProgress())
		current, err := b.CurrentBranch(ctx)
		require.NoError(t, err)
		require.Equal(t, "feature", current)
	})

	t.Run("an interrupted merge is not a conflict", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, sharedFileSetup)
		b := openBackend(t, scene)
		require.NoError(t, b.Checkout(ctx, "feature"))
		_, err := b.Merge(ctx, "feature", "main", git.MergeOptions{NoFastForward: true})
		require.ErrorIs(t, err, errors.ErrMergeConflict)

		// MERGE_HEAD is still present when the next attempt is cancelled
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = b.Merge(cancelled, "feature", "main", git.MergeOptions{NoFastForward: true})
		require.ErrorIs(t, err, context.Canceled)
		require.NotErrorIs(t, err, errors.ErrMergeConflict)
		require.True(t, scene.Repo.MergeInProgress())
	})

	t.Run("an interrupted rebase is not a conflict", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, sharedFileSetup)
		b := openBackend(t, scene)
		require.NoError(t, b.Checkout(ctx, "feature"))
		_, err := b.Rebase(ctx, "feature", "main")
		require.ErrorIs(t, err, errors.ErrRebaseConflict)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = b.Rebase(cancelled, "feature", "main")
		require.ErrorIs(t, err, context.Canceled)
		require.NotErrorIs(t, err, errors.ErrRebaseConflict)
		require.True(t, scene.Repo.RebaseInProgress())
	})

	t.Run("clean rebase moves the branch", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)
		b := openBackend(t, scene)
		require.NoError(t, b.Checkout(ctx, "feature"))

		head, err := b.Rebase(ctx, "feature", "main")
		require.NoError(t, err)
		require.Equal(t, testhelpers.Must(scene.Repo.GetRef("feature")), head)
		testhelpers.ExpectCommits(t, scene.Repo, "feature", []string{"feature work", "main work", "base"})
	})

	t.Run("fast-forward only refuses a merge commit", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)
		b := openBackend(t, scene)
		require.NoError(t, b.Checkout(ctx, "feature"))

		_, err := b.Merge(ctx, "feature", "main", git.MergeOptions{FastForwardOnly: true})
		require.Error(t, err)
		require.NotErrorIs(t, err, errors.ErrMergeConflict)
	})

	t.Run("reset and detached head", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)
		b := openBackend(t, scene)
		base := testhelpers.Must(scene.Repo.GetRef("main~1"))

		require.NoError(t, b.ResetHard(ctx, base))
		require.Equal(t, base, testhelpers.Must(scene.Repo.GetRef("main")))

		require.NoError(t, b.Checkout(ctx, base))
		current, err := b.CurrentBranch(ctx)
		require.NoError(t, err)
		require.Empty(t, current)
		head, err := b.Head(ctx)
		require.NoError(t, err)
		require.Equal(t, base, head)
	})
}

func TestResolveWhileReloading(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)
	b := openBackend(t, scene)
	mainTip := testhelpers.Must(scene.Repo.GetRef("main"))

	// ResetHard reopens the object database; run with -race
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 5 {
			if err := b.ResetHard(ctx, mainTip); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	for range 20 {
		ref, err := b.ResolveRef(ctx, "feature")
		require.NoError(t, err)
		require.NotEmpty(t, ref.Commit)
	}
	wg.Wait()
}

func TestStash(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	b := openBackend(t, scene)

	id, err := b.StashPush(ctx, "nothing")
	require.NoError(t, err)
	require.Empty(t, id)

	require.NoError(t, scene.Repo.WriteFile("notes.txt", "draft\n"))
	dirty, err := b.IsDirty(ctx)
	require.NoError(t, err)
	require.True(t, dirty)

	id, err = b.StashPush(ctx, "gitmove: test")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, 1, testhelpers.Must(scene.Repo.StashCount()))

	exists, err := b.StashExists(ctx, id)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, b.StashPop(ctx, id))
	require.Equal(t, "draft\n", testhelpers.Must(scene.Repo.ReadFile("notes.txt")))

	exists, err = b.StashExists(ctx, id)
	require.NoError(t, err)
	require.False(t, exists)
	require.Error(t, b.StashPop(ctx, id))
}

func TestRemotes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	_, err := scene.Repo.CreateBareRemote("origin")
	require.NoError(t, err)
	require.NoError(t, scene.Repo.PushBranch("origin", "main"))
	b := openBackend(t, scene)

	require.NoError(t, b.Fetch(ctx, "origin"))

	tracking, err := b.ResolveRef(ctx, "origin/main")
	require.NoError(t, err)
	require.True(t, tracking.Remote)

	remote, err := b.RemoteFor(ctx, tracking)
	require.NoError(t, err)
	require.Equal(t, "origin", remote)

	remote, err = b.RemoteFor(ctx, git.BranchRef{Name: "main"})
	require.NoError(t, err)
	require.Equal(t, "origin", remote)

	require.NoError(t, scene.Repo.CreateBranch("local-only"))
	remote, err = b.RemoteFor(ctx, git.BranchRef{Name: "local-only"})
	require.NoError(t, err)
	require.Empty(t, remote)

	require.Error(t, b.Fetch(ctx, "nowhere"))
}

func TestLock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	b := openBackend(t, scene)

	held, err := b.Lock(ctx, time.Second)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(b.GitDir(), git.LockFileName))
	require.NoError(t, err)

	_, err = git.AcquireFileLock(ctx, filepath.Join(b.GitDir(), git.LockFileName), 100*time.Millisecond)
	require.ErrorIs(t, err, errors.ErrTransient)

	require.NoError(t, held.Unlock())
	again, err := b.Lock(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}
