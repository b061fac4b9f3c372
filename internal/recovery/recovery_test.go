package recovery_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gitmove.dev/gitmove/internal/errors"
	"gitmove.dev/gitmove/internal/git"
	"gitmove.dev/gitmove/internal/git/gitfake"
	"gitmove.dev/gitmove/internal/output"
	"gitmove.dev/gitmove/internal/recovery"
	"gitmove.dev/gitmove/testhelpers"
)

var errBoom = stderrors.New("boom")

func countOps(f *gitfake.Fake, prefix string) int {
	n := 0
	for _, op := range f.Ops() {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

func setup() (*gitfake.Fake, *recovery.Manager) {
	f := gitfake.New()
	f.Commit("main", "base", map[string]string{"a.txt": "a"})
	f.Branch("feature", "main")
	f.Commit("feature", "feature work", map[string]string{"b.txt": "b"})
	f.Commit("main", "main work", map[string]string{"c.txt": "c"})
	return f, recovery.NewManager(f, output.Discard())
}

func TestSafeOperation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success drops the checkpoint without popping", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		f.WriteWorktree("wip.txt", "wip")

		err := m.SafeOperation(ctx, "op", func(ctx context.Context, cp *recovery.Checkpoint) error {
			require.True(t, cp.StashCreated)
			require.Equal(t, "main", cp.Branch)
			require.NotEmpty(t, cp.ID)
			require.True(t, m.Active("op"))
			_, err := f.Merge(ctx, "main", "feature", git.MergeOptions{})
			return err
		})
		require.NoError(t, err)
		require.False(t, m.Active("op"))
		require.Equal(t, 1, f.StashLen())
		require.Empty(t, f.Worktree())
		require.Zero(t, countOps(f, "reset --hard"))
	})

	t.Run("failure restores branch and head", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		before := f.Tip("main")

		err := m.SafeOperation(ctx, "op", func(ctx context.Context, _ *recovery.Checkpoint) error {
			if _, err := f.Merge(ctx, "main", "feature", git.MergeOptions{NoFastForward: true}); err != nil {
				return err
			}
			if err := f.Checkout(ctx, "feature"); err != nil {
				return err
			}
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)
		require.Equal(t, before, f.Tip("main"))
		current, _ := f.CurrentBranch(ctx)
		require.Equal(t, "main", current)
		require.False(t, m.Active("op"))
	})

	t.Run("failure pops the stash back", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		f.WriteWorktree("wip.txt", "wip")

		err := m.SafeOperation(ctx, "op", func(ctx context.Context, cp *recovery.Checkpoint) error {
			require.Empty(t, f.Worktree())
			f.WriteWorktree("half-applied.txt", "junk")
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)
		require.Equal(t, map[string]string{"wip.txt": "wip"}, f.Worktree())
		require.Equal(t, 0, f.StashLen())
	})

	t.Run("a stopped merge is aborted", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		before := f.Tip("main")
		f.ConflictOnNextApply("c.txt")

		err := m.SafeOperation(ctx, "op", func(ctx context.Context, _ *recovery.Checkpoint) error {
			_, err := f.Merge(ctx, "main", "feature", git.MergeOptions{})
			return err
		})
		require.ErrorIs(t, err, errors.ErrMergeConflict)
		require.Empty(t, f.InProgress())
		require.Equal(t, before, f.Tip("main"))
	})

	t.Run("a stopped rebase is aborted", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		f.SetCurrentBranch("feature")
		before := f.Tip("feature")
		f.ConflictOnNextApply("b.txt")

		err := m.SafeOperation(ctx, "op", func(ctx context.Context, _ *recovery.Checkpoint) error {
			_, err := f.Rebase(ctx, "feature", "main")
			return err
		})
		require.ErrorIs(t, err, errors.ErrRebaseConflict)
		require.Empty(t, f.InProgress())
		current, _ := f.CurrentBranch(ctx)
		require.Equal(t, "feature", current)
		require.Equal(t, before, f.Tip("feature"))
	})

	t.Run("a detached head is restored", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		at := f.ParentsOf(f.Tip("main"))[0]
		f.Detach(at)

		err := m.SafeOperation(ctx, "op", func(ctx context.Context, _ *recovery.Checkpoint) error {
			if err := f.Checkout(ctx, "feature"); err != nil {
				return err
			}
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)
		current, _ := f.CurrentBranch(ctx)
		require.Empty(t, current)
		head, _ := f.Head(ctx)
		require.Equal(t, at, head)
	})

	t.Run("panics restore and re-panic", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		before := f.Tip("main")

		require.PanicsWithValue(t, "kaboom", func() {
			_ = m.SafeOperation(ctx, "op", func(ctx context.Context, _ *recovery.Checkpoint) error {
				_, _ = f.Merge(ctx, "main", "feature", git.MergeOptions{NoFastForward: true})
				panic("kaboom")
			})
		})
		require.Equal(t, before, f.Tip("main"))
		require.False(t, m.Active("op"))
	})

	t.Run("cancellation inside the block is a failure", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		before := f.Tip("main")
		cctx, cancel := context.WithCancel(ctx)

		err := m.SafeOperation(cctx, "op", func(ctx context.Context, _ *recovery.Checkpoint) error {
			_, _ = f.Merge(ctx, "main", "feature", git.MergeOptions{NoFastForward: true})
			cancel()
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, before, f.Tip("main"))
	})

	t.Run("names cannot be reused while live", func(t *testing.T) {
		t.Parallel()
		_, m := setup()

		err := m.SafeOperation(ctx, "op", func(ctx context.Context, _ *recovery.Checkpoint) error {
			return m.SafeOperation(ctx, "op", func(context.Context, *recovery.Checkpoint) error { return nil })
		})
		require.ErrorIs(t, err, errors.ErrCheckpointConflict)

		// the name is free again afterwards
		require.NoError(t, m.SafeOperation(ctx, "op", func(context.Context, *recovery.Checkpoint) error { return nil }))
	})

	t.Run("nested failures restore innermost first", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		start := f.Tip("main")
		var afterOuterWork, afterInner string

		err := m.SafeOperation(ctx, "outer", func(ctx context.Context, _ *recovery.Checkpoint) error {
			f.Commit("main", "outer work", map[string]string{"o.txt": "o"})
			afterOuterWork = f.Tip("main")
			ierr := m.SafeOperation(ctx, "inner", func(ctx context.Context, _ *recovery.Checkpoint) error {
				f.Commit("main", "inner work", map[string]string{"i.txt": "i"})
				return errBoom
			})
			afterInner = f.Tip("main")
			return ierr
		})
		require.ErrorIs(t, err, errBoom)
		require.Equal(t, afterOuterWork, afterInner)
		require.Equal(t, start, f.Tip("main"))
	})

	t.Run("restore is idempotent", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		before := f.Tip("main")

		err := m.SafeOperation(ctx, "op", func(ctx context.Context, cp *recovery.Checkpoint) error {
			f.Commit("main", "work", map[string]string{"x": "x"})
			require.NoError(t, cp.Restore(ctx))
			require.NoError(t, cp.Restore(ctx))
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)
		require.Equal(t, before, f.Tip("main"))

		require.Equal(t, 1, countOps(f, "reset --hard "+before[:8]))
	})

	t.Run("a released stash is not popped again", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		f.WriteWorktree("wip.txt", "wip")

		err := m.SafeOperation(ctx, "op", func(ctx context.Context, cp *recovery.Checkpoint) error {
			require.True(t, cp.OwnsStash())
			require.NoError(t, cp.ReleaseStash(ctx))
			require.False(t, cp.OwnsStash())
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)
		require.Equal(t, 1, countOps(f, "stash pop"))
	})

	t.Run("a failed restore reports manual steps", func(t *testing.T) {
		t.Parallel()
		f, m := setup()
		f.WriteWorktree("wip.txt", "wip")
		head := f.Tip("main")
		resetErr := stderrors.New("object missing")
		f.FailNext("reset", resetErr)

		err := m.SafeOperation(ctx, "sync/main", func(context.Context, *recovery.Checkpoint) error {
			return errBoom
		})
		require.ErrorIs(t, err, errors.ErrRecoveryFailed)
		require.ErrorIs(t, err, errBoom)
		require.ErrorIs(t, err, resetErr)

		var rerr *errors.RecoveryFailedError
		require.ErrorAs(t, err, &rerr)
		require.Equal(t, "main", rerr.Branch)
		require.Equal(t, head, rerr.Head)
		require.NotEmpty(t, rerr.StashID)
		require.Contains(t, err.Error(), "git reset --hard "+head)
		require.Contains(t, err.Error(), "git stash apply "+rerr.StashID)
	})
}

func TestSafeOperationOnRealRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
		if err := testhelpers.DivergedSceneSetup(s); err != nil {
			return err
		}
		if err := s.Repo.CommitFiles("shared", map[string]string{"shared.txt": "main\n"}); err != nil {
			return err
		}
		if err := s.Repo.CheckoutBranch("feature"); err != nil {
			return err
		}
		if err := s.Repo.CommitFiles("shared", map[string]string{"shared.txt": "feature\n"}); err != nil {
			return err
		}
		return s.Repo.WriteFile("feature_test.txt", "uncommitted\n")
	})

	backend, err := git.NewBackend(scene.Dir)
	require.NoError(t, err)
	m := recovery.NewManager(backend, output.Discard())
	before := testhelpers.TakeSnapshot(t, scene.Repo)

	err = m.SafeOperation(ctx, "sync/feature", func(ctx context.Context, cp *recovery.Checkpoint) error {
		require.True(t, cp.StashCreated)
		_, err := backend.Rebase(ctx, "feature", "main")
		return err
	})
	require.ErrorIs(t, err, errors.ErrRebaseConflict)
	require.False(t, scene.Repo.RebaseInProgress())

	testhelpers.ExpectRestored(t, scene.Repo, before)
	content, err := scene.Repo.ReadFile("feature_test.txt")
	require.NoError(t, err)
	require.Equal(t, "uncommitted\n", content)
}
