package cli_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gitmove.dev/gitmove/testhelpers"
)

// conflictingSceneSetup edits the same line of shared.txt on main and feature
func conflictingSceneSetup(s *testhelpers.Scene) error {
	if err := s.Repo.CommitFiles("base", map[string]string{"shared.txt": "one\n"}); err != nil {
		return err
	}
	if err := s.Repo.CreateAndCheckoutBranch("feature"); err != nil {
		return err
	}
	if err := s.Repo.CommitFiles("feature edit", map[string]string{"shared.txt": "feature\n"}); err != nil {
		return err
	}
	if err := s.Repo.CheckoutBranch("main"); err != nil {
		return err
	}
	return s.Repo.CommitFiles("main edit", map[string]string{"shared.txt": "main\n"})
}

func TestStatusCommand(t *testing.T) {
	t.Parallel()
	scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)

	out, err := runGitmove(t, scene.Dir, nil, "status", "feature")
	require.NoError(t, err, out)
	require.Contains(t, out, "feature is behind main by 1 commit and ahead by 1 commit")

	t.Run("defaults to the checked out branch", func(t *testing.T) {
		out, err := runGitmove(t, scene.Dir, nil, "status")
		require.NoError(t, err, out)
		require.Contains(t, out, "main is up to date with main")
	})

	t.Run("unknown branch", func(t *testing.T) {
		out, err := runGitmove(t, scene.Dir, nil, "status", "nope")
		require.Error(t, err)
		require.Contains(t, out, "nope")
	})
}

func TestAdviseCommand(t *testing.T) {
	t.Parallel()
	scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)

	out, err := runGitmove(t, scene.Dir, nil, "advise", "feature")
	require.NoError(t, err, out)
	require.Contains(t, out, "Recommended strategy: REBASE")

	require.NoError(t, scene.WriteConfig("advice:\n  force_merge_patterns: [\"feat*\"]\n"))
	out, err = runGitmove(t, scene.Dir, nil, "advise", "feature")
	require.NoError(t, err, out)
	require.Contains(t, out, "Recommended strategy: MERGE")
	require.Contains(t, out, `(pattern "feat*")`)
}

func TestCheckConflictsCommand(t *testing.T) {
	t.Parallel()

	t.Run("clean", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)
		out, err := runGitmove(t, scene.Dir, nil, "check-conflicts", "feature")
		require.NoError(t, err, out)
		require.Contains(t, out, "rebase main into feature: clean")
	})

	t.Run("conflicting edits exit non-zero and change nothing", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, conflictingSceneSetup)
		before := testhelpers.TakeSnapshot(t, scene.Repo)

		out, err := runGitmove(t, scene.Dir, nil, "check-conflicts", "feature", "--strategy", "merge")
		require.Error(t, err)
		require.Contains(t, out, "merge main into feature: would-conflict")
		require.Contains(t, out, "shared.txt")
		testhelpers.ExpectUnchanged(t, scene.Repo, before)
	})

	t.Run("invalid strategy", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)
		out, err := runGitmove(t, scene.Dir, nil, "check-conflicts", "feature", "--strategy", "squash")
		require.Error(t, err)
		require.Contains(t, out, "unknown strategy")
	})
}

func TestSyncCommand(t *testing.T) {
	t.Parallel()

	t.Run("rebases a diverged branch", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)

		out, err := runGitmove(t, scene.Dir, nil, "sync", "feature")
		require.NoError(t, err, out)
		require.Contains(t, out, "rebased feature onto main")
		testhelpers.ExpectCommits(t, scene.Repo, "feature", []string{"feature work", "main work", "base"})

		current, err := scene.Repo.CurrentBranchName()
		require.NoError(t, err)
		require.Equal(t, "main", current)
	})

	t.Run("forced merge creates a merge commit", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)

		out, err := runGitmove(t, scene.Dir, nil, "sync", "feature", "--strategy", "merge")
		require.NoError(t, err, out)
		require.Contains(t, out, "merged main into feature")

		parents, err := scene.Repo.RunGitCommandAndGetOutput("rev-list", "--parents", "-n", "1", "feature")
		require.NoError(t, err)
		require.Len(t, strings.Fields(parents), 3)
	})

	t.Run("predicted conflicts leave the repository untouched", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, conflictingSceneSetup)
		before := testhelpers.TakeSnapshot(t, scene.Repo)

		out, err := runGitmove(t, scene.Dir, nil, "sync", "feature")
		require.Error(t, err)
		require.Contains(t, out, "nothing was changed")
		testhelpers.ExpectUnchanged(t, scene.Repo, before)
	})

	t.Run("all branches", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)

		out, err := runGitmove(t, scene.Dir, nil, "sync", "--all")
		require.NoError(t, err, out)
		require.Contains(t, out, "Synced: 1, Skipped: 0, Failed: 0")
		testhelpers.ExpectCommits(t, scene.Repo, "feature", []string{"feature work", "main work", "base"})
	})

	t.Run("interactive needs a terminal", func(t *testing.T) {
		t.Parallel()
		scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)
		before := testhelpers.TakeSnapshot(t, scene.Repo)

		out, err := runGitmove(t, scene.Dir, nil, "sync", "feature", "-i")
		require.Error(t, err)
		require.Contains(t, out, "interactive")
		testhelpers.ExpectUnchanged(t, scene.Repo, before)
	})
}

func TestConfigCommand(t *testing.T) {
	t.Parallel()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	require.NoError(t, scene.WriteConfig("advice:\n  rebase_threshold: 9\n"))

	out, err := runGitmove(t, scene.Dir, nil, "config", "get", "advice.rebase_threshold")
	require.NoError(t, err, out)
	require.Equal(t, "9\n", out)

	out, err = runGitmove(t, scene.Dir, nil, "config", "list")
	require.NoError(t, err, out)
	require.Contains(t, out, "general.main_branch=main")

	_, err = runGitmove(t, scene.Dir, nil, "config", "get", "nope")
	require.Error(t, err)
}

func TestDemoMode(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	demo := []string{"GITMOVE_DEMO=1"}

	out, err := runGitmove(t, dir, demo, "status", "feature/metrics")
	require.NoError(t, err, out)
	require.Contains(t, out, "feature/metrics is behind main")

	out, err = runGitmove(t, dir, demo, "check-conflicts", "feature/config-port")
	require.Error(t, err)
	require.Contains(t, out, "would-conflict")

	out, err = runGitmove(t, dir, demo, "advise", "legacy/importer")
	require.NoError(t, err, out)
	require.Contains(t, out, "Recommended strategy: MERGE")
}
