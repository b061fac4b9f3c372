package testhelpers_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitmove.dev/gitmove/testhelpers"
)

func TestSceneDefaults(t *testing.T) {
	t.Parallel()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)

	branch, err := scene.Repo.CurrentBranchName()
	require.NoError(t, err)
	require.Equal(t, "main", branch)

	// the repository config is excluded, so a fresh scene is clean
	status, err := scene.Repo.Status()
	require.NoError(t, err)
	require.Empty(t, status)

	content, err := scene.Repo.ReadFile(".gitmove.yaml")
	require.NoError(t, err)
	require.Contains(t, content, "main_branch: main")
}

func TestDivergedScene(t *testing.T) {
	t.Parallel()
	scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)

	testhelpers.ExpectBranches(t, scene.Repo, []string{"feature", "main"})
	testhelpers.ExpectCommits(t, scene.Repo, "main", []string{"main work", "base"})
	testhelpers.ExpectCommits(t, scene.Repo, "feature", []string{"feature work", "base"})
}

func TestSnapshots(t *testing.T) {
	t.Parallel()
	scene := testhelpers.NewScene(t, testhelpers.DivergedSceneSetup)
	require.NoError(t, scene.Repo.WriteFile("notes.txt", "draft\n"))
	before := testhelpers.TakeSnapshot(t, scene.Repo)

	require.NoError(t, scene.Repo.RunGitCommand("stash", "push", "-q", "--include-untracked"))
	require.NoError(t, scene.Repo.CheckoutBranch("feature"))
	require.NotEqual(t, before, testhelpers.TakeSnapshot(t, scene.Repo))

	require.NoError(t, scene.Repo.CheckoutBranch("main"))
	require.NoError(t, scene.Repo.RunGitCommand("stash", "pop", "-q"))
	testhelpers.ExpectRestored(t, scene.Repo, before)
}
