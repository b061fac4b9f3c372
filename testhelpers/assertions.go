// Package testhelpers provides testing utilities for gitmove, including a
// scene system, Git repository helpers, and custom assertions.
package testhelpers

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// Must is a generic helper function that panics if err is not nil,
// otherwise returns the value. This is useful for test setup code
// where errors are not expected and should halt execution immediately.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// ExpectBranches asserts that the repository has exactly the expected local branches.
func ExpectBranches(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()

	output, err := repo.RunGitCommandAndGetOutput("for-each-ref", "refs/heads/", "--format=%(refname:short)")
	require.NoError(t, err, "Failed to list branches")

	branches := splitLines(output)
	sort.Strings(branches)
	sort.Strings(expected)

	require.Equal(t, expected, branches, "Branches do not match")
}

// ExpectCommits asserts that the newest commit subjects on branch match expected.
func ExpectCommits(t *testing.T, repo *GitRepo, branch string, expected []string) {
	t.Helper()

	output, err := repo.RunGitCommandAndGetOutput("log", "--format=%s", branch)
	require.NoError(t, err, "Failed to list commits")

	commits := splitLines(output)
	if len(commits) < len(expected) {
		require.Fail(t, "Not enough commits", "Expected %d commits, got %d", len(expected), len(commits))
		return
	}
	require.Equal(t, expected, commits[:len(expected)], "Commits do not match")
}

// RepoSnapshot captures the parts of a repository a read-only operation must
// not change.
type RepoSnapshot struct {
	Head   string
	Refs   string
	Index  string
	// Entries is the staged content of the index, without stat data
	Entries string
	Status  string
	Stash   string
}

// TakeSnapshot records HEAD, every ref, a hash of the index file, work tree
// status and the stash list.
func TakeSnapshot(t *testing.T, repo *GitRepo) RepoSnapshot {
	t.Helper()

	head, err := os.ReadFile(filepath.Join(repo.Dir, ".git", "HEAD"))
	require.NoError(t, err)
	refs, err := repo.RunGitCommandAndGetOutput("for-each-ref", "--format=%(refname) %(objectname)")
	require.NoError(t, err)
	status, err := repo.Status()
	require.NoError(t, err)
	stash, err := repo.RunGitCommandAndGetOutput("stash", "list", "--format=%H")
	require.NoError(t, err)
	entries, err := repo.RunGitCommandAndGetOutput("ls-files", "--stage")
	require.NoError(t, err)

	var index string
	if data, err := os.ReadFile(filepath.Join(repo.Dir, ".git", "index")); err == nil {
		sum := sha256.Sum256(data)
		index = hex.EncodeToString(sum[:])
	}

	return RepoSnapshot{
		Head:    string(head),
		Refs:    refs,
		Index:   index,
		Entries: entries,
		Status:  status,
		Stash:   stash,
	}
}

// ExpectUnchanged asserts that the repository still matches before.
func ExpectUnchanged(t *testing.T, repo *GitRepo, before RepoSnapshot) {
	t.Helper()
	require.Equal(t, before, TakeSnapshot(t, repo), "repository state changed")
}

// ExpectRestored asserts that HEAD, refs, staged content, work tree status
// and stash match before. Unlike ExpectUnchanged it tolerates a rewritten
// index file, which any checkout or reset produces.
func ExpectRestored(t *testing.T, repo *GitRepo, before RepoSnapshot) {
	t.Helper()
	after := TakeSnapshot(t, repo)
	after.Index = before.Index
	require.Equal(t, before, after, "repository was not restored")
}
