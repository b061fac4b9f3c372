package conflict_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gitmove.dev/gitmove/internal/conflict"
	"gitmove.dev/gitmove/internal/divergence"
	"gitmove.dev/gitmove/internal/git"
	"gitmove.dev/gitmove/internal/git/gitfake"
	"gitmove.dev/gitmove/internal/output"
	"gitmove.dev/gitmove/internal/strategy"
	"gitmove.dev/gitmove/testhelpers"
)

func lines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func replaceLine(content string, n int, with string) string {
	ls := strings.SplitAfter(content, "\n")
	ls[n-1] = with + "\n"
	return strings.Join(ls, "")
}

// fork commits base on main, then local on feature and remote on main
func fork(base, local, remote map[string]string) *gitfake.Fake {
	f := gitfake.New()
	f.Commit("main", "base", base)
	f.Branch("feature", "main")
	if local != nil {
		f.Commit("feature", "local change", local)
	}
	if remote != nil {
		f.Commit("main", "target change", remote)
	}
	return f
}

func simulate(t *testing.T, b git.Backend, s strategy.Strategy) *conflict.Report {
	t.Helper()
	ctx := context.Background()
	analyzer := divergence.NewAnalyzer(b, output.Discard())
	d := conflict.NewDetector(b, analyzer, output.Discard())

	local, err := b.ResolveRef(ctx, "feature")
	require.NoError(t, err)
	target, err := b.ResolveRef(ctx, "main")
	require.NoError(t, err)

	report, err := d.Simulate(ctx, local, target, s)
	require.NoError(t, err)
	return report
}

func TestSimulate(t *testing.T) {
	t.Parallel()
	base := lines(10)

	t.Run("same line changed on both sides is HIGH", func(t *testing.T) {
		t.Parallel()
		f := fork(
			map[string]string{"a.txt": base, "other.txt": "x"},
			map[string]string{"a.txt": replaceLine(base, 3, "local"), "local-only.txt": "l"},
			map[string]string{"a.txt": replaceLine(base, 3, "target"), "other.txt": "y"},
		)

		report := simulate(t, f, strategy.Merge)
		require.Equal(t, conflict.WouldConflict, report.Verdict)
		require.Len(t, report.Entries, 1)
		entry := report.Entries[0]
		require.Equal(t, "a.txt", entry.Path)
		require.Equal(t, conflict.High, entry.Severity)
		require.Equal(t, "content", entry.Kind)
		require.Len(t, entry.Hunks, 2)
		require.Equal(t, 2, entry.Hunks[0].Start)
		require.Equal(t, 1, entry.Hunks[0].Count)
		require.Equal(t, []string{"a.txt"}, report.ConflictingPaths())
		require.NotEmpty(t, report.Suggestions)
	})

	t.Run("separate regions are LOW and do not flip the verdict", func(t *testing.T) {
		t.Parallel()
		f := fork(
			map[string]string{"a.txt": base},
			map[string]string{"a.txt": replaceLine(base, 1, "local")},
			map[string]string{"a.txt": replaceLine(base, 9, "target")},
		)

		report := simulate(t, f, strategy.Merge)
		require.Equal(t, conflict.Clean, report.Verdict)
		require.Len(t, report.Entries, 1)
		require.Equal(t, conflict.Low, report.Entries[0].Severity)
		require.Empty(t, report.ConflictingPaths())
	})

	t.Run("adjacent lines conflict", func(t *testing.T) {
		t.Parallel()
		f := fork(
			map[string]string{"a.txt": base},
			map[string]string{"a.txt": replaceLine(base, 4, "local")},
			map[string]string{"a.txt": replaceLine(base, 5, "target")},
		)

		report := simulate(t, f, strategy.Merge)
		require.Equal(t, conflict.High, report.Entries[0].Severity)
	})

	t.Run("identical changes are not reported", func(t *testing.T) {
		t.Parallel()
		same := replaceLine(base, 3, "same")
		f := fork(
			map[string]string{"a.txt": base},
			map[string]string{"a.txt": same},
			map[string]string{"a.txt": same},
		)

		report := simulate(t, f, strategy.Merge)
		require.Equal(t, conflict.Clean, report.Verdict)
		require.Empty(t, report.Entries)
		require.Empty(t, report.Suggestions)
	})

	t.Run("delete against modify is CRITICAL", func(t *testing.T) {
		t.Parallel()
		f := fork(map[string]string{"a.txt": base, "keep": "k"}, nil, map[string]string{"a.txt": replaceLine(base, 2, "t")})
		f.Delete("feature", "drop a", "a.txt")

		report := simulate(t, f, strategy.Merge)
		require.Equal(t, conflict.WouldConflict, report.Verdict)
		require.Equal(t, conflict.Critical, report.Entries[0].Severity)
		require.Equal(t, "delete/modify", report.Entries[0].Kind)
	})

	t.Run("rename against modify is CRITICAL", func(t *testing.T) {
		t.Parallel()
		f := fork(map[string]string{"a.txt": base}, nil, map[string]string{"a.txt": replaceLine(base, 2, "t")})
		f.Rename("feature", "move a", "a.txt", "b.txt")

		report := simulate(t, f, strategy.Merge)
		require.Len(t, report.Entries, 1)
		require.Equal(t, "a.txt", report.Entries[0].Path)
		require.Equal(t, conflict.Critical, report.Entries[0].Severity)
		require.Equal(t, "rename/modify", report.Entries[0].Kind)
		require.Contains(t, report.Entries[0].Reason, "b.txt")
	})

	t.Run("renames to different destinations are CRITICAL", func(t *testing.T) {
		t.Parallel()
		f := fork(map[string]string{"a.txt": base}, nil, nil)
		f.Rename("feature", "move a", "a.txt", "b.txt")
		f.Rename("main", "move a", "a.txt", "c.txt")

		report := simulate(t, f, strategy.Merge)
		require.Equal(t, "rename/rename", report.Entries[0].Kind)
		require.Equal(t, conflict.Critical, report.Entries[0].Severity)
	})

	t.Run("a rename onto a path the target added is CRITICAL", func(t *testing.T) {
		t.Parallel()
		f := fork(map[string]string{"a.txt": base}, nil, map[string]string{"b.txt": "target\n"})
		f.Rename("feature", "move a", "a.txt", "b.txt")

		report := simulate(t, f, strategy.Merge)
		require.Equal(t, conflict.WouldConflict, report.Verdict)
		require.Len(t, report.Entries, 1)
		entry := report.Entries[0]
		require.Equal(t, "b.txt", entry.Path)
		require.Equal(t, conflict.Critical, entry.Severity)
		require.Equal(t, "rename/add", entry.Kind)
		require.Contains(t, entry.Reason, "renamed from a.txt")
	})

	t.Run("a file against a directory is CRITICAL", func(t *testing.T) {
		t.Parallel()
		f := fork(
			map[string]string{"README": "r"},
			map[string]string{"d": "file\n"},
			map[string]string{"d/x": "nested\n"},
		)

		report := simulate(t, f, strategy.Merge)
		require.Equal(t, conflict.WouldConflict, report.Verdict)
		require.Equal(t, []string{"d"}, report.ConflictingPaths())
		require.Equal(t, "file/directory", report.Entries[0].Kind)
		require.Contains(t, report.Entries[0].Reason, "d/x")

		flipped := fork(
			map[string]string{"README": "r"},
			map[string]string{"d/x": "nested\n"},
			map[string]string{"d": "file\n"},
		)
		report = simulate(t, flipped, strategy.Rebase)
		require.Equal(t, "directory/file", report.Entries[0].Kind)
		require.Equal(t, conflict.Critical, report.Entries[0].Severity)
	})

	t.Run("binary content is CRITICAL", func(t *testing.T) {
		t.Parallel()
		f := fork(
			map[string]string{"img.bin": "\x00\x01\x02"},
			map[string]string{"img.bin": "\x00\x01\x03"},
			map[string]string{"img.bin": "\x00\x01\x04"},
		)

		report := simulate(t, f, strategy.Merge)
		require.Equal(t, "binary", report.Entries[0].Kind)
		require.Equal(t, conflict.Critical, report.Entries[0].Severity)
	})

	t.Run("add/add with different content is HIGH", func(t *testing.T) {
		t.Parallel()
		f := fork(
			map[string]string{"README": "r"},
			map[string]string{"new.go": "package a\n"},
			map[string]string{"new.go": "package b\n"},
		)

		report := simulate(t, f, strategy.Merge)
		require.Equal(t, "add/add", report.Entries[0].Kind)
		require.Equal(t, conflict.High, report.Entries[0].Severity)
	})

	t.Run("a fast-forward is clean", func(t *testing.T) {
		t.Parallel()
		f := fork(map[string]string{"a.txt": base}, nil, map[string]string{"a.txt": replaceLine(base, 1, "t")})

		report := simulate(t, f, strategy.Rebase)
		require.Equal(t, conflict.Clean, report.Verdict)
		require.Empty(t, report.Entries)
		require.NotEmpty(t, report.MergeBase)
	})

	t.Run("rebase lists the local commits touching each path", func(t *testing.T) {
		t.Parallel()
		f := fork(map[string]string{"a.txt": base, "b.txt": base}, nil, map[string]string{"a.txt": replaceLine(base, 2, "t")})
		c1 := f.Commit("feature", "one", map[string]string{"a.txt": replaceLine(base, 2, "one")})
		f.Commit("feature", "two", map[string]string{"b.txt": "other"})
		c3 := f.Commit("feature", "three", map[string]string{"a.txt": replaceLine(base, 2, "three")})

		report := simulate(t, f, strategy.Rebase)
		require.Len(t, report.Entries, 1)
		require.Equal(t, []string{c1, c3}, report.Entries[0].Commits)

		merge := simulate(t, f, strategy.Merge)
		require.Empty(t, merge.Entries[0].Commits)
	})

	t.Run("many severe conflicts suggest splitting and merging", func(t *testing.T) {
		t.Parallel()
		baseFiles, local, remote := map[string]string{}, map[string]string{}, map[string]string{}
		for i := 0; i < 7; i++ {
			name := fmt.Sprintf("f%d.txt", i)
			baseFiles[name] = base
			local[name] = replaceLine(base, 1, "l")
			remote[name] = replaceLine(base, 1, "t")
		}
		baseFiles["config.yaml"] = base
		local["config.yaml"] = replaceLine(base, 1, "l")
		remote["config.yaml"] = replaceLine(base, 8, "t")
		f := fork(baseFiles, local, remote)

		report := simulate(t, f, strategy.Rebase)
		require.Len(t, report.Entries, 8)
		require.Equal(t, 7, report.Count(conflict.High))
		joined := strings.Join(report.Suggestions, "\n")
		require.Contains(t, joined, "resolve the 7 high-severity conflicts first")
		require.Contains(t, joined, "1 configuration file conflict")
		require.Contains(t, joined, "consider splitting feature")
		require.Contains(t, joined, "prefer merge over rebase")
	})
}

func TestSimulateOnRealRepositoryIsReadOnly(t *testing.T) {
	t.Parallel()
	base := lines(6)
	scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
		if err := s.Repo.CommitFiles("base", map[string]string{"a.txt": base, "b.txt": base}); err != nil {
			return err
		}
		if err := s.Repo.CreateAndCheckoutBranch("feature"); err != nil {
			return err
		}
		if err := s.Repo.CommitFiles("local", map[string]string{"a.txt": replaceLine(base, 2, "local")}); err != nil {
			return err
		}
		if err := s.Repo.CheckoutBranch("main"); err != nil {
			return err
		}
		if err := s.Repo.CommitFiles("target", map[string]string{"a.txt": replaceLine(base, 2, "target")}); err != nil {
			return err
		}
		if err := s.Repo.CheckoutBranch("feature"); err != nil {
			return err
		}
		// uncommitted work must survive untouched too
		return s.Repo.WriteFile("b.txt", "dirty\n")
	})

	backend, err := git.NewBackend(scene.Dir)
	require.NoError(t, err)
	before := testhelpers.TakeSnapshot(t, scene.Repo)

	for _, s := range []strategy.Strategy{strategy.Merge, strategy.Rebase} {
		report := simulate(t, backend, s)
		require.Equal(t, conflict.WouldConflict, report.Verdict)
		require.Equal(t, []string{"a.txt"}, report.ConflictingPaths())
		require.Equal(t, conflict.High, report.Entries[0].Severity)
	}

	testhelpers.ExpectUnchanged(t, scene.Repo, before)
	content, err := scene.Repo.ReadFile("b.txt")
	require.NoError(t, err)
	require.Equal(t, "dirty\n", content)
}

func TestSimulateCollisionsOnRealRepository(t *testing.T) {
	t.Parallel()
	scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
		if err := s.Repo.CommitFiles("base", map[string]string{"a.txt": lines(6)}); err != nil {
			return err
		}
		if err := s.Repo.CreateAndCheckoutBranch("feature"); err != nil {
			return err
		}
		if err := s.Repo.RenameFileAndCommit("a.txt", "b.txt", "move a"); err != nil {
			return err
		}
		if err := s.Repo.CommitFiles("add d", map[string]string{"d": "file\n"}); err != nil {
			return err
		}
		if err := s.Repo.CheckoutBranch("main"); err != nil {
			return err
		}
		return s.Repo.CommitFiles("target adds", map[string]string{"b.txt": "target\n", "d/x": "nested\n"})
	})

	backend, err := git.NewBackend(scene.Dir)
	require.NoError(t, err)

	report := simulate(t, backend, strategy.Merge)
	require.Equal(t, conflict.WouldConflict, report.Verdict)
	require.Equal(t, []string{"b.txt", "d"}, report.ConflictingPaths())
	require.Equal(t, "rename/add", report.Entries[0].Kind)
	require.Equal(t, "file/directory", report.Entries[1].Kind)
}
