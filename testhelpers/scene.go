package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
)

// Scene represents a test scene with a temporary directory and Git repository.
type Scene struct {
	Dir  string
	Repo *GitRepo
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a new test scene with a temporary directory and Git repository.
// The directory is removed by t.Cleanup() unless DEBUG is set. Scenes never
// change the process working directory, so tests using them may run in parallel.
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "gitmove-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	// Resolve symlinks (macOS /var -> /private/var) so paths match git's output
	if resolved, err := filepath.EvalSymlinks(tmpDir); err == nil {
		tmpDir = resolved
	}

	t.Cleanup(func() {
		if os.Getenv("DEBUG") == "" {
			os.RemoveAll(tmpDir)
		}
	})

	repo, err := NewGitRepo(filepath.Join(tmpDir, "repo"))
	if err != nil {
		t.Fatalf("Failed to create Git repo: %v", err)
	}

	scene := &Scene{
		Dir:  repo.Dir,
		Repo: repo,
	}

	if err := scene.writeDefaultConfigs(); err != nil {
		t.Fatalf("Failed to write config files: %v", err)
	}

	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}

	return scene
}

// writeDefaultConfigs writes a repository .gitmove.yaml and keeps it out of
// `git status` so it never makes the work tree dirty.
func (s *Scene) writeDefaultConfigs() error {
	repoConfig := `general:
  main_branch: main
network:
  fetch_enabled: true
  max_retries: 0
`
	if err := s.WriteConfig(repoConfig); err != nil {
		return err
	}

	excludePath := filepath.Join(s.Dir, ".git", "info", "exclude")
	if err := os.MkdirAll(filepath.Dir(excludePath), 0o750); err != nil {
		return err
	}
	f, err := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(".gitmove.yaml\n")
	return err
}

// WriteConfig replaces the repository's .gitmove.yaml.
func (s *Scene) WriteConfig(contents string) error {
	return os.WriteFile(filepath.Join(s.Dir, ".gitmove.yaml"), []byte(contents), 0o600)
}

// BasicSceneSetup is a setup function that creates a basic scene with a single commit.
func BasicSceneSetup(scene *Scene) error {
	return scene.Repo.CreateChangeAndCommit("1", "1")
}

// DivergedSceneSetup creates main with one commit, then a feature branch with
// one commit of its own while main gains another. HEAD is left on main.
func DivergedSceneSetup(scene *Scene) error {
	if err := scene.Repo.CreateChangeAndCommit("base", "base"); err != nil {
		return err
	}
	if err := scene.Repo.CreateAndCheckoutBranch("feature"); err != nil {
		return err
	}
	if err := scene.Repo.CreateChangeAndCommit("feature work", "feature"); err != nil {
		return err
	}
	if err := scene.Repo.CheckoutBranch("main"); err != nil {
		return err
	}
	return scene.Repo.CreateChangeAndCommit("main work", "main")
}
