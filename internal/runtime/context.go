// Package runtime provides a context type that holds the engine and logger
// for use throughout the application. This avoids passing multiple parameters.
package runtime

import (
	"context"
	"fmt"
	"os"

	"gitmove.dev/gitmove/internal/config"
	"gitmove.dev/gitmove/internal/git"
	"gitmove.dev/gitmove/internal/output"
	"gitmove.dev/gitmove/internal/sync"
)

// EnvDemo selects the in-memory demo repository when set
const EnvDemo = "GITMOVE_DEMO"

// Context provides access to engine and output for commands
type Context struct {
	context.Context
	Engine   *sync.Engine
	Backend  git.Backend
	Splog    *output.Splog
	Settings config.Settings
	RepoRoot string
}

// NewContext wires an engine over backend with the given settings
func NewContext(ctx context.Context, backend git.Backend, settings config.Settings, splog *output.Splog, opts ...sync.Option) *Context {
	return &Context{
		Context:  ctx,
		Engine:   sync.NewEngine(backend, settings, splog.Logger(), opts...),
		Backend:  backend,
		Splog:    splog,
		Settings: settings,
	}
}

// IsDemoMode returns true if GITMOVE_DEMO environment variable is set
func IsDemoMode() bool {
	return os.Getenv(EnvDemo) != ""
}

// DemoBackendFactory creates the demo repository.
// This is set by the demo package to avoid circular imports.
var DemoBackendFactory func() git.Backend

// GetContext returns the appropriate context (demo or real) based on the
// environment. For a real repository the configuration files are loaded
// from the work tree root and the user's config directory.
func GetContext(ctx context.Context) (*Context, error) {
	splog := newSplog()

	if IsDemoMode() && DemoBackendFactory != nil {
		return NewContext(ctx, DemoBackendFactory(), config.Default(), splog), nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	repoRoot, err := git.RepoRoot(ctx, wd)
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	settings, err := LoadSettings(repoRoot)
	if err != nil {
		return nil, err
	}

	backend, err := git.NewBackend(repoRoot, git.WithCommandTimeout(settings.Network.CommandTimeout))
	if err != nil {
		return nil, err
	}

	c := NewContext(ctx, backend, settings, splog)
	c.RepoRoot = repoRoot
	return c, nil
}

// newSplog logs to the console and, when the state directory is writable,
// to the rotated log file
func newSplog() *output.Splog {
	path, err := output.DefaultLogFilePath()
	if err != nil {
		return output.NewSplog()
	}
	splog, err := output.NewSplogWithConfig(os.Stdout, path)
	if err != nil {
		return output.NewSplog()
	}
	return splog
}

// LoadSettings reads the layered configuration of repoRoot
func LoadSettings(repoRoot string) (config.Settings, error) {
	provider, err := config.NewFileProvider(repoRoot)
	if err != nil {
		return config.Settings{}, err
	}
	settings, err := config.Load(provider)
	if err != nil {
		return config.Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}
