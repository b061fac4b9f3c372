package actions

import (
	"fmt"

	"gitmove.dev/gitmove/internal/errors"
	"gitmove.dev/gitmove/internal/runtime"
	"gitmove.dev/gitmove/internal/strategy"
)

// branchOrCurrent returns name, or the checked out branch when name is empty
func branchOrCurrent(ctx *runtime.Context, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	current, err := ctx.Backend.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	if current == "" {
		return "", fmt.Errorf("%w: HEAD is detached, name the branch to use", errors.ErrNotOnBranch)
	}
	return current, nil
}

// targetOrMain returns name, or the configured main branch when name is empty
func targetOrMain(ctx *runtime.Context, name string) string {
	if name != "" {
		return name
	}
	return ctx.Settings.General.MainBranch
}

// parseStrategy parses an optional strategy flag
func parseStrategy(s string) (*strategy.Strategy, error) {
	if s == "" {
		return nil, nil
	}
	parsed, err := strategy.Parse(s)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
