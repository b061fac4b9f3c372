package actions

import (
	"gitmove.dev/gitmove/internal/runtime"
)

// StatusOptions specifies options for the status command
type StatusOptions struct {
	Branch string
	Target string
}

// StatusAction prints how far a branch has diverged from its target
func StatusAction(ctx *runtime.Context, opts StatusOptions) error {
	branch, err := branchOrCurrent(ctx, opts.Branch)
	if err != nil {
		return err
	}
	status, err := ctx.Engine.CheckSyncStatus(ctx, branch, targetOrMain(ctx, opts.Target))
	if err != nil {
		return err
	}
	printLines(ctx.Splog, statusLines(status))
	return nil
}
