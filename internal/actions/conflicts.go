package actions

import (
	"gitmove.dev/gitmove/internal/errors"
	"gitmove.dev/gitmove/internal/runtime"
)

// CheckConflictsOptions specifies options for the check-conflicts command
type CheckConflictsOptions struct {
	Branch string
	Target string
	// Strategy is merge or rebase; empty uses the recommended one.
	Strategy string
}

// CheckConflictsAction simulates the integration and prints the predicted
// conflicts. A would-conflict verdict is returned as ConflictDetectedError.
func CheckConflictsAction(ctx *runtime.Context, opts CheckConflictsOptions) error {
	branch, err := branchOrCurrent(ctx, opts.Branch)
	if err != nil {
		return err
	}
	target := targetOrMain(ctx, opts.Target)

	forced, err := parseStrategy(opts.Strategy)
	if err != nil {
		return err
	}
	chosen := forced
	if chosen == nil {
		decision, err := ctx.Engine.Recommend(ctx, branch, target)
		if err != nil {
			return err
		}
		chosen = &decision.Strategy
	}

	report, err := ctx.Engine.DetectConflicts(ctx, branch, target, *chosen)
	if err != nil {
		return err
	}
	printLines(ctx.Splog, reportLines(report))
	if report.HasConflicts() {
		return errors.NewConflictDetectedError(branch, target, report)
	}
	return nil
}
