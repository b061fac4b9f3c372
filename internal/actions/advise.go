package actions

import (
	"gitmove.dev/gitmove/internal/runtime"
)

// AdviseOptions specifies options for the advise command
type AdviseOptions struct {
	Branch string
	Target string
}

// AdviseAction prints the recommended strategy and the reasons for it
func AdviseAction(ctx *runtime.Context, opts AdviseOptions) error {
	branch, err := branchOrCurrent(ctx, opts.Branch)
	if err != nil {
		return err
	}
	decision, err := ctx.Engine.Recommend(ctx, branch, targetOrMain(ctx, opts.Target))
	if err != nil {
		return err
	}
	printLines(ctx.Splog, decisionLines(decision))
	return nil
}
