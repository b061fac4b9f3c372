package cli

import (
	"github.com/spf13/cobra"

	"gitmove.dev/gitmove/internal/actions"
	"gitmove.dev/gitmove/internal/cli/helpers"
	"gitmove.dev/gitmove/internal/runtime"
)

// newAdviseCmd creates the advise command
func newAdviseCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "advise [branch]",
		Short: "Recommend merge or rebase for a branch",
		Long: `Recommend merge or rebase for a branch.

Branches matching advice.force_merge_patterns or advice.force_rebase_patterns
always get that strategy. Otherwise branches with at most
advice.rebase_threshold local commits are rebased, unless they are older than
advice.branch_age_days.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: helpers.CompleteBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.AdviseAction(ctx, actions.AdviseOptions{
					Branch: firstArg(args),
					Target: target,
				})
			})
		},
	}

	addTargetFlag(cmd, &target)
	return cmd
}
