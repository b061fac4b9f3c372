package cli

import (
	"github.com/spf13/cobra"

	"gitmove.dev/gitmove/internal/actions"
	"gitmove.dev/gitmove/internal/cli/helpers"
	"gitmove.dev/gitmove/internal/runtime"
)

// newSyncCmd creates the sync command
func newSyncCmd() *cobra.Command {
	var (
		target      string
		strategy    string
		all         bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "sync [branches...]",
		Short: "Bring branches up to date with their target",
		Long: `Bring branches up to date with their target.

Uncommitted work is stashed and restored. Conflicts are predicted before
anything changes; when a merge or rebase still fails the repository is
reset to where it was. With several branches, or --all, each branch is
analyzed in parallel and applied one at a time.`,
		ValidArgsFunction: helpers.CompleteBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.SyncAction(ctx, actions.SyncOptions{
					Branches:    args,
					Target:      target,
					Strategy:    strategy,
					All:         all,
					Interactive: interactive,
				})
			})
		},
	}

	addTargetFlag(cmd, &target)
	addStrategyFlag(cmd, &strategy)
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Sync every local branch except the target")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Choose the strategy and confirm before applying")
	cmd.MarkFlagsMutuallyExclusive("all", "interactive")

	return cmd
}
