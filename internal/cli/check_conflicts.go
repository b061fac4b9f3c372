package cli

import (
	"github.com/spf13/cobra"

	"gitmove.dev/gitmove/internal/actions"
	"gitmove.dev/gitmove/internal/cli/helpers"
	"gitmove.dev/gitmove/internal/runtime"
)

// newCheckConflictsCmd creates the check-conflicts command
func newCheckConflictsCmd() *cobra.Command {
	var (
		target   string
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "check-conflicts [branch]",
		Short: "Predict conflicts without changing the repository",
		Long: `Simulate integrating the target into a branch and report every path
changed on both sides, ranked LOW, HIGH or CRITICAL.

Exits non-zero when the integration would stop on a conflict.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: helpers.CompleteBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.CheckConflictsAction(ctx, actions.CheckConflictsOptions{
					Branch:   firstArg(args),
					Target:   target,
					Strategy: strategy,
				})
			})
		},
	}

	addTargetFlag(cmd, &target)
	addStrategyFlag(cmd, &strategy)
	return cmd
}

// addStrategyFlag registers --strategy with its two values as completions
func addStrategyFlag(cmd *cobra.Command, strategy *string) {
	cmd.Flags().StringVarP(strategy, "strategy", "s", "", "Integration strategy: merge or rebase (defaults to the recommendation)")
	_ = cmd.RegisterFlagCompletionFunc("strategy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"merge", "rebase"}, cobra.ShellCompDirectiveNoFileComp
	})
}
