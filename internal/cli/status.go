package cli

import (
	"github.com/spf13/cobra"

	"gitmove.dev/gitmove/internal/actions"
	"gitmove.dev/gitmove/internal/cli/helpers"
	"gitmove.dev/gitmove/internal/runtime"
)

// newStatusCmd creates the status command
func newStatusCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:               "status [branch]",
		Short:             "Show how far a branch has drifted from its target",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: helpers.CompleteBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.StatusAction(ctx, actions.StatusOptions{
					Branch: firstArg(args),
					Target: target,
				})
			})
		},
	}

	addTargetFlag(cmd, &target)
	return cmd
}

// addTargetFlag registers --target with branch completion
func addTargetFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "target", "t", "", "Branch to compare against (defaults to general.main_branch)")
	_ = cmd.RegisterFlagCompletionFunc("target", helpers.CompleteBranches)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
