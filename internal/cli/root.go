package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitmove.dev/gitmove/internal/output"

	// Registers the demo backend used when GITMOVE_DEMO is set
	_ "gitmove.dev/gitmove/internal/demo"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "gitmove",
		Short: "Keep branches in sync with their target without losing work",
		Long: `gitmove keeps feature branches in sync with the branch they were cut from.

It measures how far a branch has drifted, recommends merge or rebase,
predicts conflicts before touching anything, and rolls the repository back
if an integration fails part way.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if noColor || os.Getenv(output.EnvNoColor) != "" {
				output.DisableColors()
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newAdviseCmd())
	rootCmd.AddCommand(newCheckConflictsCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}
