package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose     bool
	projectRoot string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "warp-coder",
		Short:         "warp-coder drives board issues through implement, review, merge and release",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.projectRoot, "project-root", "", "Project root (defaults to the working directory)")

	cmd.AddCommand(newWatchCmd(flags))
	cmd.AddCommand(newReleaseCmd(flags))
	cmd.AddCommand(newDebugCmd(flags))
	cmd.AddCommand(newMemoryCmd(flags))
	cmd.AddCommand(newCompactCmd(flags))
	cmd.AddCommand(newInitCmd(flags))

	return cmd
}
