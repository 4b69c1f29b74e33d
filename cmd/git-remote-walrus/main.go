package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "git-remote-walrus <remote-name> <url>",
		Short: "Git remote helper for walrus:: URLs",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return cmd.Help()
			}
			return runRemoteHelper(cmd.ErrOrStderr(), args[0], args[1])
		},
	}

	root.AddCommand(newDeployCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
