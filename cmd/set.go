package cmd

import (
	"github.com/spf13/cobra"

	"roleman/app"
)

var setCmd = &cobra.Command{
	Use:     "set [account]",
	Aliases: []string{"s"},
	Short:   "Select a role and export its credentials (the default action)",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, app.ActionSet, args)
	},
}

func init() {
	RootCmd.AddCommand(setCmd)
}
