package cmd

import (
	"github.com/spf13/cobra"

	"roleman/app"
)

var openCmd = &cobra.Command{
	Use:     "open [account]",
	Aliases: []string{"o"},
	Short:   "Select a role and open it in the AWS access portal",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, app.ActionOpen, args)
	},
}

func init() {
	RootCmd.AddCommand(openCmd)
}
