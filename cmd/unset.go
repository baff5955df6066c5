package cmd

import (
	"github.com/spf13/cobra"

	"roleman/app"
)

var unsetCmd = &cobra.Command{
	Use:     "unset",
	Aliases: []string{"u"},
	Short:   "Remove the AWS environment variables managed by roleman",
	Long: `Prints shell commands to unset AWS environment variables managed by roleman.

When running under a shell hook, the unset directives are also written to the
hook env file so your current shell is updated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Unset(flagEnvFile)
	},
}

func init() {
	RootCmd.AddCommand(unsetCmd)
}
