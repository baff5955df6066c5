package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"roleman/shell"
	"roleman/styles"
)

var (
	flagHookForce bool
	flagHookAlias bool
)

var hookCmd = &cobra.Command{
	Use:   "hook [shell]",
	Short: "Print shell hook code for shell integration",
	Long: `Print the shell hook script to stdout. If no shell is provided, roleman
auto-detects it from $SHELL.`,
	Example: `  eval "$(roleman hook)"
  eval "$(roleman hook zsh)"
  roleman hook fish | source`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish"},
	RunE: func(cmd *cobra.Command, args []string) error {
		sh, err := resolveHookShell(args)
		if err != nil {
			return err
		}
		fmt.Println(sh.HookSnippet())
		return nil
	},
}

var installHookCmd = &cobra.Command{
	Use:   "install-hook",
	Short: "Install the shell hook into your shell startup file",
	Long: `Detect your current shell and append the roleman hook loader to the
corresponding shell startup file.

Supported shells: bash, zsh, fish.`,
	Example: `  roleman install-hook
  roleman install-hook --alias
  roleman install-hook --force --alias`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sh, err := resolveHookShell(nil)
		if err != nil {
			return err
		}
		rcPath, err := shell.InstallHook(sh, flagHookForce, flagHookAlias)
		if err != nil {
			return err
		}
		fmt.Println(styles.SuccessStyle.Render("Installed hook into " + rcPath))
		fmt.Println(styles.MutedStyle.Render("Reload your shell: " + sh.ReloadCommand(rcPath)))
		return nil
	},
}

func resolveHookShell(args []string) (shell.Shell, error) {
	if len(args) > 0 {
		sh, ok := shell.ForName(args[0])
		if !ok {
			return nil, fmt.Errorf("unsupported shell hook: %s", args[0])
		}
		return sh, nil
	}
	sh, ok := shell.Detect()
	if !ok {
		return nil, fmt.Errorf("failed to auto-detect shell (set SHELL to bash, zsh, or fish, or pass `roleman hook <shell>`)")
	}
	return sh, nil
}

func init() {
	installHookCmd.Flags().BoolVar(&flagHookForce, "force", false, "Remove existing roleman hook lines before reinstalling")
	installHookCmd.Flags().BoolVar(&flagHookAlias, "alias", false, "Also add alias rl=roleman")
	RootCmd.AddCommand(hookCmd)
	RootCmd.AddCommand(installHookCmd)
}
