package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"roleman/app"
	"roleman/config"
	"roleman/shell"
	"roleman/styles"
)

var (
	flagConfig         string
	flagIdentity       string
	flagStartURL       string
	flagSSORegion      string
	flagAccount        string
	flagQuery          string
	flagSort           string
	flagNoCache        bool
	flagShowAll        bool
	flagRefreshSeconds int
	flagEnvFile        string
	flagPrint          bool
)

// RootCmd is the roleman entry point. A bare invocation behaves like `set`.
var RootCmd = &cobra.Command{
	Use:   "roleman",
	Short: "Pick an AWS IAM Identity Center account and role, then export temporary credentials",
	Long: `Roleman lets you pick an AWS IAM Identity Center (AWS SSO) account and role,
then emits shell exports for temporary AWS credentials.

Use roleman for interactive credential export, roleman open to open the
selected role in the AWS access portal, and roleman hook / roleman
install-hook for shell integration.`,
	Example: `  roleman
  roleman --account prod
  roleman -q sandbox
  roleman --no-cache --print
  roleman --sso-start-url https://acme.awsapps.com/start --sso-region us-east-1
  roleman open
  roleman hook
  roleman install-hook --alias`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, app.ActionSet, nil)
	},
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Path to the configuration file")
	flags.StringVarP(&flagIdentity, "identity", "i", "", "Configured identity to use")
	flags.StringVar(&flagStartURL, "sso-start-url", "", "SSO start URL for an ad-hoc identity")
	flags.StringVar(&flagSSORegion, "sso-region", "", "SSO region for an ad-hoc identity")
	flags.StringVarP(&flagAccount, "account", "a", "", "Preselect by account name or alias")
	flags.StringVarP(&flagQuery, "query", "q", "", "Initial selector query (auto-selects a unique match)")
	flags.StringVar(&flagSort, "sort", "", "Selector ranking: dynamic or alphabetical")
	flags.BoolVar(&flagNoCache, "no-cache", false, "Skip all caches and fetch fresh")
	flags.BoolVar(&flagShowAll, "show-all", false, "Show entries hidden by ignore rules")
	flags.IntVar(&flagRefreshSeconds, "refresh-seconds", 0, "Refresh the cached catalog in the background after this many seconds")
	flags.StringVar(&flagEnvFile, "env-file", "", "Write env exports to this file (used by shell hooks)")
	flags.BoolVar(&flagPrint, "print", false, "Print exports to stdout instead of writing the env file")
}

// Execute runs the CLI and reports failure via exit code.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func buildOptions(action app.Action, positionalAccount string) app.Options {
	account := flagAccount
	if account == "" {
		account = positionalAccount
	}
	return app.Options{
		Action:         action,
		ConfigPath:     flagConfig,
		Identity:       flagIdentity,
		StartURL:       flagStartURL,
		SSORegion:      flagSSORegion,
		Account:        account,
		Query:          flagQuery,
		Sort:           flagSort,
		IgnoreCache:    flagNoCache,
		ShowAll:        flagShowAll,
		RefreshSeconds: flagRefreshSeconds,
		EnvFile:        flagEnvFile,
		PrintOnly:      flagPrint,
	}
}

func runPipeline(cmd *cobra.Command, action app.Action, args []string) error {
	positional := ""
	if len(args) > 0 {
		positional = args[0]
	}
	maybeRemindHook()
	return app.New(buildOptions(action, positional)).Run(cmd.Context())
}

// maybeRemindHook nudges about shell integration before a run, honoring the
// configured hook_prompt policy. Failures here never block the pipeline.
func maybeRemindHook() {
	cfg, _, err := config.Load(flagConfig)
	if err != nil {
		return
	}
	sh, ok := shell.Detect()
	if !ok {
		return
	}

	message, offer := shell.Reminder(cfg.HookPromptMode(), sh, shell.CurrentHookState(sh))
	if message == "" {
		return
	}
	fmt.Fprintln(os.Stderr, styles.WarningStyle.Render(message))
	if !offer || !stdinIsTerminal() {
		return
	}

	fmt.Fprintln(os.Stderr, styles.MutedStyle.Render("It keeps your shell environment in sync automatically:"))
	fmt.Fprintln(os.Stderr, "  "+sh.InstallLine())
	if !promptYesNo("Install it now? [y/N] ") {
		return
	}
	alias := promptYesNo("Also add alias rl=roleman? [y/N] ")
	rcPath, err := shell.InstallHook(sh, false, alias)
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render(err.Error()))
		return
	}
	fmt.Fprintln(os.Stderr, styles.SuccessStyle.Render("Installed hook into "+rcPath))
	fmt.Fprintln(os.Stderr, styles.MutedStyle.Render("Reload your shell: "+sh.ReloadCommand(rcPath)))
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func promptYesNo(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
