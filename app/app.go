package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"roleman/auth"
	"roleman/aws"
	"roleman/cache"
	"roleman/catalog"
	"roleman/config"
	"roleman/handoff"
	"roleman/history"
	"roleman/selector"
	"roleman/styles"
	"roleman/utils"
)

// Action is what happens after a role is selected.
type Action int

const (
	// ActionSet exchanges the role for credentials and hands them to the
	// shell.
	ActionSet Action = iota
	// ActionOpen opens the role in the AWS access portal instead.
	ActionOpen
)

// Options carries everything one invocation needs, resolved from flags and
// environment by the command layer.
type Options struct {
	Action Action

	ConfigPath string
	Identity   string
	// StartURL and SSORegion define an ad-hoc identity overriding the
	// configuration.
	StartURL  string
	SSORegion string

	Account        string
	Query          string
	Sort           string
	IgnoreCache    bool
	ShowAll        bool
	RefreshSeconds int

	EnvFile   string
	PrintOnly bool
}

// App runs the selection pipeline: resolve identity, authenticate, build the
// catalog, select, then hand off or open the portal.
type App struct {
	opts Options

	// selectEntry is swapped out in tests; the default runs the interactive
	// picker.
	selectEntry func(entries []catalog.Entry, sopts selector.Options) (*catalog.Entry, error)
	lookupEnv   func(key string) string
	now         func() time.Time
}

// New builds an app for one invocation.
func New(opts Options) *App {
	return &App{
		opts:        opts,
		selectEntry: selector.Run,
		lookupEnv:   os.Getenv,
		now:         time.Now,
	}
}

// Run executes the pipeline. It performs at most one authentication, one
// catalog fetch, one selection, and one hand-off.
func (a *App) Run(ctx context.Context) error {
	cfg, _, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		return err
	}

	identity, err := a.resolveIdentity(cfg)
	if err != nil {
		return err
	}

	store, err := cache.NewStore(cache.DefaultDir())
	if err != nil {
		return err
	}

	client, err := aws.NewClient(ctx, identity.Region)
	if err != nil {
		return err
	}

	flow := auth.NewFlow(client, store)
	flow.OnUserAction = promptUserAction

	session, err := flow.Session(ctx, identity, a.opts.IgnoreCache)
	if err != nil {
		return err
	}

	builder := catalog.NewBuilder(client, store)
	entries, err := builder.Load(ctx, session.AccessToken, identity, catalog.Options{
		IgnoreCache:  a.opts.IgnoreCache,
		ShowAll:      a.opts.ShowAll,
		RefreshAfter: a.refreshAfter(cfg),
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return catalog.ErrNoMatchingRole
	}

	ledger := history.NewLedger(history.DefaultPath())
	records, err := ledger.Load()
	if err != nil {
		log.Debug("failed to load history", "err", err)
	}
	stats := history.BuildStats(records, identity.Name, a.now(), history.CurrentCwd())

	choice, err := a.selectEntry(entries, selector.Options{
		Title: identity.Name,
		Query: a.initialQuery(),
		Mode:  a.sortMode(cfg),
		Stats: stats,
	})
	if err != nil {
		return err
	}
	if choice == nil {
		log.Debug("selection cancelled")
		return nil
	}

	if err := ledger.Append(history.Record{
		Identity:    identity.Name,
		AccountID:   choice.AccountID,
		AccountName: choice.AccountName,
		RoleName:    choice.RoleName,
	}); err != nil {
		log.Debug("failed to record selection", "err", err)
	}

	if a.opts.Action == ActionOpen {
		return openPortal(identity.StartURL, choice)
	}
	return a.handOff(ctx, client, store, session, identity, choice)
}

// resolveIdentity picks the identity for this run: an ad-hoc one from
// --sso-start-url, or a configured one by name/default.
func (a *App) resolveIdentity(cfg *config.Config) (*config.Identity, error) {
	if a.opts.StartURL != "" {
		if a.opts.SSORegion == "" {
			return nil, fmt.Errorf("--sso-start-url requires --sso-region")
		}
		return &config.Identity{
			Name:     "ad-hoc",
			StartURL: a.opts.StartURL,
			Region:   a.opts.SSORegion,
		}, nil
	}
	return cfg.Identity(a.opts.Identity)
}

// initialQuery is the query the picker starts with. --query wins over
// --account, which preselects by account name.
func (a *App) initialQuery() string {
	if a.opts.Query != "" {
		return a.opts.Query
	}
	return a.opts.Account
}

func (a *App) sortMode(cfg *config.Config) string {
	if a.opts.Sort != "" {
		return a.opts.Sort
	}
	return cfg.SortMode()
}

func (a *App) refreshAfter(cfg *config.Config) time.Duration {
	seconds := a.opts.RefreshSeconds
	if seconds == 0 {
		seconds = cfg.RefreshSeconds
	}
	return time.Duration(seconds) * time.Second
}

// handOff exchanges the selection for credentials and delivers them to the
// shell via the per-terminal env file, or stdout with --print.
func (a *App) handOff(ctx context.Context, api handoff.CredentialAPI, store *cache.Store, session *auth.Session, identity *config.Identity, choice *catalog.Entry) error {
	exchanger := handoff.NewExchanger(api, store)
	creds, err := exchanger.Credentials(ctx, session.AccessToken, identity.StartURL, identity.Region, choice.AccountID, choice.RoleName, a.opts.IgnoreCache)
	if err != nil {
		return fmt.Errorf("failed to get credentials for %s/%s: %w", choice.AccountID, choice.RoleName, err)
	}

	profileName := handoff.ProfileName(choice.AccountID, choice.RoleName)
	configFile := ""
	if requested := a.lookupEnv(handoff.EnvProfileOptIn); requested != "" {
		profileName = handoff.SanitizeProfileName(requested)
		configFile, err = handoff.WriteProfile(handoff.ProfileConfigPath(), profileName, identity.Region)
		if err != nil {
			return err
		}
	}

	pkg := handoff.Export(creds, identity.Region, profileName, configFile)
	if a.opts.PrintOnly {
		fmt.Print(pkg.Render())
		return nil
	}

	path, err := handoff.EnvFilePath(a.opts.EnvFile)
	if err != nil {
		return err
	}
	if err := handoff.WriteEnvFile(path, pkg); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, styles.SuccessStyle.Render(
		fmt.Sprintf("✓ %s (%s) %s — credentials exported", choice.DisplayName(), choice.AccountID, choice.RoleName)))
	return nil
}

// Unset writes a removal-only package for this terminal and prints the
// directives so a hook-less shell can eval them.
func Unset(envFile string) error {
	pkg := handoff.Unset()

	path, err := handoff.EnvFilePath(envFile)
	if err != nil {
		return err
	}
	if err := handoff.WriteEnvFile(path, pkg); err != nil {
		return err
	}
	fmt.Print(pkg.Render())
	return nil
}

func promptUserAction(verificationURL, userCode string) {
	fmt.Fprintln(os.Stderr, styles.VerificationBox.Render(
		"Confirm this code in your browser\n\n"+styles.CodeBox.Render(userCode)))
	fmt.Fprintln(os.Stderr, styles.MutedStyle.Render(verificationURL))
	if err := utils.OpenBrowser(verificationURL); err != nil {
		log.Debug("failed to open browser", "err", err)
	}
}

func openPortal(startURL string, choice *catalog.Entry) error {
	url := aws.ConsoleURL(startURL, choice.AccountID, choice.RoleName)
	fmt.Fprintln(os.Stderr, styles.MutedStyle.Render(url))
	if err := utils.OpenBrowser(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
