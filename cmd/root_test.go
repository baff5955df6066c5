package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleman/app"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagConfig = ""
		flagIdentity = ""
		flagStartURL = ""
		flagSSORegion = ""
		flagAccount = ""
		flagQuery = ""
		flagSort = ""
		flagNoCache = false
		flagShowAll = false
		flagRefreshSeconds = 0
		flagEnvFile = ""
		flagPrint = false
	})
}

func TestPersistentFlagsParse(t *testing.T) {
	resetFlags(t)

	err := RootCmd.PersistentFlags().Parse([]string{
		"--account", "prod",
		"-q", "sandbox",
		"--no-cache",
		"--show-all",
		"--sort", "alphabetical",
		"--refresh-seconds", "120",
		"--env-file", "/tmp/env",
		"--print",
		"--sso-start-url", "https://acme.awsapps.com/start",
		"--sso-region", "us-east-1",
	})
	require.NoError(t, err)

	opts := buildOptions(app.ActionSet, "")
	assert.Equal(t, "prod", opts.Account)
	assert.Equal(t, "sandbox", opts.Query)
	assert.True(t, opts.IgnoreCache)
	assert.True(t, opts.ShowAll)
	assert.Equal(t, "alphabetical", opts.Sort)
	assert.Equal(t, 120, opts.RefreshSeconds)
	assert.Equal(t, "/tmp/env", opts.EnvFile)
	assert.True(t, opts.PrintOnly)
	assert.Equal(t, "https://acme.awsapps.com/start", opts.StartURL)
	assert.Equal(t, "us-east-1", opts.SSORegion)
}

func TestPositionalAccountFillsWhenFlagAbsent(t *testing.T) {
	resetFlags(t)

	opts := buildOptions(app.ActionOpen, "staging")
	assert.Equal(t, "staging", opts.Account)
	assert.Equal(t, app.ActionOpen, opts.Action)

	flagAccount = "prod"
	opts = buildOptions(app.ActionSet, "staging")
	assert.Equal(t, "prod", opts.Account)
}

func TestSubcommandsAreRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, sub := range RootCmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"set", "open", "unset", "history", "hook", "install-hook"} {
		assert.True(t, names[want], want)
	}
}

func TestAliasesResolve(t *testing.T) {
	for alias, want := range map[string]string{"s": "set", "o": "open", "u": "unset"} {
		cmd, _, err := RootCmd.Find([]string{alias})
		require.NoError(t, err)
		assert.Equal(t, want, cmd.Name(), alias)
	}
}

func TestHookShellResolution(t *testing.T) {
	sh, err := resolveHookShell([]string{"fish"})
	require.NoError(t, err)
	assert.Equal(t, "fish", sh.Name())

	_, err = resolveHookShell([]string{"tcsh"})
	require.Error(t, err)

	t.Setenv("SHELL", "/bin/bash")
	sh, err = resolveHookShell(nil)
	require.NoError(t, err)
	assert.Equal(t, "bash", sh.Name())
}
