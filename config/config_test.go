package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoadMissingFileYieldsEmptyConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, loadedPath, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, loadedPath)
	assert.Empty(t, cfg.Identities)
	assert.Equal(t, SortDynamic, cfg.SortMode())
	assert.Equal(t, HookPromptAlways, cfg.HookPromptMode())
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
default_identity: work
refresh_seconds: 300
sort: alphabetical
hook_prompt: never
identities:
  - name: work
    start_url: https://acme.awsapps.com/start
    region: us-east-1
    ignore_roles: [AuditReadOnly]
    accounts:
      - id: "111111111111"
        alias: Dev
        precedence: 5
      - id: "222222222222"
        ignore: true
  - name: personal
    start_url: https://me.awsapps.com/start
    region: eu-west-1
`)

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "work", cfg.DefaultIdentity)
	assert.Equal(t, 300, cfg.RefreshSeconds)
	assert.Equal(t, SortAlphabetical, cfg.SortMode())
	assert.Equal(t, HookPromptNever, cfg.HookPromptMode())
	require.Len(t, cfg.Identities, 2)

	work, err := cfg.Identity("")
	require.NoError(t, err)
	assert.Equal(t, "work", work.Name)
	assert.Equal(t, []string{"AuditReadOnly"}, work.IgnoreRoles)

	personal, err := cfg.Identity("personal")
	require.NoError(t, err)
	assert.Equal(t, "https://me.awsapps.com/start", personal.StartURL)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"bad sort": `
sort: fancy
`,
		"bad hook prompt": `
hook_prompt: sometimes
`,
		"missing identity name": `
identities:
  - start_url: https://acme.awsapps.com/start
    region: us-east-1
`,
		"missing start url": `
identities:
  - name: work
    region: us-east-1
`,
		"missing region": `
identities:
  - name: work
    start_url: https://acme.awsapps.com/start
`,
		"duplicate identity": `
identities:
  - name: work
    start_url: https://acme.awsapps.com/start
    region: us-east-1
  - name: work
    start_url: https://acme.awsapps.com/start
    region: us-east-1
`,
		"unknown default": `
default_identity: nope
identities:
  - name: work
    start_url: https://acme.awsapps.com/start
    region: us-east-1
`,
		"rule without id": `
identities:
  - name: work
    start_url: https://acme.awsapps.com/start
    region: us-east-1
    accounts:
      - alias: Dev
`,
		"not yaml": `{{{`,
	}

	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, contents))
			require.Error(t, err)
		})
	}
}

func TestIdentityResolution(t *testing.T) {
	cfg := &Config{Identities: []Identity{
		{Name: "only", StartURL: "https://a/start", Region: "us-east-1"},
	}}

	id, err := cfg.Identity("")
	require.NoError(t, err)
	assert.Equal(t, "only", id.Name)

	_, err = cfg.Identity("missing")
	assert.ErrorIs(t, err, ErrUnknownIdentity)

	empty := &Config{}
	_, err = empty.Identity("")
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestEffectiveRulesLastWins(t *testing.T) {
	identity := Identity{
		Name: "work",
		Accounts: []AccountRule{
			{ID: "111", Alias: "First", Precedence: 1},
			{ID: "222", Ignore: true},
			{ID: "111", Alias: "Second", IgnoreRoles: []string{"Admin"}},
		},
	}

	rules := identity.EffectiveRules()
	require.Len(t, rules, 2)

	winner := rules["111"]
	assert.Equal(t, "Second", winner.Alias)
	// The later rule shadows the earlier one entirely, precedence included.
	assert.Equal(t, 0, winner.Precedence)
	assert.Equal(t, []string{"Admin"}, winner.IgnoreRoles)
	assert.True(t, rules["222"].Ignore)
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		DefaultIdentity: "work",
		HookPrompt:      HookPromptNever,
		Identities: []Identity{
			{Name: "work", StartURL: "https://acme.awsapps.com/start", Region: "us-east-1"},
		},
	}
	require.NoError(t, cfg.Save(path))

	loaded, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.DefaultIdentity, loaded.DefaultIdentity)
	assert.Equal(t, cfg.HookPrompt, loaded.HookPrompt)
	assert.Equal(t, cfg.Identities, loaded.Identities)
}
