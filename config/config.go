package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Sort modes for the role selector.
const (
	SortDynamic      = "dynamic"
	SortAlphabetical = "alphabetical"
)

// Hook prompt policies.
const (
	HookPromptAlways   = "always"
	HookPromptOutdated = "outdated"
	HookPromptNever    = "never"
)

// Config is the roleman configuration loaded from config.yaml.
type Config struct {
	DefaultIdentity string     `yaml:"default_identity,omitempty"`
	RefreshSeconds  int        `yaml:"refresh_seconds,omitempty"`
	Sort            string     `yaml:"sort,omitempty"`
	HookPrompt      string     `yaml:"hook_prompt,omitempty"`
	Identities      []Identity `yaml:"identities,omitempty"`
}

// Identity is a named SSO endpoint plus its filtering rules. The account
// rule list is ordered; when several rules name the same account ID the last
// one wins wholesale.
type Identity struct {
	Name        string        `yaml:"name"`
	StartURL    string        `yaml:"start_url"`
	Region      string        `yaml:"region"`
	IgnoreRoles []string      `yaml:"ignore_roles,omitempty"`
	Accounts    []AccountRule `yaml:"accounts,omitempty"`
}

// AccountRule customizes how one account's roles appear in the catalog.
// Precedence defaults to zero, which sorts last; higher sorts first.
type AccountRule struct {
	ID          string   `yaml:"id"`
	Alias       string   `yaml:"alias,omitempty"`
	Precedence  int      `yaml:"precedence,omitempty"`
	Ignore      bool     `yaml:"ignore,omitempty"`
	IgnoreRoles []string `yaml:"ignore_roles,omitempty"`
}

var (
	ErrNoIdentity      = errors.New("no identity configured (add one to config.yaml or pass --sso-start-url and --sso-region)")
	ErrUnknownIdentity = errors.New("identity not found in configuration")
)

// DefaultPath returns the configuration file location under the user config
// home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "roleman", "config.yaml")
}

// Load reads and validates the configuration at path, or at the default
// location when path is empty. A missing file yields an empty configuration.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, path, nil
		}
		return nil, path, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, path, nil
}

// Save writes the configuration back to path, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Sort {
	case "", SortDynamic, SortAlphabetical:
	default:
		return fmt.Errorf("sort must be %q or %q, got %q", SortDynamic, SortAlphabetical, c.Sort)
	}
	switch c.HookPrompt {
	case "", HookPromptAlways, HookPromptOutdated, HookPromptNever:
	default:
		return fmt.Errorf("hook_prompt must be one of always, outdated, never; got %q", c.HookPrompt)
	}
	seen := make(map[string]bool, len(c.Identities))
	for i, identity := range c.Identities {
		if identity.Name == "" {
			return fmt.Errorf("identities[%d]: name is required", i)
		}
		if seen[identity.Name] {
			return fmt.Errorf("duplicate identity name %q", identity.Name)
		}
		seen[identity.Name] = true
		if identity.StartURL == "" {
			return fmt.Errorf("identity %q: start_url is required", identity.Name)
		}
		if identity.Region == "" {
			return fmt.Errorf("identity %q: region is required", identity.Name)
		}
		for j, rule := range identity.Accounts {
			if rule.ID == "" {
				return fmt.Errorf("identity %q: accounts[%d]: id is required", identity.Name, j)
			}
		}
	}
	if c.DefaultIdentity != "" && !seen[c.DefaultIdentity] {
		return fmt.Errorf("default_identity %q does not match any identity", c.DefaultIdentity)
	}
	return nil
}

// Identity returns the named identity, falling back to default_identity and
// then to a sole configured identity when name is empty.
func (c *Config) Identity(name string) (*Identity, error) {
	if name == "" {
		name = c.DefaultIdentity
	}
	if name == "" {
		if len(c.Identities) == 1 {
			return &c.Identities[0], nil
		}
		return nil, ErrNoIdentity
	}
	for i := range c.Identities {
		if c.Identities[i].Name == name {
			return &c.Identities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIdentity, name)
}

// SortMode returns the configured sort mode, defaulting to dynamic.
func (c *Config) SortMode() string {
	if c.Sort == "" {
		return SortDynamic
	}
	return c.Sort
}

// HookPromptMode returns the hook reminder policy, defaulting to always.
func (c *Config) HookPromptMode() string {
	if c.HookPrompt == "" {
		return HookPromptAlways
	}
	return c.HookPrompt
}

// EffectiveRules folds the ordered account rule list into a mapping from
// account ID to its winning rule. Later rules shadow earlier ones entirely.
func (id *Identity) EffectiveRules() map[string]AccountRule {
	rules := make(map[string]AccountRule, len(id.Accounts))
	for _, rule := range id.Accounts {
		rules[rule.ID] = rule
	}
	return rules
}
