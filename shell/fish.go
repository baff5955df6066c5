package shell

import (
	"os"
	"path/filepath"
)

type fishShell struct{}

func (fishShell) Name() string { return "fish" }

func (fishShell) HookSnippet() string {
	return `if set -q XDG_STATE_HOME
  set -gx _ROLEMAN_HOOK_ENV "$XDG_STATE_HOME/roleman/env-(string replace -a '/' '_' (tty))"
else
  set -gx _ROLEMAN_HOOK_ENV "$HOME/.local/state/roleman/env-(string replace -a '/' '_' (tty))"
end
set -gx _ROLEMAN_HOOK_VERSION 1
function roleman
  command roleman --env-file "$_ROLEMAN_HOOK_ENV" $argv
end
function __roleman_prompt --on-event fish_prompt
  if test -f "$_ROLEMAN_HOOK_ENV"
    source "$_ROLEMAN_HOOK_ENV"
    rm -f "$_ROLEMAN_HOOK_ENV"
  end
end`
}

func (fishShell) RCPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "fish", "config.fish"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "fish", "config.fish"), nil
}

func (fishShell) InstallLine() string { return "roleman hook fish | source" }

func (fishShell) AliasLine() string { return "alias rl roleman" }

func (fishShell) ReloadCommand(rcPath string) string { return "source " + rcPath }
