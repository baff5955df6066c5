package shell

import (
	"os"
	"path/filepath"
)

// EnvHookVersion is exported by an active hook; its value tracks the snippet
// generation so an outdated hook can be detected.
const EnvHookVersion = "_ROLEMAN_HOOK_VERSION"

// HookVersion is the current snippet generation.
const HookVersion = "1"

// Shell is one supported interactive shell: it knows its hook snippet, its
// startup file, and the line that loads the hook from there.
type Shell interface {
	Name() string
	HookSnippet() string
	RCPath() (string, error)
	InstallLine() string
	AliasLine() string
	ReloadCommand(rcPath string) string
}

// ForName resolves a shell by name.
func ForName(name string) (Shell, bool) {
	switch name {
	case "bash":
		return bashShell{}, true
	case "zsh":
		return zshShell{}, true
	case "fish":
		return fishShell{}, true
	default:
		return nil, false
	}
}

// Detect resolves the user's shell from $SHELL.
func Detect() (Shell, bool) {
	path := os.Getenv("SHELL")
	if path == "" {
		return nil, false
	}
	return ForName(filepath.Base(path))
}

func homeRCPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, name), nil
}
