package handoff

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// EnvHookFile is set by the shell hook to the env file it will source and
// delete after this process exits.
const EnvHookFile = "_ROLEMAN_HOOK_ENV"

// EnvFilePath resolves the hand-off file for this terminal. An explicit path
// (--env-file) wins, then the hook's own path, then a path derived from the
// controlling terminal so concurrent invocations from different terminals
// never collide.
func EnvFilePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if path := os.Getenv(EnvHookFile); path != "" {
		return path, nil
	}
	return filepath.Join(xdg.StateHome, "roleman", "env-"+terminalID()), nil
}

// terminalID returns a stable identifier for the controlling terminal,
// matching the hook's own derivation ("/dev/pts/3" → "_dev_pts_3"). Without
// a tty the parent pid keeps the path unique per shell.
func terminalID() string {
	if tty, err := os.Readlink("/proc/self/fd/0"); err == nil && strings.HasPrefix(tty, "/dev/") {
		return strings.ReplaceAll(tty, "/", "_")
	}
	log.Debug("no controlling tty, falling back to parent pid")
	return fmt.Sprintf("ppid-%d", os.Getppid())
}

// WriteEnvFile writes the package to path atomically, replacing any prior
// package for the same terminal. A failure here is fatal for the invocation:
// credentials must never be silently dropped.
func WriteEnvFile(path string, pkg Package) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if _, err := tmp.WriteString(pkg.Render()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
