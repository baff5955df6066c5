package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrAlreadyInstalled is returned when the hook is present and --force was
// not given.
var ErrAlreadyInstalled = fmt.Errorf("hook already installed (use --force to overwrite)")

// InstallHook appends the shell's hook loader line to its startup file,
// optionally with the rl alias. force removes any existing hook lines first.
// It returns the startup file that was modified.
func InstallHook(sh Shell, force, alias bool) (string, error) {
	rcPath, err := sh.RCPath()
	if err != nil {
		return "", fmt.Errorf("failed to install hook: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(rcPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to install hook: %w", err)
	}

	data, err := os.ReadFile(rcPath)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to install hook: %w", err)
	}
	contents := string(data)

	installLine := sh.InstallLine()
	if HasActiveHook(contents, installLine) {
		if !force {
			return "", ErrAlreadyInstalled
		}
		contents = removeHookLines(contents)
	}

	var block strings.Builder
	block.WriteString("\n")
	block.WriteString(installLine)
	if alias {
		block.WriteString("\n")
		block.WriteString(sh.AliasLine())
	}
	block.WriteString("\n")

	if contents != "" && !strings.HasSuffix(contents, "\n") {
		contents += "\n"
	}
	contents += block.String()

	if err := os.WriteFile(rcPath, []byte(contents), 0o644); err != nil {
		return "", fmt.Errorf("failed to install hook: %w", err)
	}
	return rcPath, nil
}

// HasActiveHook reports whether contents carries a non-commented hook line.
func HasActiveHook(contents, installLine string) bool {
	for _, line := range strings.Split(contents, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.Contains(trimmed, EnvHookVersion) ||
			strings.Contains(trimmed, "_ROLEMAN_HOOK_ENV") ||
			strings.Contains(trimmed, installLine) {
			return true
		}
	}
	return false
}

// removeHookLines strips every hook-related line so --force reinstalls
// cleanly.
func removeHookLines(contents string) string {
	var kept []string
	for _, line := range strings.Split(contents, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "alias rl='roleman'", trimmed == "alias rl roleman":
		case strings.HasPrefix(trimmed, `eval "$(roleman hook `):
		case strings.HasPrefix(trimmed, "roleman hook "):
		case strings.Contains(trimmed, "_ROLEMAN_HOOK_ENV"):
		case strings.Contains(trimmed, EnvHookVersion):
		default:
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
