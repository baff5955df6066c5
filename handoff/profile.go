package handoff

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/ini.v1"
)

// EnvProfileOptIn enables writing a named profile block for each selection;
// its value is the profile name. Ambient AWS config files are never touched;
// the block goes to a roleman-owned file pointed at via AWS_CONFIG_FILE.
const EnvProfileOptIn = "ROLEMAN_AWS_PROFILE"

// ProfileName derives the profile name for an account/role pair,
// sanitized to the character set AWS config accepts.
func ProfileName(accountID, roleName string) string {
	return SanitizeProfileName("roleman-" + accountID + "-" + roleName)
}

// SanitizeProfileName maps an arbitrary string onto the characters AWS
// config accepts in a profile name.
func SanitizeProfileName(value string) string {
	var b strings.Builder
	for _, ch := range value {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			b.WriteRune(ch)
		default:
			b.WriteRune('-')
		}
	}
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	out = strings.Trim(out, "-")
	if out == "" {
		return "roleman"
	}
	return out
}

// ProfileConfigPath is the roleman-owned AWS config file profile blocks are
// written to.
func ProfileConfigPath() string {
	return filepath.Join(xdg.StateHome, "roleman", "aws-config")
}

// WriteProfile upserts a minimal profile block for the selection into the
// roleman-owned config file and returns its path.
func WriteProfile(path, profileName, region string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to write profile: %w", err)
	}

	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return "", fmt.Errorf("failed to write profile: %w", err)
	}

	section := cfg.Section("profile " + profileName)
	section.Key("region").SetValue(region)
	section.Key("output").SetValue("json")

	if err := cfg.SaveTo(path); err != nil {
		return "", fmt.Errorf("failed to write profile: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return "", fmt.Errorf("failed to write profile: %w", err)
	}
	return path, nil
}
