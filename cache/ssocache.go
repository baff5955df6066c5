package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// ExternalToken is an SSO access token found in the shared AWS CLI cache at
// ~/.aws/sso/cache. Roleman only ever reads that directory; tokens written
// there by other tools sharing the same device login are reused to skip a
// redundant device-authorization prompt.
type ExternalToken struct {
	StartURL    string    `json:"startUrl"`
	Region      string    `json:"region"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// LoadExternalToken scans the shared SSO cache for an unexpired token
// matching startURL. Unreadable or malformed files are skipped.
func LoadExternalToken(startURL string) (*ExternalToken, bool) {
	return loadExternalTokenFrom(externalCacheDir(), startURL, time.Now())
}

func loadExternalTokenFrom(dir, startURL string, now time.Time) (*ExternalToken, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, false
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		var token ExternalToken
		if err := json.Unmarshal(data, &token); err != nil {
			log.Debug("skipping unreadable sso cache file", "file", entry.Name(), "err", err)
			continue
		}
		if token.StartURL != startURL || token.AccessToken == "" {
			continue
		}
		if !now.Before(token.ExpiresAt) {
			continue
		}
		return &token, true
	}
	return nil, false
}

func externalCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aws", "sso", "cache")
}
