package cache

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Store persists TTL-tagged JSON values under a single directory. Writes are
// atomic (write-temp-then-rename) so a concurrent reader never observes a
// partially written entry. Expired, corrupted, or unreadable entries read as
// misses, never as errors.
type Store struct {
	dir string
	now func() time.Time
}

type envelope struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Payload   json.RawMessage `json:"payload"`
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// DefaultDir returns the roleman cache directory under the user cache home.
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "roleman")
}

// Put stores value under key with the given TTL.
func (s *Store) Put(key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	data, err := json.Marshal(envelope{
		ExpiresAt: s.now().Add(ttl),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache envelope: %w", err)
	}
	return writeFileAtomic(s.path(key), data, 0600)
}

// Get reads the value stored under key into out. It reports whether a live
// entry was found; entries past their TTL count as absent.
func (s *Store) Get(key string, out any) bool {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Debug("ignoring corrupted cache entry", "key", key, "err", err)
		return false
	}
	if !s.now().Before(env.ExpiresAt) {
		return false
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		log.Debug("ignoring undecodable cache entry", "key", key, "err", err)
		return false
	}
	return true
}

// Age returns how long ago the entry under key was written, based on its
// recorded expiry and the TTL it was stored with. It reports false when the
// entry is missing or unreadable.
func (s *Store) Age(key string, ttl time.Duration) (time.Duration, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return 0, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return 0, false
	}
	storedAt := env.ExpiresAt.Add(-ttl)
	return s.now().Sub(storedAt), true
}

// Invalidate removes the entry under key. Removing a missing entry is not an
// error.
func (s *Store) Invalidate(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// Key builds a cache key namespaced by kind and scope, hashing the scope so
// arbitrary identity names and URLs map to safe filenames.
func Key(kind string, scope ...string) string {
	h := sha1.New()
	for _, part := range scope {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s-%x", kind, h.Sum(nil))
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set cache file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
