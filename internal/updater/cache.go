package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheFileName = "release-check.json"
	// DefaultCacheMaxAge is how long a release check result is reused.
	DefaultCacheMaxAge = 24 * time.Hour
)

// VersionCache is the stored result of the last release check.
type VersionCache struct {
	LatestVersion   string    `json:"latest_version"`
	CurrentVersion  string    `json:"current_version"`
	CheckedAt       time.Time `json:"checked_at"`
	UpdateAvailable bool      `json:"update_available"`
	ReleaseURL      string    `json:"release_url,omitempty"`
}

// LoadCache reads the cached check from configDir. It returns nil, nil when
// no check has been cached yet.
func LoadCache(configDir string) (*VersionCache, error) {
	data, err := os.ReadFile(filepath.Join(configDir, cacheFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading release check cache: %w", err)
	}

	var cache VersionCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing release check cache: %w", err)
	}
	return &cache, nil
}

// SaveCache writes cache into configDir.
func SaveCache(configDir string, cache *VersionCache) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling release check cache: %w", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, cacheFileName), data, 0644); err != nil {
		return fmt.Errorf("writing release check cache: %w", err)
	}
	return nil
}

// IsCacheStale returns true if the cache is nil, older than maxAge, or was
// recorded by a different binary version.
func IsCacheStale(cache *VersionCache, currentVersion string, maxAge time.Duration) bool {
	if cache == nil || cache.CurrentVersion != currentVersion {
		return true
	}
	return time.Since(cache.CheckedAt) > maxAge
}
