package updater

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCache_Missing(t *testing.T) {
	cache, err := LoadCache(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache != nil {
		t.Error("expected nil cache for missing file")
	}
}

func TestSaveAndLoadCache(t *testing.T) {
	tmp := t.TempDir()

	original := &VersionCache{
		LatestVersion:   "1.2.0",
		CurrentVersion:  "1.1.0",
		CheckedAt:       time.Now().Truncate(time.Second),
		UpdateAvailable: true,
		ReleaseURL:      "https://github.com/terrasync-labs/terrasync/releases/tag/v1.2.0",
	}
	if err := SaveCache(tmp, original); err != nil {
		t.Fatalf("SaveCache failed: %v", err)
	}

	loaded, err := LoadCache(tmp)
	if err != nil {
		t.Fatalf("LoadCache failed: %v", err)
	}
	if loaded.LatestVersion != "1.2.0" || loaded.CurrentVersion != "1.1.0" {
		t.Errorf("loaded = %+v", loaded)
	}
	if !loaded.UpdateAvailable {
		t.Error("UpdateAvailable should be true")
	}
	if !loaded.CheckedAt.Equal(original.CheckedAt) {
		t.Errorf("CheckedAt = %v, want %v", loaded.CheckedAt, original.CheckedAt)
	}
}

func TestLoadCache_Corrupted(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, cacheFileName), []byte("not valid json{{{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCache(tmp); err == nil {
		t.Error("expected error for corrupted cache")
	}
}

func TestIsCacheStale(t *testing.T) {
	tests := []struct {
		name     string
		cache    *VersionCache
		expected bool
	}{
		{"nil cache is stale", nil, true},
		{"fresh cache", &VersionCache{CurrentVersion: "1.0.0", CheckedAt: time.Now()}, false},
		{"old cache", &VersionCache{CurrentVersion: "1.0.0", CheckedAt: time.Now().Add(-25 * time.Hour)}, true},
		{"other binary version", &VersionCache{CurrentVersion: "0.9.0", CheckedAt: time.Now()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCacheStale(tt.cache, "1.0.0", DefaultCacheMaxAge); got != tt.expected {
				t.Errorf("IsCacheStale = %v, want %v", got, tt.expected)
			}
		})
	}
}
