package updater

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/terrasync-labs/terrasync/internal/branding"
)

// CheckAndPrintBanner prints an update banner from the cached check and, when
// the cache is stale, refreshes it in the background for the next run. It
// never blocks on the network. The returned channel is closed once any
// refresh has finished.
func (u *Updater) CheckAndPrintBanner(w io.Writer, configDir string) <-chan struct{} {
	done := make(chan struct{})
	if IsDevBuild(u.currentVersion) {
		close(done)
		return done
	}

	cache, err := LoadCache(configDir)
	if err == nil && cache != nil && cache.CurrentVersion == u.currentVersion && cache.UpdateAvailable {
		PrintUpdateBanner(w, cache.CurrentVersion, cache.LatestVersion)
	}
	if err != nil || IsCacheStale(cache, u.currentVersion, DefaultCacheMaxAge) {
		go func() {
			defer close(done)
			u.refreshCache(configDir)
		}()
		return done
	}
	close(done)
	return done
}

// PrintUpdateBanner prints the update notification to w.
func PrintUpdateBanner(w io.Writer, current, latest string) {
	fmt.Fprintf(w, "\nUpdate available: %s -> %s\n", current, latest)
	fmt.Fprintf(w, "    https://github.com/%s/releases/latest\n\n", branding.GitHubRepo())
}

// refreshCache runs in the background and never fails loudly.
func (u *Updater) refreshCache(configDir string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	release, available, err := u.Check(ctx)
	if err != nil {
		return
	}
	_ = SaveCache(configDir, &VersionCache{
		LatestVersion:   release.Version,
		CurrentVersion:  u.currentVersion,
		CheckedAt:       time.Now(),
		UpdateAvailable: available,
		ReleaseURL:      release.HTMLURL,
	})
}
