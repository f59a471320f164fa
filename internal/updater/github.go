package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/terrasync-labs/terrasync/internal/branding"
)

const githubAPIBase = "https://api.github.com"

// ErrNoRelease is returned when the repository has no published release.
var ErrNoRelease = errors.New("no published release")

// LatestRelease fetches the latest published release.
func (u *Updater) LatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", strings.TrimRight(u.apiBase, "/"), u.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", branding.UserAgent(u.currentVersion))

	// Optional token for higher rate limits.
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNoRelease
	case http.StatusForbidden:
		return nil, fmt.Errorf("GitHub API rate limit exceeded. Set GITHUB_TOKEN for higher limits")
	default:
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("parsing release JSON: %w", err)
	}
	if release.Version == "" {
		return nil, fmt.Errorf("parsing release JSON: missing tag_name")
	}
	return &release, nil
}

// Check fetches the latest release and reports whether it is newer than the
// running version.
func (u *Updater) Check(ctx context.Context) (*Release, bool, error) {
	release, err := u.LatestRelease(ctx)
	if err != nil {
		return nil, false, err
	}
	available, err := IsUpdateAvailable(u.currentVersion, release.Version)
	if err != nil {
		return release, false, err
	}
	return release, available, nil
}
