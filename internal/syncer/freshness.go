package syncer

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FreshnessFile records when the local tree last completed a full sync.
const FreshnessFile = ".terrasync-updated"

// WriteFreshnessMarker writes the current Unix timestamp into root.
func WriteFreshnessMarker(root string) error {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	return os.WriteFile(filepath.Join(root, FreshnessFile), []byte(ts), 0644)
}

// ReadFreshnessMarker returns the time of the last full sync of root, or the
// zero time if there is no readable marker.
func ReadFreshnessMarker(root string) time.Time {
	data, err := os.ReadFile(filepath.Join(root, FreshnessFile))
	if err != nil {
		return time.Time{}
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// IsStale reports whether root was last synced more than maxAge ago. A tree
// without a marker is stale.
func IsStale(root string, maxAge time.Duration) bool {
	last := ReadFreshnessMarker(root)
	if last.IsZero() {
		return true
	}
	return time.Since(last) > maxAge
}
