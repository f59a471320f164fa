//go:build integration

package integration_test

import (
	"context"
	"testing"

	"github.com/terrasync-labs/terrasync/internal/remote"
	"github.com/terrasync-labs/terrasync/internal/syncer"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

var sceneryFiles = map[string]string{
	"Airports/K/S/F/KSFO.threshold.xml":  "<PropertyList><runway/></PropertyList>",
	"Models/Power/some file.xml":         "<PropertyList/>",
	"Terrain/w130n30/w123n37/942050.stg": "OBJECT_BASE 942050.btg\n",
	"version.txt":                        "2024.1\n",
}

// TestFullSyncOverHTTP generates indexes for a tree, serves it over HTTP,
// syncs it, changes the server tree and syncs again.
func TestFullSyncOverHTTP(t *testing.T) {
	env := setupTestEnv(t, sceneryFiles)
	ctx := context.Background()

	reader, err := remote.NewHTTPReader(env.Server.URL+"/ts", remote.WithHTTPClient(env.Server.Client()))
	if err != nil {
		t.Fatalf("NewHTTPReader: %v", err)
	}
	s, err := syncer.New(reader, env.LocalDir, syncer.WithJobs(3))
	if err != nil {
		t.Fatalf("syncer.New: %v", err)
	}

	// Step 1: initial sync mirrors everything.
	res, err := s.Sync(ctx, vpath.Root())
	if err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	if res.FilesFetched != len(sceneryFiles) {
		t.Errorf("FilesFetched = %d, want %d", res.FilesFetched, len(sceneryFiles))
	}
	for rel := range sceneryFiles {
		assertSameFile(t, env, rel)
	}

	// Step 2: an unchanged server costs one index request.
	env.Requests.Store(0)
	res, err = s.Sync(ctx, vpath.Root())
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if env.Requests.Load() != 1 || res.FilesFetched != 0 {
		t.Errorf("unchanged sync made %d requests, fetched %d files", env.Requests.Load(), res.FilesFetched)
	}

	// Step 3: a change deep in the tree is picked up.
	writeTree(t, env.ServerDir, map[string]string{
		"Airports/K/S/F/KSFO.threshold.xml": "<PropertyList><runway/><runway/></PropertyList>",
	})
	regenerate(t, env.ServerDir)
	res, err = s.Sync(ctx, vpath.Root())
	if err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if res.FilesFetched != 1 {
		t.Errorf("FilesFetched = %d, want 1", res.FilesFetched)
	}
	assertSameFile(t, env, "Airports/K/S/F/KSFO.threshold.xml")

	// Step 4: the local tree verifies clean.
	report, err := s.Verify(ctx, vpath.Root())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.OK() {
		t.Errorf("verify problems: %v", report.Problems)
	}
}
