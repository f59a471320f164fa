package syncer_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/terrasync-labs/terrasync/internal/digest"
	"github.com/terrasync-labs/terrasync/internal/dirindex"
	"github.com/terrasync-labs/terrasync/internal/gen"
	"github.com/terrasync-labs/terrasync/internal/indexcache"
	"github.com/terrasync-labs/terrasync/internal/remote"
	"github.com/terrasync-labs/terrasync/internal/syncer"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// newServerTree builds a small scenery tree with generated indexes.
func newServerTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README"), "scenery\n")
	writeFile(t, filepath.Join(root, "Models", "some file.xml"), "<PropertyList/>")
	writeFile(t, filepath.Join(root, "Models", "Power", "pylon.ac"), "AC3Db\n")
	writeFile(t, filepath.Join(root, "Terrain", "e000n40", "2203.stg"), "OBJECT_BASE 2203.btg\n")
	regenerate(t, root)
	return root
}

func regenerate(t *testing.T, root string) {
	t.Helper()
	if _, _, err := gen.Generate(root, vpath.Root()); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
}

func newSyncer(t *testing.T, server, local string, opts ...syncer.Option) *syncer.Syncer {
	t.Helper()
	s, err := syncer.New(remote.NewDirReader(server), local, opts...)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return s
}

func TestSync_Fresh(t *testing.T) {
	server := newServerTree(t)
	local := t.TempDir()

	res, err := newSyncer(t, server, local, syncer.WithJobs(2)).Sync(context.Background(), vpath.Root())
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if res.DirsVisited != 5 || res.FilesFetched != 4 {
		t.Errorf("Result = %+v", res)
	}

	for _, rel := range []string{
		"README",
		"Models/some file.xml",
		"Models/Power/pylon.ac",
		"Terrain/e000n40/2203.stg",
		".dirindex",
		"Models/.dirindex",
		"Models/Power/.dirindex",
	} {
		want := readFile(t, filepath.Join(server, rel))
		if got := readFile(t, filepath.Join(local, rel)); got != want {
			t.Errorf("%s = %q, want %q", rel, got, want)
		}
	}
	if syncer.IsStale(local, time.Hour) {
		t.Error("freshness marker not written")
	}
}

func TestSync_Incremental(t *testing.T) {
	server := newServerTree(t)
	local := t.TempDir()
	s := newSyncer(t, server, local)
	ctx := context.Background()

	if _, err := s.Sync(ctx, vpath.Root()); err != nil {
		t.Fatal(err)
	}

	res, err := s.Sync(ctx, vpath.Root())
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesFetched != 0 || res.DirsVisited != 1 {
		t.Errorf("unchanged tree: Result = %+v", res)
	}

	writeFile(t, filepath.Join(server, "Models", "Power", "pylon.ac"), "AC3Db\nOBJECT world\n")
	if err := os.Remove(filepath.Join(server, "README")); err != nil {
		t.Fatal(err)
	}
	regenerate(t, server)

	res, err = s.Sync(ctx, vpath.Root())
	if err != nil {
		t.Fatal(err)
	}
	// Root, Models and Models/Power changed; Terrain did not.
	if res.DirsVisited != 3 || res.FilesFetched != 1 || res.Removed != 1 {
		t.Errorf("changed tree: Result = %+v", res)
	}
	if got := readFile(t, filepath.Join(local, "Models", "Power", "pylon.ac")); got != "AC3Db\nOBJECT world\n" {
		t.Errorf("pylon.ac = %q", got)
	}
	if _, err := os.Stat(filepath.Join(local, "README")); !os.IsNotExist(err) {
		t.Error("README was not removed")
	}
}

func TestSync_ChecksumMismatch(t *testing.T) {
	server := newServerTree(t)
	writeFile(t, filepath.Join(server, "README"), "tampered\n")
	local := t.TempDir()

	_, err := newSyncer(t, server, local).Sync(context.Background(), vpath.Root())
	var mismatch *digest.MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want MismatchError", err)
	}
	if _, err := os.Stat(filepath.Join(local, "README")); !os.IsNotExist(err) {
		t.Error("unverified file was installed")
	}
	if _, err := os.Stat(filepath.Join(local, dirindex.FileName)); !os.IsNotExist(err) {
		t.Error("index written after a failed sync")
	}
}

func TestSync_DryRun(t *testing.T) {
	server := newServerTree(t)
	local := t.TempDir()

	res, err := newSyncer(t, server, local, syncer.WithDryRun(true)).Sync(context.Background(), vpath.Root())
	if err != nil {
		t.Fatal(err)
	}
	// One plan per directory, parents first.
	if len(res.Plans) != 5 {
		t.Fatalf("Plans = %d, want 5", len(res.Plans))
	}
	if !res.Plans[0].Path.IsRoot() {
		t.Errorf("first plan is for %q", res.Plans[0].Path)
	}
	if got := len(res.Plans[0].Visit); got != 2 {
		t.Errorf("root Visit = %d, want 2", got)
	}
	entries, err := os.ReadDir(local)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("dry run wrote %d entries", len(entries))
	}
}

func TestSync_Subtree(t *testing.T) {
	server := newServerTree(t)
	local := t.TempDir()

	if _, err := newSyncer(t, server, local).Sync(context.Background(), vpath.MustParse("Models")); err != nil {
		t.Fatal(err)
	}
	if readFile(t, filepath.Join(local, "Models", "Power", "pylon.ac")) != "AC3Db\n" {
		t.Error("subtree not synced")
	}
	if _, err := os.Stat(filepath.Join(local, "Terrain")); !os.IsNotExist(err) {
		t.Error("sync went outside the requested subtree")
	}
	if !syncer.IsStale(local, time.Hour) {
		t.Error("partial sync wrote the freshness marker")
	}
}

func TestSync_Canceled(t *testing.T) {
	server := newServerTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newSyncer(t, server, t.TempDir()).Sync(ctx, vpath.Root()); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func makeTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSync_Tarball(t *testing.T) {
	server := t.TempDir()
	archive := makeTarball(t, map[string]string{"Airports/K/KSFO.twr.xml": "<tower/>"})
	if err := os.WriteFile(filepath.Join(server, "Airports_archive.tgz"), archive, 0644); err != nil {
		t.Fatal(err)
	}
	regenerate(t, server)
	local := t.TempDir()

	res, err := newSyncer(t, server, local).Sync(context.Background(), vpath.Root())
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if res.TarballsFetched != 1 {
		t.Errorf("TarballsFetched = %d", res.TarballsFetched)
	}
	if got := readFile(t, filepath.Join(local, "Airports", "K", "KSFO.twr.xml")); got != "<tower/>" {
		t.Errorf("extracted content = %q", got)
	}
}

func TestExtractTarball_RejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.tgz")
	if err := os.WriteFile(archive, makeTarball(t, map[string]string{"../escape.txt": "x"}), 0644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	if err := syncer.ExtractTarball(archive, dest, nil); err == nil {
		t.Fatal("expected error for an escaping entry")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("escaping entry was written")
	}
}

func TestExtractTarball_Skip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "pack.tgz")
	files := map[string]string{
		"keep.txt":        "archive",
		"listed.txt":      "archive",
		"listed/deep.txt": "archive",
		"Sub/listed.txt":  "archive",
	}
	if err := os.WriteFile(archive, makeTarball(t, files), 0644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	skip := func(name string) bool { return name == "listed.txt" || name == "listed" }
	if err := syncer.ExtractTarball(archive, dest, skip); err != nil {
		t.Fatalf("ExtractTarball error: %v", err)
	}

	tests := []struct {
		rel     string
		present bool
	}{
		{"keep.txt", true},
		{"listed.txt", false},
		{"listed/deep.txt", false},
		{"Sub/listed.txt", true},
	}
	for _, tt := range tests {
		_, err := os.Stat(filepath.Join(dest, filepath.FromSlash(tt.rel)))
		if present := err == nil; present != tt.present {
			t.Errorf("%s extracted = %v, want %v", tt.rel, present, tt.present)
		}
	}
}

func TestSync_TarballDoesNotOverwriteListedFiles(t *testing.T) {
	server := t.TempDir()
	writeFile(t, filepath.Join(server, "README"), "verified\n")
	archive := makeTarball(t, map[string]string{
		"README":       "from archive\n",
		"Objects/a.ac": "AC3Db\n",
	})
	if err := os.WriteFile(filepath.Join(server, "pack.tgz"), archive, 0644); err != nil {
		t.Fatal(err)
	}
	regenerate(t, server)
	local := t.TempDir()

	if _, err := newSyncer(t, server, local, syncer.WithJobs(4)).Sync(context.Background(), vpath.Root()); err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if got := readFile(t, filepath.Join(local, "README")); got != "verified\n" {
		t.Errorf("README = %q, want the listed content", got)
	}
	if got := readFile(t, filepath.Join(local, "Objects", "a.ac")); got != "AC3Db\n" {
		t.Errorf("Objects/a.ac = %q", got)
	}
}

func TestSync_FileModes(t *testing.T) {
	server := newServerTree(t)
	local := t.TempDir()
	if _, err := newSyncer(t, server, local).Sync(context.Background(), vpath.Root()); err != nil {
		t.Fatalf("Sync error: %v", err)
	}

	tests := []string{"README", "Models/some file.xml", ".dirindex", "Models/.dirindex"}
	for _, rel := range tests {
		info, err := os.Stat(filepath.Join(local, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatal(err)
		}
		if mode := info.Mode().Perm(); mode != 0644 {
			t.Errorf("%s mode = %v, want %v", rel, mode, os.FileMode(0644))
		}
	}
}

func TestSync_DropsCachedIndexWhenLocalCopyIsCorrupt(t *testing.T) {
	server := newServerTree(t)
	local := t.TempDir()
	cache, err := indexcache.New(indexcache.DefaultSize)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := newSyncer(t, server, local, syncer.WithCache(cache)).Sync(ctx, vpath.Root()); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 5 {
		t.Fatalf("cache.Len() = %d after first sync, want 5", cache.Len())
	}

	writeFile(t, filepath.Join(local, "Models", dirindex.FileName), "not an index\n")
	dry := newSyncer(t, server, local, syncer.WithCache(cache), syncer.WithDryRun(true))
	if _, err := dry.Sync(ctx, vpath.Root()); err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if cache.Len() != 4 {
		t.Errorf("cache.Len() = %d, want 4", cache.Len())
	}
	serverText := readFile(t, filepath.Join(server, "Models", dirindex.FileName))
	if _, ok := cache.Get(vpath.MustParse("Models"), digest.Bytes([]byte(serverText))); ok {
		t.Error("index for Models still cached")
	}
}

func TestIsTarball(t *testing.T) {
	tests := map[string]bool{
		"a.tgz":    true,
		"a.TAR.GZ": true,
		"a.tar":    false,
		"a.gz":     false,
		"tgz":      false,
	}
	for name, want := range tests {
		if got := syncer.IsTarball(name); got != want {
			t.Errorf("IsTarball(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestVerify(t *testing.T) {
	server := newServerTree(t)
	local := t.TempDir()
	s := newSyncer(t, server, local)
	ctx := context.Background()
	if _, err := s.Sync(ctx, vpath.Root()); err != nil {
		t.Fatal(err)
	}

	report, err := s.Verify(ctx, vpath.Root())
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() || report.Directories != 5 || report.Files != 4 {
		t.Errorf("clean tree: report = %+v", report)
	}

	writeFile(t, filepath.Join(local, "Models", "some file.xml"), "edited")
	if err := os.Remove(filepath.Join(local, "Terrain", "e000n40", dirindex.FileName)); err != nil {
		t.Fatal(err)
	}
	report, err = s.Verify(ctx, vpath.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Problems) != 2 {
		t.Fatalf("Problems = %v, want 2", report.Problems)
	}
	var mismatch *digest.MismatchError
	if !errors.As(report.Problems[0].Err, &mismatch) {
		t.Errorf("first problem = %v, want MismatchError", report.Problems[0])
	}
	if report.Problems[1].Path.String() != "/Terrain/e000n40/.dirindex" {
		t.Errorf("second problem path = %q", report.Problems[1].Path)
	}
}

func TestFreshnessMarker(t *testing.T) {
	dir := t.TempDir()
	if !syncer.IsStale(dir, time.Hour) {
		t.Error("missing marker should be stale")
	}
	if err := syncer.WriteFreshnessMarker(dir); err != nil {
		t.Fatal(err)
	}
	if syncer.ReadFreshnessMarker(dir).IsZero() {
		t.Error("marker not readable")
	}
	if syncer.IsStale(dir, time.Hour) {
		t.Error("fresh marker reported stale")
	}
	if !syncer.IsStale(dir, -time.Second) {
		t.Error("negative max age should be stale")
	}
}
