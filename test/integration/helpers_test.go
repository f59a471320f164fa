//go:build integration

package integration_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/terrasync-labs/terrasync/internal/gen"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// testEnv holds an indexed server tree, the HTTP server publishing it and an
// empty local scenery directory.
type testEnv struct {
	ServerDir string
	LocalDir  string
	Server    *httptest.Server
	Requests  *atomic.Int64
}

// setupTestEnv builds a scenery tree, indexes it and serves it over HTTP
// below /ts/.
func setupTestEnv(t *testing.T, files map[string]string) *testEnv {
	t.Helper()

	env := &testEnv{
		ServerDir: t.TempDir(),
		LocalDir:  t.TempDir(),
		Requests:  new(atomic.Int64),
	}
	writeTree(t, env.ServerDir, files)
	regenerate(t, env.ServerDir)

	fileServer := http.StripPrefix("/ts", http.FileServer(http.Dir(env.ServerDir)))
	env.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.Requests.Add(1)
		fileServer.ServeHTTP(w, r)
	}))
	t.Cleanup(env.Server.Close)
	return env
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func regenerate(t *testing.T, root string) {
	t.Helper()
	if _, _, err := gen.Generate(root, vpath.Root()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

// assertSameFile fails unless rel has the same content in both trees.
func assertSameFile(t *testing.T, env *testEnv, rel string) {
	t.Helper()
	want, err := os.ReadFile(filepath.Join(env.ServerDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading server copy of %s: %v", rel, err)
	}
	got, err := os.ReadFile(filepath.Join(env.LocalDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading local copy of %s: %v", rel, err)
	}
	if string(got) != string(want) {
		t.Errorf("%s: local content %q, want %q", rel, got, want)
	}
}
