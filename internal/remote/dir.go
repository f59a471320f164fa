package remote

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// DirReader serves resources from a local directory laid out like the
// server, e.g. a mounted mirror or the output of "terrasync gen".
type DirReader struct {
	Root string
}

// NewDirReader returns a reader rooted at dir.
func NewDirReader(dir string) *DirReader {
	return &DirReader{Root: dir}
}

// LocalPath maps a virtual path below the root to a filesystem path.
func (r *DirReader) LocalPath(p vpath.Path) string {
	return filepath.Join(r.Root, filepath.FromSlash(p.Relative()))
}

// Open opens the file for p.
func (r *DirReader) Open(ctx context.Context, p vpath.Path) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, &IOError{Path: p, Err: err}
	}
	f, err := os.Open(r.LocalPath(p))
	if err != nil {
		return nil, 0, wrapFSError(p, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, wrapFSError(p, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, &IOError{Path: p, Err: ErrNotFound}
	}
	return f, info.Size(), nil
}

// Read returns the contents of the file for p.
func (r *DirReader) Read(ctx context.Context, p vpath.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &IOError{Path: p, Err: err}
	}
	data, err := os.ReadFile(r.LocalPath(p))
	if err != nil {
		return nil, wrapFSError(p, err)
	}
	return data, nil
}

func wrapFSError(p vpath.Path, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &IOError{Path: p, Err: errors.Join(ErrNotFound, err)}
	}
	return &IOError{Path: p, Err: err}
}
