// Package remote retrieves raw resources from a TerraSync server. It is the
// read collaborator of the dirindex parser: it fetches index text and file
// contents by virtual path and reports transport failures as IOError.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/terrasync-labs/terrasync/internal/dirindex"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// ErrNotFound is wrapped by IOError when the server has no such resource.
var ErrNotFound = errors.New("resource not found")

// Reader fetches resources by virtual path.
type Reader interface {
	// Read returns the whole resource.
	Read(ctx context.Context, p vpath.Path) ([]byte, error)
	// Open streams the resource. size is -1 when unknown.
	Open(ctx context.Context, p vpath.Path) (rc io.ReadCloser, size int64, err error)
}

// IOError reports a resource that could not be retrieved.
type IOError struct {
	Path       vpath.Path
	StatusCode int // 0 when not an HTTP failure
	Err        error
}

func (e *IOError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: status %d: %v", e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IndexPath returns the location of the index describing dir.
func IndexPath(dir vpath.Path) vpath.Path {
	return dir.MustJoin(dirindex.FileName)
}

// FetchIndex reads and parses the index of dir. The raw text is returned as
// well so callers can verify it against the digest published by the parent.
func FetchIndex(ctx context.Context, r Reader, dir vpath.Path) (*dirindex.DirIndex, []byte, error) {
	text, err := r.Read(ctx, IndexPath(dir))
	if err != nil {
		return nil, nil, err
	}
	idx, err := dirindex.Parse(text, dir)
	if err != nil {
		return nil, text, err
	}
	return idx, text, nil
}

// NewReader returns a reader for a server location. http and https URLs are
// read with an HTTPReader configured by opts; file URLs and plain paths are
// read from the local filesystem.
func NewReader(location string, opts ...Option) (Reader, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTPReader(location, opts...)
	case strings.HasPrefix(location, "file://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("parsing server URL %q: %w", location, err)
		}
		return NewDirReader(u.Path), nil
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("server URL %q: unsupported scheme", location)
	case location == "":
		return nil, errors.New("no server configured")
	default:
		return NewDirReader(location), nil
	}
}
