package syncer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/terrasync-labs/terrasync/internal/digest"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// fileMode is applied to installed files; temp files start out as 0600.
const fileMode os.FileMode = 0644

// download streams the remote file at p into dest, checking its digest and
// size on the way. dest is only replaced once the content is verified.
func (s *Syncer) download(ctx context.Context, p vpath.Path, dest, hash string, size int64) (int64, error) {
	rc, _, err := s.reader.Open(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", p, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".terrasync-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file for %s: %w", p, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	actual, n, err := digest.Reader(io.TeeReader(rc, tmp))
	if err != nil {
		return n, fmt.Errorf("downloading %s: %w", p, err)
	}
	if err := digest.Check(p.String(), hash, size, actual, n); err != nil {
		return n, err
	}
	if err := tmp.Chmod(fileMode); err != nil {
		return n, fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return n, fmt.Errorf("installing %s: %w", dest, err)
	}
	committed = true
	s.logger.Debug("fetched", "path", p, "bytes", n)
	return n, nil
}

// writeAtomic replaces path with data through a temp file in the same
// directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".terrasync-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
