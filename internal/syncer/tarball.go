package syncer

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// IsTarball reports whether name looks like a gzip-compressed tar archive.
func IsTarball(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".tgz") || strings.HasSuffix(lower, ".tar.gz")
}

// ExtractTarball unpacks the gzip-compressed tar archive at archive into
// destDir. Entries that would land outside destDir are rejected. Only
// directories and regular files are extracted. Entries whose first path
// element satisfies skip are left out; skip may be nil.
func ExtractTarball(archive, destDir string, skip func(name string) bool) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading gzip header: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		name := filepath.FromSlash(strings.TrimPrefix(hdr.Name, "./"))
		if name == "" || name == "." {
			continue
		}
		if !filepath.IsLocal(name) {
			return fmt.Errorf("tar entry %q escapes the destination", hdr.Name)
		}
		if skip != nil {
			top, _, _ := strings.Cut(filepath.ToSlash(name), "/")
			if skip(top) {
				continue
			}
		}
		target := filepath.Join(destDir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := extractFile(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("extracting %s: %w", hdr.Name, err)
			}
		}
	}
}

func extractFile(r io.Reader, target string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
