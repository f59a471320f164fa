package gen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/terrasync-labs/terrasync/internal/digest"
	"github.com/terrasync-labs/terrasync/internal/dirindex"
	"github.com/terrasync-labs/terrasync/internal/syncer"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// Result counts what a Generate call wrote.
type Result struct {
	Directories int
	Files       int
	Tarballs    int
	Bytes       int64
	Skipped     []string
}

type options struct {
	logger *log.Logger
	dryRun bool
}

// Option configures Generate.
type Option func(*options)

// WithLogger sets the logger for progress messages.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDryRun computes every index without writing any of them.
func WithDryRun(dryRun bool) Option {
	return func(o *options) { o.dryRun = dryRun }
}

// Generate writes a .dirindex into the directory at p below root and into
// every subdirectory. Hidden entries (names starting with ".") are not
// listed. Gzip-compressed tar archives are listed as tarballs. Entries whose
// names cannot be represented in an index, and anything that is not a
// regular file or directory, are skipped and reported in Result.Skipped.
// The index generated for p is returned.
func Generate(root string, p vpath.Path, opts ...Option) (*dirindex.DirIndex, *Result, error) {
	o := &options{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(o)
	}
	res := &Result{}
	idx, _, err := generateDir(root, p, o, res)
	if err != nil {
		return nil, res, err
	}
	return idx, res, nil
}

// generateDir returns the index of p and the digest of its serialized form.
func generateDir(root string, p vpath.Path, o *options, res *Result) (*dirindex.DirIndex, string, error) {
	dir := filepath.Join(root, filepath.FromSlash(p.Relative()))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", dir, err)
	}

	var (
		dirs     []dirindex.DirectoryEntry
		files    []dirindex.FileEntry
		tarballs []dirindex.TarballEntry
	)
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		child, err := p.Join(name)
		if err == nil {
			err = dirindex.CheckName(name)
		}
		if err == nil && e.IsDir() {
			err = dirindex.CheckPath(child)
		}
		if err != nil {
			o.logger.Warn("skipping unrepresentable name", "dir", p, "name", name, "err", err)
			res.Skipped = append(res.Skipped, filepath.Join(dir, name))
			continue
		}

		switch {
		case e.IsDir():
			_, hash, err := generateDir(root, child, o, res)
			if err != nil {
				return nil, "", err
			}
			dirs = append(dirs, dirindex.DirectoryEntry{Name: name, Hash: hash})
		case e.Type().IsRegular():
			hash, size, err := digest.File(filepath.Join(dir, name))
			if err != nil {
				return nil, "", err
			}
			res.Bytes += size
			if syncer.IsTarball(name) {
				tarballs = append(tarballs, dirindex.TarballEntry{Name: name, Hash: hash, Size: size})
				res.Tarballs++
			} else {
				files = append(files, dirindex.FileEntry{Name: name, Hash: hash, Size: size})
				res.Files++
			}
		default:
			o.logger.Warn("skipping non-regular file", "path", child)
			res.Skipped = append(res.Skipped, filepath.Join(dir, name))
		}
	}

	idx, err := dirindex.New(dirindex.CurrentVersion, p, dirs, files, tarballs)
	if err != nil {
		return nil, "", fmt.Errorf("building index for %s: %w", p, err)
	}
	text, err := idx.MarshalText()
	if err != nil {
		return nil, "", err
	}
	if !o.dryRun {
		if err := os.WriteFile(filepath.Join(dir, dirindex.FileName), text, 0644); err != nil {
			return nil, "", fmt.Errorf("writing index for %s: %w", p, err)
		}
	}
	res.Directories++
	o.logger.Debug("generated", "path", p, "dirs", len(dirs), "files", len(files), "tarballs", len(tarballs))
	return idx, digest.Bytes(text), nil
}
