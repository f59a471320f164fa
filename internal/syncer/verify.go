package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/terrasync-labs/terrasync/internal/digest"
	"github.com/terrasync-labs/terrasync/internal/dirindex"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// Problem is one discrepancy found by Verify.
type Problem struct {
	Path vpath.Path
	Err  error
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %v", p.Path, p.Err)
}

// Report is the outcome of Verify.
type Report struct {
	Directories int
	Files       int
	Bytes       int64
	Problems    []Problem
}

// OK reports whether no problems were found.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

// Verify checks the local tree below p against the indexes stored in it by
// previous syncs. Every listed file and tarball must exist with the listed
// hash and size, and every listed subdirectory must hold an index whose
// digest matches the parent's entry. Problems are collected, not returned as
// errors; the returned error is reserved for cancellation.
func (s *Syncer) Verify(ctx context.Context, p vpath.Path) (*Report, error) {
	report := &Report{}
	err := s.verifyDir(ctx, p, "", report)
	return report, err
}

func (s *Syncer) verifyDir(ctx context.Context, p vpath.Path, expectedHash string, report *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	localDir := s.LocalPath(p)
	indexPath := p.MustJoin(dirindex.FileName)

	text, err := os.ReadFile(filepath.Join(localDir, dirindex.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = errors.New("missing directory index")
		}
		report.Problems = append(report.Problems, Problem{Path: indexPath, Err: err})
		return nil
	}
	if expectedHash != "" {
		if err := digest.Check(indexPath.String(), expectedHash, -1, digest.Bytes(text), int64(len(text))); err != nil {
			report.Problems = append(report.Problems, Problem{Path: indexPath, Err: err})
		}
	}
	idx, err := s.cache.Parse(p, text)
	if err != nil {
		report.Problems = append(report.Problems, Problem{Path: indexPath, Err: err})
		return nil
	}
	report.Directories++

	check := func(name, hash string, size int64) {
		target := p.MustJoin(name)
		if err := digest.VerifyFile(filepath.Join(localDir, name), hash, size); err != nil {
			report.Problems = append(report.Problems, Problem{Path: target, Err: err})
			return
		}
		report.Files++
		report.Bytes += size
	}
	for _, f := range idx.Files() {
		check(f.Name, f.Hash, f.Size)
	}
	for _, t := range idx.Tarballs() {
		check(t.Name, t.Hash, t.Size)
	}
	for _, d := range idx.Directories() {
		if err := s.verifyDir(ctx, p.MustJoin(d.Name), d.Hash, report); err != nil {
			return err
		}
	}
	return nil
}
