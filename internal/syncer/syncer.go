package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/terrasync-labs/terrasync/internal/digest"
	"github.com/terrasync-labs/terrasync/internal/dirindex"
	"github.com/terrasync-labs/terrasync/internal/indexcache"
	"github.com/terrasync-labs/terrasync/internal/remote"
	"github.com/terrasync-labs/terrasync/internal/vpath"
	"golang.org/x/sync/errgroup"
)

// DefaultJobs is the number of parallel downloads per directory.
const DefaultJobs = 4

// Result summarizes a sync run.
type Result struct {
	DirsVisited     int
	DirsSkipped     int
	FilesFetched    int
	TarballsFetched int
	BytesFetched    int64
	Removed         int
	UpToDate        int
	// Plans holds one plan per visited directory in dry-run mode.
	Plans []*Plan
}

// Syncer mirrors a remote tree below a local root.
type Syncer struct {
	reader remote.Reader
	root   string
	jobs   int
	dryRun bool
	logger *log.Logger
	cache  *indexcache.Cache
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithJobs sets the number of parallel downloads.
func WithJobs(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.jobs = n
		}
	}
}

// WithDryRun makes Sync compute plans without changing anything locally.
func WithDryRun(dryRun bool) Option {
	return func(s *Syncer) {
		s.dryRun = dryRun
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(l *log.Logger) Option {
	return func(s *Syncer) {
		s.logger = l
	}
}

// WithCache shares a parsed-index cache between runs.
func WithCache(c *indexcache.Cache) Option {
	return func(s *Syncer) {
		s.cache = c
	}
}

// New creates a Syncer reading from r into the local directory root.
func New(r remote.Reader, root string, opts ...Option) (*Syncer, error) {
	s := &Syncer{
		reader: r,
		root:   root,
		jobs:   DefaultJobs,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		c, err := indexcache.New(indexcache.DefaultSize)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}
	return s, nil
}

// LocalPath maps a virtual path to its location below the local root.
func (s *Syncer) LocalPath(p vpath.Path) string {
	return filepath.Join(s.root, filepath.FromSlash(p.Relative()))
}

type run struct {
	mu     sync.Mutex
	result Result
}

func (r *run) update(fn func(*Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.result)
}

// Sync mirrors the subtree at p. Without a parent index there is no expected
// hash for p, so its index is always fetched.
func (s *Syncer) Sync(ctx context.Context, p vpath.Path) (*Result, error) {
	st := &run{}
	err := s.syncDir(ctx, p, "", st)
	if err == nil && !s.dryRun && p.IsRoot() {
		if werr := WriteFreshnessMarker(s.root); werr != nil {
			s.logger.Warn("writing freshness marker", "err", werr)
		}
	}
	return &st.result, err
}

func (s *Syncer) syncDir(ctx context.Context, p vpath.Path, expectedHash string, st *run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	localDir := s.LocalPath(p)
	localIndex := filepath.Join(localDir, dirindex.FileName)

	prevText, err := os.ReadFile(localIndex)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading local index %s: %w", localIndex, err)
	}
	if expectedHash != "" && prevText != nil && digest.Equal(digest.Bytes(prevText), expectedHash) {
		s.logger.Debug("up to date", "path", p)
		st.update(func(r *Result) { r.DirsSkipped++ })
		return nil
	}

	idx, text, err := remote.FetchIndex(ctx, s.reader, p)
	if err != nil {
		return fmt.Errorf("syncing %s: %w", p, err)
	}
	if expectedHash != "" {
		if err := digest.Check(remote.IndexPath(p).String(), expectedHash, -1, digest.Bytes(text), int64(len(text))); err != nil {
			return fmt.Errorf("syncing %s: %w", p, err)
		}
	}
	if idx.Path() != p {
		s.logger.Warn("index declares a different path", "location", p, "declared", idx.Path())
	}

	var previous *dirindex.DirIndex
	if prevText != nil {
		previous, err = s.cache.Parse(p, prevText)
		if err != nil {
			s.logger.Warn("ignoring unreadable local index", "path", p, "err", err)
			s.cache.Remove(p)
			previous = nil
		}
	}

	plan := BuildPlan(p, idx, previous, dirState(localDir))
	st.update(func(r *Result) {
		r.DirsVisited++
		r.UpToDate += plan.UpToDate
		if s.dryRun {
			r.Plans = append(r.Plans, plan)
		}
	})
	s.logger.Info("syncing", "path", p,
		"fetch", len(plan.Fetch), "tarballs", len(plan.Tarballs),
		"remove", len(plan.Remove), "visit", len(plan.Visit))

	if !s.dryRun {
		if err := s.apply(ctx, localDir, plan, idx, st); err != nil {
			return fmt.Errorf("syncing %s: %w", p, err)
		}
	}

	for _, d := range plan.Visit {
		child, err := p.Join(d.Name)
		if err != nil {
			return fmt.Errorf("syncing %s: %w", p, err)
		}
		if err := s.syncDir(ctx, child, d.Hash, st); err != nil {
			return err
		}
	}

	if s.dryRun {
		return nil
	}
	// Written last so an interrupted run revisits this directory.
	if err := writeAtomic(localIndex, text); err != nil {
		return fmt.Errorf("writing local index %s: %w", localIndex, err)
	}
	s.cache.Add(p, digest.Bytes(text), idx)
	return nil
}

// apply performs the local changes of one directory's plan. Archives are
// unpacked one at a time once every download is verified, and never over a
// file or archive that idx lists.
func (s *Syncer) apply(ctx context.Context, localDir string, plan *Plan, idx *dirindex.DirIndex, st *run) error {
	if err := os.MkdirAll(localDir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	for _, name := range plan.Remove {
		target := filepath.Join(localDir, name)
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("removing %s: %w", target, err)
		}
		s.logger.Debug("removed", "path", plan.Path.MustJoin(name))
		st.update(func(r *Result) { r.Removed++ })
	}
	for _, d := range plan.Visit {
		// A plain file may sit where a directory is now expected.
		target := filepath.Join(localDir, d.Name)
		if info, err := os.Lstat(target); err == nil && !info.IsDir() {
			if err := os.Remove(target); err != nil {
				return fmt.Errorf("replacing %s with a directory: %w", target, err)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)
	for _, f := range plan.Fetch {
		g.Go(func() error {
			n, err := s.download(gctx, plan.Path.MustJoin(f.Name), filepath.Join(localDir, f.Name), f.Hash, f.Size)
			if err != nil {
				return err
			}
			st.update(func(r *Result) {
				r.FilesFetched++
				r.BytesFetched += n
			})
			return nil
		})
	}
	for _, t := range plan.Tarballs {
		g.Go(func() error {
			n, err := s.download(gctx, plan.Path.MustJoin(t.Name), filepath.Join(localDir, t.Name), t.Hash, t.Size)
			if err != nil {
				return err
			}
			st.update(func(r *Result) {
				r.TarballsFetched++
				r.BytesFetched += n
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	listed := func(name string) bool {
		_, isFile := idx.File(name)
		_, isTarball := idx.Tarball(name)
		return isFile || isTarball
	}
	for _, t := range plan.Tarballs {
		if !IsTarball(t.Name) {
			continue
		}
		if err := ExtractTarball(filepath.Join(localDir, t.Name), localDir, listed); err != nil {
			return fmt.Errorf("extracting %s: %w", t.Name, err)
		}
	}
	return nil
}
