// Package indexcache keeps recently parsed directory indexes in memory so a
// sync run does not re-read and re-parse the same local index repeatedly.
package indexcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/terrasync-labs/terrasync/internal/digest"
	"github.com/terrasync-labs/terrasync/internal/dirindex"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// DefaultSize is the number of indexes kept when no size is configured.
const DefaultSize = 1024

type entry struct {
	hash  string
	index *dirindex.DirIndex
}

// Cache maps directory paths to the last index parsed for them. Entries are
// tagged with the digest of the text they were parsed from, so a lookup with
// a different digest is a miss. Safe for concurrent use.
type Cache struct {
	lru *lru.Cache[vpath.Path, entry]
}

// New creates a cache holding at most size indexes.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[vpath.Path, entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating index cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Get returns the index cached for p if it was parsed from text with the
// given digest.
func (c *Cache) Get(p vpath.Path, hash string) (*dirindex.DirIndex, bool) {
	e, ok := c.lru.Get(p)
	if !ok || !digest.Equal(e.hash, hash) {
		return nil, false
	}
	return e.index, true
}

// Add records idx as the index parsed for p from text with the given digest.
func (c *Cache) Add(p vpath.Path, hash string, idx *dirindex.DirIndex) {
	c.lru.Add(p, entry{hash: hash, index: idx})
}

// Parse returns the cached index for text when present, otherwise parses it
// and caches the result. Parse failures are not cached.
func (c *Cache) Parse(p vpath.Path, text []byte) (*dirindex.DirIndex, error) {
	hash := digest.Bytes(text)
	if idx, ok := c.Get(p, hash); ok {
		return idx, nil
	}
	idx, err := dirindex.Parse(text, p)
	if err != nil {
		return nil, err
	}
	c.Add(p, hash, idx)
	return idx, nil
}

// Remove drops the entry for p.
func (c *Cache) Remove(p vpath.Path) {
	c.lru.Remove(p)
}

// Len returns the number of cached indexes.
func (c *Cache) Len() int {
	return c.lru.Len()
}
