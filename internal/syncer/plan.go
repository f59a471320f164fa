package syncer

import (
	"os"
	"path/filepath"

	"github.com/terrasync-labs/terrasync/internal/dirindex"
	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// LocalState answers questions about the local copy of one directory.
type LocalState interface {
	// Exists reports whether an entry called name is present locally.
	Exists(name string) bool
}

// dirState is the LocalState of a directory on disk.
type dirState string

func (d dirState) Exists(name string) bool {
	_, err := os.Lstat(filepath.Join(string(d), name))
	return err == nil
}

// Plan lists what must change for one directory to match its remote index.
type Plan struct {
	Path     vpath.Path
	Visit    []dirindex.DirectoryEntry
	Fetch    []dirindex.FileEntry
	Tarballs []dirindex.TarballEntry
	Remove   []string
	UpToDate int
}

// Empty reports whether the directory itself needs no work. Subdirectories
// listed in Visit may still differ.
func (p *Plan) Empty() bool {
	return len(p.Fetch) == 0 && len(p.Tarballs) == 0 && len(p.Remove) == 0
}

// FetchSize is the number of bytes the plan downloads.
func (p *Plan) FetchSize() int64 {
	var total int64
	for _, f := range p.Fetch {
		total += f.Size
	}
	for _, t := range p.Tarballs {
		total += t.Size
	}
	return total
}

type entryKind int

const (
	kindDirectory entryKind = iota
	kindFile
	kindTarball
)

type prevEntry struct {
	kind entryKind
	hash string
}

// BuildPlan compares the remote index of a directory with the index that was
// synced last time (nil when there is none) and the local state.
//
// An entry is up to date when the previous index lists it with the same hash
// in the same category and it exists locally. Names the previous index lists
// that the remote one no longer has, or that changed category, are removed.
// A name is planned once: directories take precedence over files, files
// over tarballs, and within a category the first entry wins.
func BuildPlan(p vpath.Path, remote, previous *dirindex.DirIndex, local LocalState) *Plan {
	plan := &Plan{Path: p}

	prev := map[string]prevEntry{}
	if previous != nil {
		// Insert in reverse so the first occurrence overwrites later ones.
		dirs, files, tarballs := previous.Directories(), previous.Files(), previous.Tarballs()
		for i := len(tarballs) - 1; i >= 0; i-- {
			prev[tarballs[i].Name] = prevEntry{kindTarball, tarballs[i].Hash}
		}
		for i := len(files) - 1; i >= 0; i-- {
			prev[files[i].Name] = prevEntry{kindFile, files[i].Hash}
		}
		for i := len(dirs) - 1; i >= 0; i-- {
			prev[dirs[i].Name] = prevEntry{kindDirectory, dirs[i].Hash}
		}
	}

	current := map[string]entryKind{}
	upToDate := func(name string, kind entryKind, hash string) bool {
		e, ok := prev[name]
		return ok && e.kind == kind && e.hash == hash && local.Exists(name)
	}

	for _, d := range remote.Directories() {
		if _, dup := current[d.Name]; dup {
			continue
		}
		current[d.Name] = kindDirectory
		if upToDate(d.Name, kindDirectory, d.Hash) {
			plan.UpToDate++
			continue
		}
		plan.Visit = append(plan.Visit, d)
	}
	for _, f := range remote.Files() {
		if _, dup := current[f.Name]; dup {
			continue
		}
		current[f.Name] = kindFile
		if upToDate(f.Name, kindFile, f.Hash) {
			plan.UpToDate++
			continue
		}
		plan.Fetch = append(plan.Fetch, f)
	}
	for _, t := range remote.Tarballs() {
		if _, dup := current[t.Name]; dup {
			continue
		}
		current[t.Name] = kindTarball
		if upToDate(t.Name, kindTarball, t.Hash) {
			plan.UpToDate++
			continue
		}
		plan.Tarballs = append(plan.Tarballs, t)
	}

	if previous != nil {
		for _, name := range previousNames(previous) {
			kind, still := current[name]
			if !still || kind != prev[name].kind {
				plan.Remove = append(plan.Remove, name)
			}
		}
	}
	return plan
}

// previousNames lists the distinct names of an index in source order.
func previousNames(idx *dirindex.DirIndex) []string {
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, d := range idx.Directories() {
		add(d.Name)
	}
	for _, f := range idx.Files() {
		add(f.Name)
	}
	for _, t := range idx.Tarballs() {
		add(t.Name)
	}
	return names
}
