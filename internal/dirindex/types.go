package dirindex

import (
	"slices"

	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// FileName is the name under which a directory publishes its index.
const FileName = ".dirindex"

// Record kinds understood by the parser.
const (
	KindVersion   = "version"
	KindPath      = "path"
	KindDirectory = "d"
	KindFile      = "f"
	KindTarball   = "t"
)

// CurrentVersion is the format version written by this package.
const CurrentVersion = 1

// supportedVersions lists every format version the parser can interpret.
var supportedVersions = []int{CurrentVersion}

// DirectoryEntry describes a subdirectory. Hash is the digest of the
// subdirectory's own index and is treated as an opaque string.
type DirectoryEntry struct {
	Name string `json:"name" yaml:"name"`
	Hash string `json:"hash" yaml:"hash"`
}

// FileEntry describes a plain file.
type FileEntry struct {
	Name string `json:"name" yaml:"name"`
	Hash string `json:"hash" yaml:"hash"`
	Size int64  `json:"size" yaml:"size"`
}

// TarballEntry describes an archive offered as a single download.
type TarballEntry struct {
	Name string `json:"name" yaml:"name"`
	Hash string `json:"hash" yaml:"hash"`
	Size int64  `json:"size" yaml:"size"`
}

// DirIndex is a parsed directory index. It is never modified after
// construction and is safe for concurrent use.
type DirIndex struct {
	version     int
	path        vpath.Path
	location    vpath.Path
	directories []DirectoryEntry
	files       []FileEntry
	tarballs    []TarballEntry
}

// Version returns the declared format version.
func (d *DirIndex) Version() int { return d.version }

// Path returns the directory the index declares it describes.
func (d *DirIndex) Path() vpath.Path { return d.path }

// Location returns where the index was read from.
func (d *DirIndex) Location() vpath.Path { return d.location }

// Directories returns the subdirectory entries in source order.
func (d *DirIndex) Directories() []DirectoryEntry { return slices.Clone(d.directories) }

// Files returns the file entries in source order.
func (d *DirIndex) Files() []FileEntry { return slices.Clone(d.files) }

// Tarballs returns the tarball entries in source order.
func (d *DirIndex) Tarballs() []TarballEntry { return slices.Clone(d.tarballs) }

// Len returns the total number of entries across all categories.
func (d *DirIndex) Len() int {
	return len(d.directories) + len(d.files) + len(d.tarballs)
}

// TotalSize sums the sizes of files and tarballs.
func (d *DirIndex) TotalSize() int64 {
	var total int64
	for _, f := range d.files {
		total += f.Size
	}
	for _, t := range d.tarballs {
		total += t.Size
	}
	return total
}

// Directory returns the first directory entry with the given name.
func (d *DirIndex) Directory(name string) (DirectoryEntry, bool) {
	i := slices.IndexFunc(d.directories, func(e DirectoryEntry) bool { return e.Name == name })
	if i < 0 {
		return DirectoryEntry{}, false
	}
	return d.directories[i], true
}

// File returns the first file entry with the given name.
func (d *DirIndex) File(name string) (FileEntry, bool) {
	i := slices.IndexFunc(d.files, func(e FileEntry) bool { return e.Name == name })
	if i < 0 {
		return FileEntry{}, false
	}
	return d.files[i], true
}

// Tarball returns the first tarball entry with the given name.
func (d *DirIndex) Tarball(name string) (TarballEntry, bool) {
	i := slices.IndexFunc(d.tarballs, func(e TarballEntry) bool { return e.Name == name })
	if i < 0 {
		return TarballEntry{}, false
	}
	return d.tarballs[i], true
}

// Equal reports whether two indexes declare the same version, path and
// entries in the same order. The location they were read from is ignored.
func (d *DirIndex) Equal(other *DirIndex) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.version == other.version &&
		d.path == other.path &&
		slices.Equal(d.directories, other.directories) &&
		slices.Equal(d.files, other.files) &&
		slices.Equal(d.tarballs, other.tarballs)
}
