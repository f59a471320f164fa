package dirindex

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// New builds an index from already-known entries, applying the same checks
// the parser applies. Names must also be representable in the wire format.
func New(version int, path vpath.Path, dirs []DirectoryEntry, files []FileEntry, tarballs []TarballEntry) (*DirIndex, error) {
	if !slices.Contains(supportedVersions, version) {
		return nil, &UnsupportedVersionError{Location: path, Version: version}
	}
	var errs []error
	if err := CheckPath(path); err != nil {
		errs = append(errs, err)
	}
	check := func(kind, name, hash string, size int64) {
		if err := CheckName(name); err != nil {
			errs = append(errs, fmt.Errorf("%s entry: %w", kind, err))
			return
		}
		if hash == "" || strings.IndexFunc(hash, unicode.IsSpace) >= 0 {
			errs = append(errs, fmt.Errorf("%s entry %q: invalid hash %q", kind, name, hash))
		} else if _, err := recordSeparator(name, hash); err != nil {
			errs = append(errs, fmt.Errorf("%s entry %q: %w", kind, name, err))
		}
		if size < 0 {
			errs = append(errs, fmt.Errorf("%s entry %q: negative size %d", kind, name, size))
		}
	}
	for _, d := range dirs {
		check(KindDirectory, d.Name, d.Hash, 0)
	}
	for _, f := range files {
		check(KindFile, f.Name, f.Hash, f.Size)
	}
	for _, t := range tarballs {
		check(KindTarball, t.Name, t.Hash, t.Size)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("building index for %s: %w", path, errors.Join(errs...))
	}

	return &DirIndex{
		version:     version,
		path:        path,
		location:    path,
		directories: slices.Clone(dirs),
		files:       slices.Clone(files),
		tarballs:    slices.Clone(tarballs),
	}, nil
}

// WriteTo writes the index in the wire format. Records use the colon form
// unless a field contains ':'.
func (d *DirIndex) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	writeRecord(&buf, KindVersion, strconv.Itoa(d.version))
	writeRecord(&buf, KindPath, d.path.Relative())
	for _, e := range d.directories {
		writeRecord(&buf, KindDirectory, e.Name, e.Hash)
	}
	for _, e := range d.files {
		writeRecord(&buf, KindFile, e.Name, e.Hash, strconv.FormatInt(e.Size, 10))
	}
	for _, e := range d.tarballs {
		writeRecord(&buf, KindTarball, e.Name, e.Hash, strconv.FormatInt(e.Size, 10))
	}
	return buf.WriteTo(w)
}

// MarshalText implements encoding.TextMarshaler using the wire format.
func (d *DirIndex) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CheckName reports whether name can appear as an entry name in an index.
func CheckName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	_, err := recordSeparator(name)
	return err
}

// CheckPath reports whether p can appear in a path record.
func CheckPath(p vpath.Path) error {
	_, err := recordSeparator(p.Relative())
	return err
}

// recordSeparator picks the separator for a record holding fields. Records
// are colon-separated unless a field contains ':', in which case they are
// whitespace-separated and no field may contain whitespace.
func recordSeparator(fields ...string) (string, error) {
	if !slices.ContainsFunc(fields, func(f string) bool { return strings.Contains(f, fieldSeparator) }) {
		return fieldSeparator, nil
	}
	for _, f := range fields {
		if strings.IndexFunc(f, unicode.IsSpace) >= 0 {
			return "", fmt.Errorf("%q contains both %q and whitespace", f, fieldSeparator)
		}
	}
	return " ", nil
}

func writeRecord(buf *bytes.Buffer, kind string, fields ...string) {
	sep, err := recordSeparator(fields...)
	if err != nil {
		sep = fieldSeparator
	}
	buf.WriteString(kind)
	for _, f := range fields {
		buf.WriteString(sep)
		buf.WriteString(f)
	}
	buf.WriteByte('\n')
}
