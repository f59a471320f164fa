package dirindex

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/terrasync-labs/terrasync/internal/vpath"
)

// fieldSeparator splits the fields of a record in the wire format.
const fieldSeparator = ":"

// fieldCounts is the number of fields (kind excluded) each known kind takes.
var fieldCounts = map[string]int{
	KindVersion:   1,
	KindPath:      1,
	KindDirectory: 2,
	KindFile:      3,
	KindTarball:   3,
}

// ParseString is Parse for text held in a string.
func ParseString(text string, location vpath.Path) (*DirIndex, error) {
	return Parse([]byte(text), location)
}

// Parse reads a directory index fetched from location.
//
// Records are separated by LF, CRLF or CR. Blank lines and lines starting
// with '#' are skipped. A record whose kind is followed by ':' has its
// fields separated by ':'. A record whose kind is followed by whitespace is
// split on runs of whitespace, and its fields may then contain ':'. Unknown
// record kinds are ignored so newer servers can add records without breaking
// older clients.
func Parse(text []byte, location vpath.Path) (*DirIndex, error) {
	p := parser{location: location}
	for i, raw := range splitLines(string(text)) {
		if err := p.parseLine(i+1, raw); err != nil {
			return nil, err
		}
	}
	return p.finish()
}

type parser struct {
	location vpath.Path

	version     int
	versionLine int
	path        vpath.Path
	pathLine    int

	directories []DirectoryEntry
	files       []FileEntry
	tarballs    []TarballEntry
}

func (p *parser) malformed(line int, err error, format string, args ...any) error {
	return &MalformedRecordError{
		Location: p.location,
		Line:     line,
		Reason:   fmt.Sprintf(format, args...),
		Err:      err,
	}
}

func (p *parser) parseLine(line int, raw string) error {
	text := strings.TrimSpace(raw)
	if text == "" || strings.HasPrefix(text, "#") {
		return nil
	}

	tokens := tokenize(text)
	kind, fields := tokens[0], tokens[1:]
	want, known := fieldCounts[kind]
	if !known {
		return nil
	}
	if len(fields) != want {
		return p.malformed(line, nil, "%q record has %d fields, want %d", kind, len(fields), want)
	}

	switch kind {
	case KindVersion:
		if p.versionLine != 0 {
			return p.malformed(line, nil, "duplicate version record (first on line %d)", p.versionLine)
		}
		v, err := parseUnsigned(fields[0], 31)
		if err != nil {
			return p.malformed(line, err, "invalid version %q", fields[0])
		}
		if v == 0 {
			return p.malformed(line, nil, "version 0 is not positive")
		}
		p.version, p.versionLine = int(v), line

	case KindPath:
		if p.pathLine != 0 {
			return p.malformed(line, nil, "duplicate path record (first on line %d)", p.pathLine)
		}
		declared, err := vpath.Parse(fields[0])
		if err != nil {
			return p.malformed(line, err, "invalid path")
		}
		p.path, p.pathLine = declared, line

	case KindDirectory:
		if err := p.checkEntry(line, kind, fields[0], fields[1]); err != nil {
			return err
		}
		p.directories = append(p.directories, DirectoryEntry{Name: fields[0], Hash: fields[1]})

	case KindFile, KindTarball:
		if err := p.checkEntry(line, kind, fields[0], fields[1]); err != nil {
			return err
		}
		size, err := parseUnsigned(fields[2], 63)
		if err != nil {
			return p.malformed(line, err, "invalid size %q", fields[2])
		}
		if kind == KindFile {
			p.files = append(p.files, FileEntry{Name: fields[0], Hash: fields[1], Size: size})
		} else {
			p.tarballs = append(p.tarballs, TarballEntry{Name: fields[0], Hash: fields[1], Size: size})
		}
	}
	return nil
}

func (p *parser) checkEntry(line int, kind, name, hash string) error {
	if err := validateName(name); err != nil {
		return p.malformed(line, err, "invalid %q entry name", kind)
	}
	if hash == "" {
		return p.malformed(line, nil, "%q entry %q has an empty hash", kind, name)
	}
	return nil
}

func (p *parser) finish() (*DirIndex, error) {
	if p.versionLine == 0 {
		return nil, fmt.Errorf("%s: %w", p.location, ErrMissingVersion)
	}
	if p.pathLine == 0 {
		return nil, fmt.Errorf("%s: %w", p.location, ErrMissingPath)
	}
	if !slices.Contains(supportedVersions, p.version) {
		return nil, &UnsupportedVersionError{Location: p.location, Version: p.version}
	}
	return &DirIndex{
		version:     p.version,
		path:        p.path,
		location:    p.location,
		directories: p.directories,
		files:       p.files,
		tarballs:    p.tarballs,
	}, nil
}

// tokenize splits a non-empty, trimmed record into its kind and fields. The
// delimiter that ends the kind decides the form of the whole record, so
// fields of a whitespace-form record may contain ':'.
func tokenize(text string) []string {
	i := strings.IndexFunc(text, isKindDelimiter)
	if i >= 0 && text[i] == fieldSeparator[0] {
		return strings.Split(text, fieldSeparator)
	}
	return strings.Fields(text)
}

func isKindDelimiter(r rune) bool {
	return r == rune(fieldSeparator[0]) || unicode.IsSpace(r)
}

// validateName accepts a single path segment: no separator, no relative
// reference, nothing the vpath package would refuse.
func validateName(name string) error {
	_, err := vpath.Root().Join(name)
	return err
}

// errLeadingZero rejects numbers such as "01", which have no canonical form.
var errLeadingZero = errors.New("leading zero")

// parseUnsigned accepts canonical decimal integers of at most bits bits: no
// sign and no leading zeros.
func parseUnsigned(s string, bits int) (int64, error) {
	n, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, err
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, errLeadingZero
	}
	return int64(n), nil
}

// splitLines splits text on LF, CRLF and lone CR.
func splitLines(text string) []string {
	var lines []string
	for len(text) > 0 {
		i := strings.IndexAny(text, "\r\n")
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i])
		if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
			i++
		}
		text = text[i+1:]
	}
	return lines
}
