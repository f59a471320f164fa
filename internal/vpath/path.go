package vpath

import (
	"errors"
	"fmt"
	"strings"
)

// Separator is the only separator understood inside a virtual path.
const Separator = "/"

// ErrInvalidPath is wrapped by every InvalidPathError.
var ErrInvalidPath = errors.New("invalid virtual path")

// InvalidPathError reports a path string that cannot be normalized without
// guessing what the author meant.
type InvalidPathError struct {
	Input   string
	Segment string
	Reason  string
}

func (e *InvalidPathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("invalid virtual path %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid virtual path %q: segment %q %s", e.Input, e.Segment, e.Reason)
}

func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// Path is a normalized virtual path. The zero value is the root.
//
// The canonical form is stored with a leading separator and no trailing one
// ("/some/path"), which keeps == and map lookups structural.
type Path struct {
	canonical string
}

// Root returns the root path "/".
func Root() Path { return Path{} }

// Parse normalizes s into a Path. Repeated separators collapse and leading or
// trailing separators are dropped, so "some/path", "/some/path/" and
// "some//path" are equal.
func Parse(s string) (Path, error) {
	var segments []string
	for _, seg := range strings.Split(s, Separator) {
		if seg == "" {
			continue
		}
		if err := checkSegment(seg); err != nil {
			err.Input = s
			return Path{}, err
		}
		segments = append(segments, seg)
	}
	return fromSegments(segments), nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func fromSegments(segments []string) Path {
	if len(segments) == 0 {
		return Path{}
	}
	return Path{canonical: Separator + strings.Join(segments, Separator)}
}

// checkSegment rejects segments whose meaning depends on interpretation.
func checkSegment(seg string) *InvalidPathError {
	switch {
	case seg == "." || seg == "..":
		return &InvalidPathError{Segment: seg, Reason: "is a relative reference"}
	case strings.Contains(seg, `\`):
		return &InvalidPathError{Segment: seg, Reason: "mixes separator styles"}
	case strings.ContainsAny(seg, "\x00\r\n"):
		return &InvalidPathError{Segment: seg, Reason: "contains a control character"}
	}
	return nil
}

// Join returns a new path with segment appended. The receiver is unchanged.
func (p Path) Join(segment string) (Path, error) {
	if segment == "" {
		return Path{}, &InvalidPathError{Input: segment, Reason: "empty segment"}
	}
	if strings.Contains(segment, Separator) {
		return Path{}, &InvalidPathError{Input: segment, Segment: segment, Reason: "contains a separator"}
	}
	if err := checkSegment(segment); err != nil {
		err.Input = segment
		return Path{}, err
	}
	return Path{canonical: p.canonical + Separator + segment}, nil
}

// MustJoin is like Join but panics on error.
func (p Path) MustJoin(segment string) Path {
	child, err := p.Join(segment)
	if err != nil {
		panic(err)
	}
	return child
}

// Segments returns a copy of the path's segments. The root has none.
func (p Path) Segments() []string {
	if p.canonical == "" {
		return nil
	}
	return strings.Split(p.canonical[1:], Separator)
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool { return p.canonical == "" }

// Name returns the last segment, or "" for the root.
func (p Path) Name() string {
	i := strings.LastIndex(p.canonical, Separator)
	if i < 0 {
		return ""
	}
	return p.canonical[i+1:]
}

// Parent returns the path without its last segment. The root is its own parent.
func (p Path) Parent() Path {
	i := strings.LastIndex(p.canonical, Separator)
	if i <= 0 {
		return Path{}
	}
	return Path{canonical: p.canonical[:i]}
}

// Equal reports whether both paths have the same segments.
func (p Path) Equal(other Path) bool { return p.canonical == other.canonical }

// String renders the canonical form, "/" for the root.
func (p Path) String() string {
	if p.canonical == "" {
		return Separator
	}
	return p.canonical
}

// Relative renders the path without the leading separator, "" for the root.
// This is the form used in "path" records of a directory index.
func (p Path) Relative() string {
	return strings.TrimPrefix(p.canonical, Separator)
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
