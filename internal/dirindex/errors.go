package dirindex

import (
	"errors"
	"fmt"

	"github.com/terrasync-labs/terrasync/internal/vpath"
)

var (
	// ErrMissingVersion is returned when an index has no version record.
	ErrMissingVersion = errors.New("missing version record")
	// ErrMissingPath is returned when an index has no path record.
	ErrMissingPath = errors.New("missing path record")
)

// MalformedRecordError reports a record of a known kind that could not be
// interpreted. Line is 1-based.
type MalformedRecordError struct {
	Location vpath.Path
	Line     int
	Reason   string
	Err      error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("%s: line %d: %s", e.Location, e.Line, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// UnsupportedVersionError reports a well-formed version this package cannot
// interpret.
type UnsupportedVersionError struct {
	Location vpath.Path
	Version  int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("%s: unsupported directory index version %d", e.Location, e.Version)
}
