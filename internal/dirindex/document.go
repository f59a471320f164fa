package dirindex

import (
	"fmt"

	"github.com/terrasync-labs/terrasync/internal/vpath"
	"go.yaml.in/yaml/v3"
)

// Document is the structured form of an index used for JSON and YAML
// rendering and for hand-written index sources.
type Document struct {
	Version     int              `json:"version" yaml:"version"`
	Path        vpath.Path       `json:"path" yaml:"path"`
	Directories []DirectoryEntry `json:"directories" yaml:"directories"`
	Files       []FileEntry      `json:"files" yaml:"files"`
	Tarballs    []TarballEntry   `json:"tarballs" yaml:"tarballs"`
}

// Document returns a structured copy of the index.
func (d *DirIndex) Document() Document {
	return Document{
		Version:     d.version,
		Path:        d.path,
		Directories: d.Directories(),
		Files:       d.Files(),
		Tarballs:    d.Tarballs(),
	}
}

// FromDocument builds an index from its structured form.
func FromDocument(doc Document) (*DirIndex, error) {
	return New(doc.Version, doc.Path, doc.Directories, doc.Files, doc.Tarballs)
}

// DecodeDocument validates YAML or JSON data against the document schema and
// builds the index it describes. Schema violations are returned in the
// ValidationResult with a nil index and a nil error.
func DecodeDocument(data []byte) (*DirIndex, *ValidationResult, error) {
	result, err := ValidateDocument(data)
	if err != nil {
		return nil, nil, err
	}
	if !result.Valid {
		return nil, result, nil
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decoding index document: %w", err)
	}
	idx, err := FromDocument(doc)
	if err != nil {
		return nil, nil, err
	}
	return idx, result, nil
}
