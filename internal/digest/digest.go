// Package digest computes and verifies the content hashes published in
// directory indexes. TerraSync servers use hex-encoded SHA-1.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Bytes returns the hex digest of b.
func Bytes(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

// Reader returns the hex digest of everything read from r and the number of
// bytes read.
func Reader(r io.Reader) (string, int64, error) {
	h := sha1.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("computing digest: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// File returns the hex digest and size of the file at path.
func File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening %s for digest: %w", path, err)
	}
	defer f.Close()
	return Reader(f)
}

// Equal compares two hex digests case-insensitively.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

// MismatchError reports content that does not match its index entry.
type MismatchError struct {
	Name         string
	ExpectedHash string
	ActualHash   string
	ExpectedSize int64
	ActualSize   int64
}

func (e *MismatchError) Error() string {
	if e.ExpectedSize >= 0 && e.ExpectedSize != e.ActualSize {
		return fmt.Sprintf("%s: size mismatch: expected %d bytes, got %d", e.Name, e.ExpectedSize, e.ActualSize)
	}
	return fmt.Sprintf("%s: checksum mismatch: expected %s, got %s", e.Name, e.ExpectedHash, e.ActualHash)
}

// Check compares a computed digest and size with the expected ones. A
// negative expectedSize skips the size comparison.
func Check(name, expectedHash string, expectedSize int64, actualHash string, actualSize int64) error {
	if (expectedSize >= 0 && expectedSize != actualSize) || !Equal(expectedHash, actualHash) {
		return &MismatchError{
			Name:         name,
			ExpectedHash: expectedHash,
			ActualHash:   actualHash,
			ExpectedSize: expectedSize,
			ActualSize:   actualSize,
		}
	}
	return nil
}

// VerifyFile checks the file at path against an expected digest and size.
func VerifyFile(path, expectedHash string, expectedSize int64) error {
	actualHash, actualSize, err := File(path)
	if err != nil {
		return err
	}
	return Check(path, expectedHash, expectedSize, actualHash, actualSize)
}
