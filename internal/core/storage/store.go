// Package storage persists sealed scene streams and turns them back into
// scenes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("storage: not found")
	ErrInvalidName        = errors.New("storage: invalid name")
	ErrBadMagic           = errors.New("storage: not a sealed scene")
	ErrUnsupportedVersion = errors.New("storage: unsupported envelope version")
	ErrChecksumMismatch   = errors.New("storage: checksum mismatch")
	ErrTruncated          = errors.New("storage: truncated envelope")
)

const maxNameLength = 128

// Store keeps opaque blobs by name.
type Store interface {
	// Put creates or replaces the blob stored under name.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns ErrNotFound when nothing is stored under name.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete is a no-op for absent names.
	Delete(ctx context.Context, name string) error
	// List returns the stored names in sorted order.
	List(ctx context.Context) ([]string, error)
	Close() error
}

// ValidateName accepts names made of letters, digits, '.', '-' and '_' that
// do not start with a dot.
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLength || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
