package asset

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPath       = errors.New("asset: empty path")
	ErrAlreadyCached   = errors.New("asset: path already cached")
	ErrNoLoader        = errors.New("asset: no loader for extension")
	ErrDecode          = errors.New("asset: decode failed")
	ErrPathMismatch    = errors.New("asset: loader returned a different path")
	ErrCacheClosed     = errors.New("asset: cache closed")
	ErrAlreadyReleased = errors.New("asset: resource already released")
)

// LoadError reports a path that could not be resolved or decoded.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("asset: load %q: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ResourceError reports a failure acquiring or releasing the native resource
// behind an asset. It is never retried.
type ResourceError struct {
	Path  string
	Op    string
	Cause error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("asset: %s %q: %v", e.Op, e.Path, e.Cause)
}

func (e *ResourceError) Unwrap() error {
	return e.Cause
}

// wrapLoad wraps err into a *LoadError unless it already is one.
func wrapLoad(p string, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Path: p, Cause: err}
}
