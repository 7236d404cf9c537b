package binary

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated    = errors.New("binary: truncated stream")
	ErrUnknownKind  = errors.New("binary: unknown field kind")
	ErrKindMismatch = errors.New("binary: field kind mismatch")
	ErrNoResolver   = errors.New("binary: no asset resolver")
	ErrAssetType    = errors.New("binary: unexpected asset type")
)

// FormatError reports a stream whose shape does not match what a reader asked
// for. It aborts the enclosing Insert.
type FormatError struct {
	Field string
	Want  Kind
	Got   Kind
	Cause error
}

func (e *FormatError) Error() string {
	if e.Want != 0 && e.Got != 0 {
		return fmt.Sprintf("binary: field %q: want %s, got %s", e.Field, e.Want, e.Got)
	}
	return fmt.Sprintf("binary: field %q: %v", e.Field, e.Cause)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}
