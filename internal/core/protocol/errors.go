package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
)

// Transport and framing errors
var (
	ErrFrameTooLarge     = errors.New("frame too large")
	ErrInvalidFrame      = errors.New("invalid frame")
	ErrUnknownOp         = errors.New("unknown operation")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrUnexpectedReply   = errors.New("unexpected reply")
	ErrDialFailed        = errors.New("dial failed")
	ErrTooManyRequests   = errors.New("too many requests")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrUnauthorized      = errors.New("unauthorized")
)

// ErrorCode is the numeric code carried by OpError frames.
type ErrorCode int

const (
	// Framing errors (1000-1999)
	ErrorCodeFrameTooLarge ErrorCode = 1001
	ErrorCodeInvalidFrame  ErrorCode = 1002
	ErrorCodeUnknownOp     ErrorCode = 1003

	// Request errors (2000-2999)
	ErrorCodeInvalidName     ErrorCode = 2001
	ErrorCodeTooManyRequests ErrorCode = 2002
	ErrorCodeUnauthorized    ErrorCode = 2003

	// Data errors (3000-3999)
	ErrorCodeNotFound         ErrorCode = 3001
	ErrorCodeChecksumMismatch ErrorCode = 3002
	ErrorCodeBadEnvelope      ErrorCode = 3003
	ErrorCodeMalformedScene   ErrorCode = 3004

	// Connection errors (4000-4999)
	ErrorCodeConnectionClosed ErrorCode = 4001
	ErrorCodeDialFailed       ErrorCode = 4002

	ErrorCodeInternal ErrorCode = 9001
	ErrorCodeUnknown  ErrorCode = 9999
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeFrameTooLarge:
		return "frame_too_large"
	case ErrorCodeInvalidFrame:
		return "invalid_frame"
	case ErrorCodeUnknownOp:
		return "unknown_op"
	case ErrorCodeInvalidName:
		return "invalid_name"
	case ErrorCodeTooManyRequests:
		return "too_many_requests"
	case ErrorCodeUnauthorized:
		return "unauthorized"
	case ErrorCodeNotFound:
		return "not_found"
	case ErrorCodeChecksumMismatch:
		return "checksum_mismatch"
	case ErrorCodeBadEnvelope:
		return "bad_envelope"
	case ErrorCodeMalformedScene:
		return "malformed_scene"
	case ErrorCodeConnectionClosed:
		return "connection_closed"
	case ErrorCodeDialFailed:
		return "dial_failed"
	case ErrorCodeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a protocol error with a code that survives the trip over the wire.
type Error struct {
	Code      ErrorCode
	Message   string
	Cause     error
	Context   map[string]any
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors decoded from OpError frames match the sentinels they were
// produced from, so errors.Is(err, storage.ErrNotFound) works on the client.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	if s, ok := sentinelFor[e.Code]; ok {
		return errors.Is(s, target)
	}
	return false
}

func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsTemporary reports whether retrying the request may succeed.
func (e *Error) IsTemporary() bool {
	switch e.Code {
	case ErrorCodeTooManyRequests, ErrorCodeConnectionClosed, ErrorCodeDialFailed:
		return true
	default:
		return false
	}
}

func NewProtocolError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

var sentinelFor = map[ErrorCode]error{
	ErrorCodeFrameTooLarge:    ErrFrameTooLarge,
	ErrorCodeInvalidFrame:     ErrInvalidFrame,
	ErrorCodeUnknownOp:        ErrUnknownOp,
	ErrorCodeInvalidName:      storage.ErrInvalidName,
	ErrorCodeTooManyRequests:  ErrTooManyRequests,
	ErrorCodeUnauthorized:     ErrUnauthorized,
	ErrorCodeNotFound:         storage.ErrNotFound,
	ErrorCodeChecksumMismatch: storage.ErrChecksumMismatch,
	ErrorCodeConnectionClosed: ErrConnectionClosed,
	ErrorCodeDialFailed:       ErrDialFailed,
}

// GetErrorCode maps err to the code sent to peers.
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return 0
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}

	var fe *binary.FormatError
	switch {
	case errors.Is(err, ErrFrameTooLarge):
		return ErrorCodeFrameTooLarge
	case errors.Is(err, ErrInvalidFrame):
		return ErrorCodeInvalidFrame
	case errors.Is(err, ErrUnknownOp):
		return ErrorCodeUnknownOp
	case errors.Is(err, ErrTooManyRequests):
		return ErrorCodeTooManyRequests
	case errors.Is(err, ErrUnauthorized):
		return ErrorCodeUnauthorized
	case errors.Is(err, storage.ErrInvalidName):
		return ErrorCodeInvalidName
	case errors.Is(err, storage.ErrNotFound):
		return ErrorCodeNotFound
	case errors.Is(err, storage.ErrChecksumMismatch):
		return ErrorCodeChecksumMismatch
	case errors.Is(err, storage.ErrBadMagic),
		errors.Is(err, storage.ErrUnsupportedVersion),
		errors.Is(err, storage.ErrTruncated):
		return ErrorCodeBadEnvelope
	case errors.As(err, &fe), errors.Is(err, binary.ErrTruncated), errors.Is(err, binary.ErrUnknownKind):
		return ErrorCodeMalformedScene
	case errors.Is(err, ErrConnectionClosed):
		return ErrorCodeConnectionClosed
	case errors.Is(err, ErrDialFailed):
		return ErrorCodeDialFailed
	default:
		return ErrorCodeInternal
	}
}

// WrapError turns err into an *Error, keeping the code of an existing one.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return NewProtocolError(GetErrorCode(err), message, err)
}
