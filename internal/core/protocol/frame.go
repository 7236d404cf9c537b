// Package protocol defines the request/response frames used to move sealed
// scenes between a client and a server, independent of the transport.
package protocol

import (
	"context"
	stdbinary "encoding/binary"
	"fmt"
	"io"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
)

// DefaultMaxFrameSize bounds a single frame on the wire.
const DefaultMaxFrameSize = 16 << 20

const lengthPrefixSize = 8

type Op uint8

const (
	OpGet Op = iota + 1
	OpPut
	OpList
	OpDelete
	OpOK
	OpError
)

func (o Op) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpPut:
		return "put"
	case OpList:
		return "list"
	case OpDelete:
		return "delete"
	case OpOK:
		return "ok"
	case OpError:
		return "error"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// IsRequest reports whether o is sent by clients.
func (o Op) IsRequest() bool {
	return o >= OpGet && o <= OpDelete
}

// Frame is one request or reply. Replies carry the ID of their request.
type Frame struct {
	ID      uint32
	Op      Op
	Name    string
	Payload []byte

	// Token authenticates requests when the server requires one.
	Token string

	// Set on OpError replies only.
	Code    ErrorCode
	Message string
}

func (f *Frame) Export(w *binary.Writer) {
	w.WriteUint("id", uint64(f.ID))
	w.WriteUint("op", uint64(f.Op))
	if f.Name != "" {
		w.WriteString("name", f.Name)
	}
	if len(f.Payload) > 0 {
		w.WriteBytes("payload", f.Payload)
	}
	if f.Token != "" {
		w.WriteString("token", f.Token)
	}
	if f.Op == OpError {
		w.WriteInt("code", int64(f.Code))
		w.WriteString("message", f.Message)
	}
}

func (f *Frame) Insert(r *binary.Reader) error {
	if !r.Has("op") {
		return fmt.Errorf("%w: missing op", ErrInvalidFrame)
	}
	id, err := r.ReadUint("id", 0)
	if err != nil {
		return err
	}
	op, err := r.ReadUint("op", 0)
	if err != nil {
		return err
	}
	name, err := r.ReadString("name", "")
	if err != nil {
		return err
	}
	payload, err := r.ReadBytes("payload", nil)
	if err != nil {
		return err
	}
	token, err := r.ReadString("token", "")
	if err != nil {
		return err
	}
	code, err := r.ReadInt("code", 0)
	if err != nil {
		return err
	}
	msg, err := r.ReadString("message", "")
	if err != nil {
		return err
	}
	if id > uint64(^uint32(0)) || op == 0 || op > uint64(OpError) {
		return fmt.Errorf("%w: id %d op %d", ErrInvalidFrame, id, op)
	}

	*f = Frame{
		ID:      uint32(id),
		Op:      Op(op),
		Name:    name,
		Payload: payload,
		Token:   token,
		Code:    ErrorCode(code),
		Message: msg,
	}
	return nil
}

// Err returns the error carried by an OpError frame, nil otherwise.
func (f *Frame) Err() error {
	if f.Op != OpError {
		return nil
	}
	return &Error{Code: f.Code, Message: f.Message}
}

func MarshalFrame(f *Frame) []byte {
	return binary.Marshal(f)
}

func UnmarshalFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := binary.Unmarshal(context.Background(), data, nil, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	return &f, nil
}

// WriteFrame writes f to w behind an 8-byte big-endian length header.
func WriteFrame(w io.Writer, f *Frame, maxSize int) error {
	data := MarshalFrame(f)
	if maxSize > 0 && len(data) > maxSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(data), maxSize)
	}

	buf := make([]byte, lengthPrefixSize+len(data))
	stdbinary.BigEndian.PutUint64(buf, uint64(len(data)))
	copy(buf[lengthPrefixSize:], data)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame written by WriteFrame. A clean end of stream
// before the header is returned as io.EOF.
func ReadFrame(r io.Reader, maxSize int) (*Frame, error) {
	var header [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := stdbinary.BigEndian.Uint64(header[:])
	if maxSize > 0 && size > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, maxSize)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return UnmarshalFrame(data)
}

// ErrorFrame builds the OpError reply to req.
func ErrorFrame(req *Frame, err error) *Frame {
	pe := WrapError(err, "request failed")
	msg := pe.Message
	if pe.Cause != nil {
		msg = pe.Cause.Error()
	}
	return &Frame{ID: req.ID, Op: OpError, Name: req.Name, Code: pe.Code, Message: msg}
}
