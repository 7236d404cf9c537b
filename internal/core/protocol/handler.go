package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
)

// HandlerFunc answers one request frame. It always returns a reply; failures
// are reported as OpError frames.
type HandlerFunc func(ctx context.Context, req *Frame) *Frame

type Middleware func(next HandlerFunc) HandlerFunc

// Chain wraps h so that the first middleware runs outermost.
func Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Handler serves scene requests from a storage.Service.
type Handler struct {
	service *storage.Service
}

func NewHandler(service *storage.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Handle(ctx context.Context, req *Frame) *Frame {
	payload, err := h.dispatch(ctx, req)
	if err != nil {
		return ErrorFrame(req, err)
	}
	return &Frame{ID: req.ID, Op: OpOK, Name: req.Name, Payload: payload}
}

func (h *Handler) dispatch(ctx context.Context, req *Frame) ([]byte, error) {
	switch req.Op {
	case OpGet:
		return h.service.GetRaw(ctx, req.Name)
	case OpPut:
		return nil, h.service.PutRaw(ctx, req.Name, req.Payload)
	case OpList:
		names, err := h.service.ListScenes(ctx)
		if err != nil {
			return nil, err
		}
		return EncodeNames(names), nil
	case OpDelete:
		return nil, h.service.DeleteScene(ctx, req.Name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOp, req.Op)
	}
}

// EncodeNames is the payload of an OpList reply.
func EncodeNames(names []string) []byte {
	w := binary.NewWriter()
	w.WriteStrings("names", names)
	return w.Bytes()
}

func DecodeNames(payload []byte) ([]string, error) {
	r, err := binary.NewReader(context.Background(), payload, nil)
	if err != nil {
		return nil, err
	}
	return r.ReadStrings("names", []string{})
}

// ServeStream answers frames read from rw until the peer closes its side or
// ctx is done. A malformed frame is answered with an OpError reply and ends
// the stream.
func ServeStream(ctx context.Context, rw io.ReadWriter, h HandlerFunc, maxFrameSize int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := ReadFrame(rw, maxFrameSize)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if errors.Is(err, ErrFrameTooLarge) || errors.Is(err, ErrInvalidFrame) {
				_ = WriteFrame(rw, ErrorFrame(&Frame{}, err), 0)
			}
			return err
		}

		if err = WriteFrame(rw, h(ctx, req), maxFrameSize); err != nil {
			return err
		}
	}
}
