package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
	"github.com/alchemy-engine/alchemy/internal/core/protocol/protocoltest"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
)

func TestFrameStreamRoundTrip(t *testing.T) {
	frames := []*Frame{
		{ID: 1, Op: OpPut, Name: "level-1", Payload: []byte{1, 2, 3}, Token: "s3cret"},
		{ID: 2, Op: OpList},
		{ID: 2, Op: OpError, Code: ErrorCodeNotFound, Message: "gone"},
	}

	var buf bytes.Buffer
	for _, f := range frames {
		require.NoError(t, WriteFrame(&buf, f, DefaultMaxFrameSize))
	}
	for _, want := range frames {
		got, err := ReadFrame(&buf, DefaultMaxFrameSize)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Op, got.Op)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Payload, got.Payload)
		assert.Equal(t, want.Token, got.Token)
		assert.Equal(t, want.Code, got.Code)
		assert.Equal(t, want.Message, got.Message)
	}

	_, err := ReadFrame(&buf, DefaultMaxFrameSize)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameSizeLimits(t *testing.T) {
	big := &Frame{ID: 1, Op: OpPut, Name: "x", Payload: make([]byte, 1024)}

	var buf bytes.Buffer
	assert.ErrorIs(t, WriteFrame(&buf, big, 512), ErrFrameTooLarge)
	assert.Zero(t, buf.Len())

	require.NoError(t, WriteFrame(&buf, big, 0))
	_, err := ReadFrame(bytes.NewReader(buf.Bytes()), 512)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	_, err = ReadFrame(bytes.NewReader(buf.Bytes()[:buf.Len()-1]), 0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestUnmarshalFrameRejectsGarbage(t *testing.T) {
	_, err := UnmarshalFrame(nil)
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = UnmarshalFrame([]byte{0xff, 0xff})
	assert.ErrorIs(t, err, ErrInvalidFrame)

	w := binary.NewWriter()
	w.WriteUint("op", 42)
	_, err = UnmarshalFrame(w.Bytes())
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCode
	}{
		{fmt.Errorf("get: %w", storage.ErrNotFound), ErrorCodeNotFound},
		{storage.ErrInvalidName, ErrorCodeInvalidName},
		{storage.ErrChecksumMismatch, ErrorCodeChecksumMismatch},
		{storage.ErrBadMagic, ErrorCodeBadEnvelope},
		{&binary.FormatError{Field: "name", Cause: binary.ErrKindMismatch}, ErrorCodeMalformedScene},
		{ErrTooManyRequests, ErrorCodeTooManyRequests},
		{ErrUnauthorized, ErrorCodeUnauthorized},
		{NewProtocolError(ErrorCodeDialFailed, "dial", nil), ErrorCodeDialFailed},
		{errors.New("boom"), ErrorCodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GetErrorCode(tc.err), tc.err.Error())
	}
	assert.Nil(t, WrapError(nil, "nothing"))
}

func TestErrorFrameMatchesSentinel(t *testing.T) {
	reply := ErrorFrame(&Frame{ID: 9, Name: "level-1"}, fmt.Errorf("get: %w", storage.ErrNotFound))
	assert.Equal(t, uint32(9), reply.ID)
	assert.Equal(t, OpError, reply.Op)

	decoded, err := UnmarshalFrame(MarshalFrame(reply))
	require.NoError(t, err)

	err = decoded.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NotErrorIs(t, err, storage.ErrInvalidName)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrorCodeNotFound, pe.Code)
	assert.False(t, pe.IsTemporary())
	assert.Contains(t, pe.Message, "not found")

	assert.NoError(t, (&Frame{Op: OpOK}).Err())
}

func TestHandlerOperations(t *testing.T) {
	h := NewHandler(protocoltest.NewService())
	ctx := context.Background()
	sealed := protocoltest.SealedScene("level-1")

	reply := h.Handle(ctx, &Frame{ID: 1, Op: OpPut, Name: "level-1", Payload: sealed})
	require.NoError(t, reply.Err())
	assert.Equal(t, OpOK, reply.Op)
	assert.Equal(t, uint32(1), reply.ID)

	reply = h.Handle(ctx, &Frame{ID: 2, Op: OpGet, Name: "level-1"})
	require.NoError(t, reply.Err())
	assert.Equal(t, sealed, reply.Payload)

	reply = h.Handle(ctx, &Frame{ID: 3, Op: OpList})
	require.NoError(t, reply.Err())
	names, err := DecodeNames(reply.Payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"level-1"}, names)

	reply = h.Handle(ctx, &Frame{ID: 4, Op: OpDelete, Name: "level-1"})
	require.NoError(t, reply.Err())

	reply = h.Handle(ctx, &Frame{ID: 5, Op: OpGet, Name: "level-1"})
	assert.ErrorIs(t, reply.Err(), storage.ErrNotFound)
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	h := NewHandler(protocoltest.NewService())
	ctx := context.Background()

	reply := h.Handle(ctx, &Frame{ID: 1, Op: OpPut, Name: "level-1", Payload: []byte("not sealed")})
	assert.Equal(t, ErrorCodeBadEnvelope, reply.Code)

	reply = h.Handle(ctx, &Frame{ID: 2, Op: OpPut, Name: "../escape", Payload: protocoltest.SealedScene("x")})
	assert.ErrorIs(t, reply.Err(), storage.ErrInvalidName)

	reply = h.Handle(ctx, &Frame{ID: 3, Op: OpOK})
	assert.Equal(t, ErrorCodeUnknownOp, reply.Code)

	sealed := protocoltest.SealedScene("level-1")
	sealed[len(sealed)-1] ^= 0xff
	reply = h.Handle(ctx, &Frame{ID: 4, Op: OpPut, Name: "level-1", Payload: sealed})
	assert.ErrorIs(t, reply.Err(), storage.ErrChecksumMismatch)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *Frame) *Frame {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}
	h := Chain(func(_ context.Context, req *Frame) *Frame {
		order = append(order, "handler")
		return &Frame{ID: req.ID, Op: OpOK}
	}, mw("outer"), mw("inner"))

	h(context.Background(), &Frame{ID: 1, Op: OpList})
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestPeerContext(t *testing.T) {
	_, ok := PeerFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPeer(context.Background(), Peer{ID: "p1", Transport: "test"})
	p, ok := PeerFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "p1", p.ID)

	assert.False(t, Authenticated(ctx))
	assert.True(t, Authenticated(WithAuthenticated(ctx)))
}

func TestClientSendsToken(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	tokens := make(chan string, 2)
	h := func(_ context.Context, req *Frame) *Frame {
		tokens <- req.Token
		return &Frame{ID: req.ID, Op: OpOK}
	}
	go func() { _ = ServeStream(context.Background(), serverSide, h, DefaultMaxFrameSize) }()

	conn := NewStreamConn(clientSide, DefaultMaxFrameSize)
	ctx := context.Background()

	require.NoError(t, NewClient(conn, WithToken("s3cret")).Delete(ctx, "level-1"))
	assert.Equal(t, "s3cret", <-tokens)

	require.NoError(t, NewClient(conn).Delete(ctx, "level-1"))
	assert.Empty(t, <-tokens)
	require.NoError(t, conn.Close())
}

func TestUnauthorizedErrorMatchesSentinel(t *testing.T) {
	reply := ErrorFrame(&Frame{ID: 7, Op: OpPut, Name: "x"}, ErrUnauthorized)
	assert.Equal(t, ErrorCodeUnauthorized, reply.Code)
	assert.Equal(t, "unauthorized", reply.Code.String())
	assert.ErrorIs(t, reply.Err(), ErrUnauthorized)
}

func TestClientOverStream(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	h := NewHandler(protocoltest.NewService())

	done := make(chan error, 1)
	go func() {
		done <- ServeStream(context.Background(), serverSide, h.Handle, DefaultMaxFrameSize)
	}()

	c := NewClient(NewStreamConn(clientSide, DefaultMaxFrameSize))
	ctx := context.Background()
	sealed := protocoltest.SealedScene("level-1")

	require.NoError(t, c.Put(ctx, "level-1", sealed))
	require.NoError(t, c.Put(ctx, "level-2", protocoltest.SealedScene("level-2")))

	got, err := c.Get(ctx, "level-1")
	require.NoError(t, err)
	assert.Equal(t, sealed, got)

	names, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"level-1", "level-2"}, names)

	require.NoError(t, c.Delete(ctx, "level-2"))
	_, err = c.Get(ctx, "level-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, c.Close())
	assert.NoError(t, <-done)
}

func TestServeStreamAnswersOversizedFrame(t *testing.T) {
	var in, out bytes.Buffer
	require.NoError(t, WriteFrame(&in, &Frame{ID: 1, Op: OpPut, Name: "x", Payload: make([]byte, 256)}, 0))
	rw := struct {
		io.Reader
		io.Writer
	}{&in, &out}

	h := NewHandler(protocoltest.NewService())
	err := ServeStream(context.Background(), rw, h.Handle, 64)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	reply, err := ReadFrame(&out, 0)
	require.NoError(t, err)
	assert.Equal(t, ErrorCodeFrameTooLarge, reply.Code)
}
