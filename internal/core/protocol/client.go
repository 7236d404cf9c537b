package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Conn sends a request and waits for its reply. Implementations are safe for
// concurrent use.
type Conn interface {
	RoundTrip(ctx context.Context, req *Frame) (*Frame, error)
	Close() error
}

// Client issues scene requests over a Conn.
type Client struct {
	conn   Conn
	token  string
	nextID atomic.Uint32
}

type ClientOption func(*Client)

// WithToken attaches token to every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

func NewClient(conn Conn, opts ...ClientOption) *Client {
	c := &Client{conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Conn() Conn {
	return c.conn
}

// Get returns the sealed scene stored under name.
func (c *Client) Get(ctx context.Context, name string) ([]byte, error) {
	reply, err := c.do(ctx, OpGet, name, nil)
	if err != nil {
		return nil, err
	}
	return reply.Payload, nil
}

// Put stores a sealed scene under name.
func (c *Client) Put(ctx context.Context, name string, sealed []byte) error {
	_, err := c.do(ctx, OpPut, name, sealed)
	return err
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	reply, err := c.do(ctx, OpList, "", nil)
	if err != nil {
		return nil, err
	}
	return DecodeNames(reply.Payload)
}

func (c *Client) Delete(ctx context.Context, name string) error {
	_, err := c.do(ctx, OpDelete, name, nil)
	return err
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) do(ctx context.Context, op Op, name string, payload []byte) (*Frame, error) {
	req := &Frame{ID: c.nextID.Add(1), Op: op, Name: name, Payload: payload, Token: c.token}
	reply, err := c.conn.RoundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if reply.ID != req.ID {
		return nil, fmt.Errorf("%w: id %d, want %d", ErrUnexpectedReply, reply.ID, req.ID)
	}
	if err = reply.Err(); err != nil {
		return nil, err
	}
	if reply.Op != OpOK {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Op)
	}
	return reply, nil
}

// StreamConn runs round trips one at a time over a single byte stream framed
// with WriteFrame and ReadFrame.
type StreamConn struct {
	mu           sync.Mutex
	rwc          io.ReadWriteCloser
	maxFrameSize int
}

func NewStreamConn(rwc io.ReadWriteCloser, maxFrameSize int) *StreamConn {
	return &StreamConn{rwc: rwc, maxFrameSize: maxFrameSize}
}

func (c *StreamConn) RoundTrip(ctx context.Context, req *Frame) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := WriteFrame(c.rwc, req, c.maxFrameSize); err != nil {
		return nil, err
	}
	reply, err := ReadFrame(c.rwc, c.maxFrameSize)
	if errors.Is(err, io.EOF) {
		return nil, ErrConnectionClosed
	}
	return reply, err
}

func (c *StreamConn) Close() error {
	return c.rwc.Close()
}
