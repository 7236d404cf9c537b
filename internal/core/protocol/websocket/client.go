package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/alchemy-engine/alchemy/internal/core/protocol"
)

var _ protocol.Conn = (*ClientConn)(nil)

// ClientConn is the dialing side of a websocket protocol connection. Round
// trips may run concurrently; replies are matched to requests by frame ID.
type ClientConn struct {
	conn *Connection

	mu      sync.Mutex
	pending map[uint32]chan *protocol.Frame
	err     error
	done    chan struct{}
}

type DialOptions struct {
	Header       http.Header
	MaxFrameSize int
	WriteTimeout time.Duration
}

// Dial connects to a websocket protocol endpoint such as
// "ws://localhost:8080/ws".
func Dial(ctx context.Context, url string, opts DialOptions) (*ClientConn, error) {
	if opts.MaxFrameSize == 0 {
		opts.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, protocol.NewProtocolError(protocol.ErrorCodeDialFailed, "dial websocket",
			errors.Wrap(err, url))
	}

	c := &ClientConn{
		conn:    newConnection(ws, opts.MaxFrameSize, opts.WriteTimeout),
		pending: make(map[uint32]chan *protocol.Frame),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *ClientConn) RoundTrip(ctx context.Context, req *protocol.Frame) (*protocol.Frame, error) {
	ch := make(chan *protocol.Frame, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	if _, busy := c.pending[req.ID]; busy {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: request %d already in flight", protocol.ErrInvalidFrame, req.ID)
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	if err := c.conn.Send(req); err != nil {
		c.forget(req.ID)
		return nil, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-c.done:
		return nil, c.failure()
	case <-ctx.Done():
		c.forget(req.ID)
		return nil, ctx.Err()
	}
}

func (c *ClientConn) readLoop() {
	for {
		reply, err := c.conn.Receive()
		if err != nil {
			c.fail(err)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[reply.ID]
		delete(c.pending, reply.ID)
		c.mu.Unlock()

		if ok {
			ch <- reply
		}
	}
}

func (c *ClientConn) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = errors.Wrap(protocol.ErrConnectionClosed, err.Error())
	c.pending = make(map[uint32]chan *protocol.Frame)
	close(c.done)
}

func (c *ClientConn) failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *ClientConn) forget(id uint32) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *ClientConn) Stats() Stats {
	return c.conn.Stats()
}

// Close ends the connection and fails pending round trips.
func (c *ClientConn) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}
