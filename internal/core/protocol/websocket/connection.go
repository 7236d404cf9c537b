package websocket

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/alchemy-engine/alchemy/internal/core/protocol"
)

const closeGracePeriod = time.Second

// Connection carries protocol frames over one websocket, one frame per binary
// message.
type Connection struct {
	id           string
	conn         *websocket.Conn
	connectedAt  time.Time
	writeTimeout time.Duration
	closed       atomic.Bool

	// Write mutex to ensure thread-safe writes
	writeMu sync.Mutex

	framesSent     atomic.Uint64
	framesReceived atomic.Uint64
	bytesSent      atomic.Uint64
	bytesReceived  atomic.Uint64
}

func newConnection(conn *websocket.Conn, maxFrameSize int, writeTimeout time.Duration) *Connection {
	if maxFrameSize > 0 {
		conn.SetReadLimit(int64(maxFrameSize))
	}
	return &Connection{
		id:           uuid.NewString(),
		conn:         conn,
		connectedAt:  time.Now(),
		writeTimeout: writeTimeout,
	}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Connection) Peer() protocol.Peer {
	return protocol.Peer{
		ID:          c.id,
		RemoteAddr:  c.conn.RemoteAddr().String(),
		Transport:   "websocket",
		ConnectedAt: c.connectedAt,
	}
}

func (c *Connection) Send(f *protocol.Frame) error {
	if c.closed.Load() {
		return protocol.ErrConnectionClosed
	}
	data := protocol.MarshalFrame(f)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}

	c.framesSent.Add(1)
	c.bytesSent.Add(uint64(len(data)))
	return nil
}

// Receive blocks for the next frame. Non-binary messages are rejected with
// protocol.ErrInvalidFrame; the connection stays usable.
func (c *Connection) Receive() (*protocol.Frame, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		if errors.Is(err, websocket.ErrReadLimit) {
			return nil, errors.Wrap(protocol.ErrFrameTooLarge, err.Error())
		}
		return nil, errors.Wrap(err, "failed to read frame")
	}
	if messageType != websocket.BinaryMessage {
		return nil, errors.Wrap(protocol.ErrInvalidFrame, "expected binary message")
	}

	c.framesReceived.Add(1)
	c.bytesReceived.Add(uint64(len(data)))
	return protocol.UnmarshalFrame(data)
}

// Close sends a normal close message and closes the socket. Repeated calls
// are no-ops.
func (c *Connection) Close() error {
	return c.closeWith(websocket.CloseNormalClosure, "")
}

func (c *Connection) closeWith(code int, reason string) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(closeGracePeriod))
	c.writeMu.Unlock()

	return c.conn.Close()
}

func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Stats is a snapshot of connection counters.
type Stats struct {
	FramesSent     uint64
	FramesReceived uint64
	BytesSent      uint64
	BytesReceived  uint64
	ConnectedAt    time.Time
}

func (c *Connection) Stats() Stats {
	return Stats{
		FramesSent:     c.framesSent.Load(),
		FramesReceived: c.framesReceived.Load(),
		BytesSent:      c.bytesSent.Load(),
		BytesReceived:  c.bytesReceived.Load(),
		ConnectedAt:    c.connectedAt,
	}
}
