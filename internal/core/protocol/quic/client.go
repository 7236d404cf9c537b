package quic

import (
	"context"
	"crypto/tls"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/alchemy-engine/alchemy/internal/core/protocol"
)

var _ protocol.Conn = (*ClientConn)(nil)

// ClientConn opens one stream per round trip over a single QUIC connection.
type ClientConn struct {
	conn         *quic.Conn
	maxFrameSize int
}

// DialOptions tune a client connection. Zero values select defaults.
type DialOptions struct {
	MaxFrameSize int
}

// Dial connects to a QUIC protocol server at addr ("host:port").
func Dial(ctx context.Context, addr string, tlsConf *tls.Config, opts DialOptions) (*ClientConn, error) {
	maxFrameSize := opts.MaxFrameSize
	if maxFrameSize <= 0 {
		maxFrameSize = protocol.DefaultMaxFrameSize
	}

	conn, err := quic.DialAddr(ctx, addr, tlsConf, &quic.Config{
		MaxIdleTimeout:  DefaultIdleTimeout,
		KeepAlivePeriod: DefaultKeepAlive,
	})
	if err != nil {
		return nil, protocol.NewProtocolError(protocol.ErrorCodeDialFailed, "dial quic",
			errors.Wrap(err, addr))
	}
	return &ClientConn{conn: conn, maxFrameSize: maxFrameSize}, nil
}

func (c *ClientConn) RoundTrip(ctx context.Context, req *protocol.Frame) (*protocol.Frame, error) {
	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, c.wrap(err)
	}
	stop := context.AfterFunc(ctx, func() {
		stream.CancelRead(codeStreamAborted)
		stream.CancelWrite(codeStreamAborted)
	})
	defer stop()

	if err = protocol.WriteFrame(stream, req, c.maxFrameSize); err != nil {
		stream.CancelRead(codeStreamAborted)
		stream.CancelWrite(codeStreamAborted)
		return nil, c.wrap(err)
	}
	// Closing the send side tells the server no more requests follow.
	if err = stream.Close(); err != nil {
		return nil, c.wrap(err)
	}

	reply, err := protocol.ReadFrame(stream, c.maxFrameSize)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.wrap(err)
	}
	return reply, nil
}

func (c *ClientConn) wrap(err error) error {
	if cause := c.conn.Context().Err(); cause != nil {
		return errors.Wrap(protocol.ErrConnectionClosed, err.Error())
	}
	return err
}

func (c *ClientConn) Close() error {
	return c.conn.CloseWithError(codeNoError, "client closed")
}
