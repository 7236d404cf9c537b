package quic

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/protocol"
)

const (
	DefaultMaxStreams  = 100
	DefaultIdleTimeout = 30 * time.Second
	DefaultKeepAlive   = 15 * time.Second
)

const (
	codeNoError       quic.ApplicationErrorCode = 0
	codeShuttingDown  quic.ApplicationErrorCode = 1
	codeStreamAborted quic.StreamErrorCode      = 2
)

// Server answers protocol requests arriving on QUIC streams.
type Server struct {
	handler      protocol.HandlerFunc
	tlsConf      *tls.Config
	logger       log.Log
	maxFrameSize int
	maxStreams   int64
	idleTimeout  time.Duration
	onDisconnect func(protocol.Peer)

	listener *quic.Listener
	closed   atomic.Bool

	mu    sync.Mutex
	conns map[*quic.Conn]struct{}
	wg    sync.WaitGroup
}

type Option func(*Server)

func WithLogger(l log.Log) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMaxFrameSize(n int) Option {
	return func(s *Server) { s.maxFrameSize = n }
}

func WithMaxStreams(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxStreams = n
		}
	}
}

func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithOnDisconnect registers fn to run after a connection ends.
func WithOnDisconnect(fn func(protocol.Peer)) Option {
	return func(s *Server) { s.onDisconnect = fn }
}

func NewServer(handler protocol.HandlerFunc, tlsConf *tls.Config, opts ...Option) *Server {
	s := &Server{
		handler:      handler,
		tlsConf:      tlsConf,
		logger:       log.Provide(),
		maxFrameSize: protocol.DefaultMaxFrameSize,
		maxStreams:   DefaultMaxStreams,
		idleTimeout:  DefaultIdleTimeout,
		conns:        make(map[*quic.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("quic")
	return s
}

func (s *Server) quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:     s.idleTimeout,
		KeepAlivePeriod:    DefaultKeepAlive,
		MaxIncomingStreams: s.maxStreams,
	}
}

// Listen binds the UDP address. Serve must be called to accept connections.
func (s *Server) Listen(addr string) error {
	ln, err := quic.ListenAddr(addr, s.tlsConf, s.quicConfig())
	if err != nil {
		return errors.Wrap(err, "failed to start QUIC listener")
	}
	s.listener = ln
	s.logger.Info("QUIC listener started", log.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is done or Close is called. Both end
// it with a nil error.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("quic: Serve called before Listen")
	}
	for {
		conn, err := s.listener.Accept(ctx)
		if err != nil {
			if s.closed.Load() || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to accept QUIC connection")
		}
		if !s.track(conn) {
			_ = conn.CloseWithError(codeShuttingDown, "server shutting down")
			return nil
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) serveConn(ctx context.Context, conn *quic.Conn) {
	peer := protocol.Peer{
		ID:          uuid.NewString(),
		RemoteAddr:  conn.RemoteAddr().String(),
		Transport:   "quic",
		ConnectedAt: time.Now(),
	}
	defer s.untrack(conn, peer)

	s.logger.Debug("client connected", log.String("peer_id", peer.ID), log.String("remote_addr", peer.RemoteAddr))
	ctx = protocol.WithPeer(ctx, peer)

	var streams sync.WaitGroup
	defer streams.Wait()
	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			s.logger.Debug("client disconnected",
				log.String("peer_id", peer.ID),
				log.Duration("duration", time.Since(peer.ConnectedAt)),
				log.Error(err))
			return
		}

		streams.Add(1)
		go func() {
			defer streams.Done()
			s.serveStream(ctx, stream, peer)
		}()
	}
}

func (s *Server) serveStream(ctx context.Context, stream *quic.Stream, peer protocol.Peer) {
	err := protocol.ServeStream(ctx, stream, s.handler, s.maxFrameSize)
	if err != nil {
		s.logger.Warn("stream failed", log.String("peer_id", peer.ID), log.Error(err))
		stream.CancelRead(codeStreamAborted)
	}
	_ = stream.Close()
}

func (s *Server) track(conn *quic.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *quic.Conn, peer protocol.Peer) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()

	_ = conn.CloseWithError(codeNoError, "")
	if s.onDisconnect != nil {
		s.onDisconnect(peer)
	}
	s.wg.Done()
}

// ConnectionCount reports the number of open connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops accepting, closes every connection and waits for their
// handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if !s.closed.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return nil
	}
	conns := make([]*quic.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for _, c := range conns {
		_ = c.CloseWithError(codeShuttingDown, "server shutting down")
	}
	s.wg.Wait()
	return err
}
