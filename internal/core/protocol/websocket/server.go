// Package websocket serves and dials the scene transfer protocol over
// websockets.
package websocket

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/protocol"
)

// Server is an http.Handler upgrading requests to protocol connections.
// Frames of one connection are answered in order.
type Server struct {
	handler      protocol.HandlerFunc
	upgrader     websocket.Upgrader
	logger       log.Log
	maxFrameSize int
	writeTimeout time.Duration
	onDisconnect func(protocol.Peer)

	mu     sync.Mutex
	conns  map[string]*Connection
	closed bool
	wg     sync.WaitGroup
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

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.writeTimeout = d }
}

// WithCheckOrigin replaces the upgrader's same-origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// WithOnDisconnect registers fn to run after a connection ends.
func WithOnDisconnect(fn func(protocol.Peer)) Option {
	return func(s *Server) { s.onDisconnect = fn }
}

func NewServer(handler protocol.HandlerFunc, opts ...Option) *Server {
	s := &Server{
		handler:      handler,
		logger:       log.Provide(),
		maxFrameSize: protocol.DefaultMaxFrameSize,
		writeTimeout: 10 * time.Second,
		conns:        make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("websocket")
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.logger.Warn("websocket upgrade failed", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		return
	}

	conn := newConnection(ws, s.maxFrameSize, s.writeTimeout)
	if !s.track(conn) {
		_ = conn.closeWith(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer s.untrack(conn)

	peer := conn.Peer()
	s.logger.Debug("client connected", log.String("peer_id", peer.ID), log.String("remote_addr", peer.RemoteAddr))

	ctx := protocol.WithPeer(r.Context(), peer)
	for {
		req, err := conn.Receive()
		if err != nil {
			if errors.Is(err, protocol.ErrInvalidFrame) {
				if sendErr := conn.Send(protocol.ErrorFrame(&protocol.Frame{}, err)); sendErr == nil {
					continue
				}
			}
			if errors.Is(err, protocol.ErrFrameTooLarge) {
				_ = conn.closeWith(websocket.CloseMessageTooBig, "frame too large")
			}
			s.logDisconnect(conn, err)
			return
		}

		if err = conn.Send(s.handler(ctx, req)); err != nil {
			s.logDisconnect(conn, err)
			return
		}
	}
}

func (s *Server) logDisconnect(conn *Connection, err error) {
	fields := []log.Field{
		log.String("peer_id", conn.ID()),
		log.Duration("duration", time.Since(conn.connectedAt)),
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || conn.IsClosed() {
		s.logger.Debug("client disconnected", fields...)
		return
	}
	s.logger.Warn("client connection failed", append(fields, log.Error(err))...)
}

func (s *Server) track(conn *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn.ID()] = conn
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *Connection) {
	s.mu.Lock()
	delete(s.conns, conn.ID())
	s.mu.Unlock()

	_ = conn.Close()
	if s.onDisconnect != nil {
		s.onDisconnect(conn.Peer())
	}
	s.wg.Done()
}

// ConnectionCount reports the number of open connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close closes every open connection and waits for their handlers to return.
// Later upgrades are refused.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	conns := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
	s.wg.Wait()
	return nil
}
