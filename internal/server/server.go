// Package server exposes stored scenes over HTTP, websockets and QUIC.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alchemy-engine/alchemy/internal/app"
	"github.com/alchemy-engine/alchemy/internal/config"
	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/protocol"
	"github.com/alchemy-engine/alchemy/internal/core/protocol/middlewares"
	"github.com/alchemy-engine/alchemy/internal/core/protocol/quic"
	"github.com/alchemy-engine/alchemy/internal/core/protocol/websocket"
)

const readHeaderTimeout = 10 * time.Second

// Server serves the scene protocol. Every transport shares one handler chain:
// logging, metrics, token auth, then per-peer rate limiting.
type Server struct {
	rt     *app.Runtime
	config config.ServerConfig
	logger log.Log

	handler protocol.HandlerFunc
	metrics *middlewares.Metrics
	limiter *middlewares.RateLimiter
	router  chi.Router

	ws   *websocket.Server
	quic *quic.Server
	http *http.Server

	httpAddr net.Addr
	running  atomic.Bool
	closed   atomic.Bool
	wg       sync.WaitGroup
}

func New(rt *app.Runtime) *Server {
	cfg := rt.Config.Server
	s := &Server{
		rt:      rt,
		config:  cfg,
		logger:  rt.Logger.Named("server"),
		metrics: middlewares.NewMetrics(),
		limiter: middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateWindow.Duration, rt.Logger),
	}

	s.handler = protocol.Chain(protocol.NewHandler(rt.Service).Handle,
		middlewares.Logging(rt.Logger),
		s.metrics.Middleware(),
		middlewares.Auth(cfg.AuthToken, rt.Logger),
		s.limiter.Middleware(),
	)

	s.ws = websocket.NewServer(s.handler,
		websocket.WithLogger(rt.Logger),
		websocket.WithMaxFrameSize(cfg.MaxFrameSize),
		websocket.WithOnDisconnect(s.forgetPeer),
	)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP routes, including the websocket endpoint.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Metrics() *middlewares.Metrics {
	return s.metrics
}

func (s *Server) forgetPeer(p protocol.Peer) {
	s.limiter.Forget(p.ID)
}

// Start binds the HTTP listener and, when configured, the QUIC listener,
// then serves both in the background until Stop.
func (s *Server) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.config.HTTPAddr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}
	s.httpAddr = ln.Addr()
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if s.config.QUICAddr != "" {
		if err = s.startQUIC(ctx); err != nil {
			_ = ln.Close()
			s.running.Store(false)
			return err
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", log.Error(err))
		}
	}()

	s.logger.Info("server started", log.String("http_addr", s.httpAddr.String()))
	return nil
}

func (s *Server) startQUIC(ctx context.Context) error {
	var (
		tlsConf *tls.Config
		err     error
	)
	if s.config.CertFile != "" {
		tlsConf, err = quic.LoadTLS(s.config.CertFile, s.config.KeyFile)
	} else {
		s.logger.Warn("QUIC listener uses a self-signed certificate")
		tlsConf, err = quic.GenerateSelfSignedTLS()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}

	s.quic = quic.NewServer(s.handler, tlsConf,
		quic.WithLogger(s.rt.Logger),
		quic.WithMaxFrameSize(s.config.MaxFrameSize),
		quic.WithOnDisconnect(s.forgetPeer),
	)
	if err = s.quic.Listen(s.config.QUICAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.quic.Serve(ctx); err != nil {
			s.logger.Error("QUIC server error", log.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound HTTP address once started.
func (s *Server) Addr() net.Addr {
	return s.httpAddr
}

// QUICAddr returns the bound QUIC address, nil when QUIC is disabled.
func (s *Server) QUICAddr() net.Addr {
	if s.quic == nil {
		return nil
	}
	return s.quic.Addr()
}

// Stop shuts the listeners down and closes open protocol connections.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return ErrServerNotRunning
	}
	if !s.closed.CompareAndSwap(false, true) {
		return ErrServerClosed
	}

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	// Hijacked websocket connections are not tracked by http.Server.
	if err := s.ws.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.quic != nil {
		if err := s.quic.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.wg.Wait()
	s.running.Store(false)

	s.logger.Info("server stopped")
	return errors.Join(errs...)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(tokenAuth(s.config.AuthToken))
		r.Get("/metrics", s.handleMetrics)
		r.Get("/scenes", s.handleList)
		r.Get("/scenes/{name}", s.handleGet)
		r.Put("/scenes/{name}", s.handlePut)
		r.Delete("/scenes/{name}", s.handleDelete)
		r.Handle("/ws", s.ws)
	})
	return r
}
