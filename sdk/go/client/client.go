// Package client is the Go SDK for storing and fetching scenes on an Alchemy
// server over websockets or QUIC.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/alchemy-engine/alchemy/internal/core/binary"
	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/protocol"
	"github.com/alchemy-engine/alchemy/internal/core/protocol/quic"
	"github.com/alchemy-engine/alchemy/internal/core/protocol/websocket"
	"github.com/alchemy-engine/alchemy/internal/core/scene"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
)

// Client talks to one server. It is safe for concurrent use.
type Client struct {
	proto    *protocol.Client
	registry *scene.Registry
	logger   log.Log
	closed   atomic.Bool
}

type options struct {
	token        string
	tlsConf      *tls.Config
	insecure     bool
	maxFrameSize int
	registry     *scene.Registry
	logger       log.Log
}

type Option func(*options)

// WithToken authenticates to servers that require a token. It is sent as a
// bearer token on websocket handshakes and inside every request frame.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithTLSConfig sets the TLS configuration for wss:// and quic:// servers.
func WithTLSConfig(conf *tls.Config) Option {
	return func(o *options) { o.tlsConf = conf }
}

// WithInsecureSkipVerify accepts self-signed QUIC certificates.
func WithInsecureSkipVerify() Option {
	return func(o *options) { o.insecure = true }
}

// WithMaxFrameSize bounds frames sent and received on any transport.
func WithMaxFrameSize(n int) Option {
	return func(o *options) { o.maxFrameSize = n }
}

// WithRegistry sets the component registry used by LoadScene.
func WithRegistry(r *scene.Registry) Option {
	return func(o *options) { o.registry = r }
}

func WithLogger(l log.Log) Option {
	return func(o *options) { o.logger = l }
}

// Dial connects to rawURL. Supported schemes are ws, wss and quic, e.g.
// "ws://localhost:8080/ws" or "quic://localhost:9443".
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Client, error) {
	o := options{
		maxFrameSize: protocol.DefaultMaxFrameSize,
		registry:     scene.DefaultRegistry(),
		logger:       log.Provide(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, rawURL)
	}

	var conn protocol.Conn
	switch u.Scheme {
	case "ws", "wss":
		header := http.Header{}
		if o.token != "" {
			header.Set("Authorization", "Bearer "+o.token)
		}
		conn, err = websocket.Dial(ctx, u.String(), websocket.DialOptions{
			Header:       header,
			MaxFrameSize: o.maxFrameSize,
		})
	case "quic":
		tlsConf := o.tlsConf
		if tlsConf == nil {
			tlsConf = quic.ClientTLS(o.insecure)
		}
		conn, err = quic.Dial(ctx, u.Host, tlsConf, quic.DialOptions{MaxFrameSize: o.maxFrameSize})
	default:
		return nil, fmt.Errorf("%w: %q", protocol.ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	logger := o.logger.Named("client")
	logger.Debug("connected", log.String("url", u.Redacted()))
	return &Client{
		proto:    protocol.NewClient(conn, protocol.WithToken(o.token)),
		registry: o.registry,
		logger:   logger,
	}, nil
}

func (c *Client) check() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return nil
}

// Get returns the sealed scene stored under name.
func (c *Client) Get(ctx context.Context, name string) ([]byte, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.proto.Get(ctx, name)
}

// Put stores a sealed scene under name.
func (c *Client) Put(ctx context.Context, name string, sealed []byte) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.proto.Put(ctx, name, sealed)
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.proto.List(ctx)
}

func (c *Client) Delete(ctx context.Context, name string) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.proto.Delete(ctx, name)
}

// SaveScene seals s and stores it under its name.
func (c *Client) SaveScene(ctx context.Context, s *scene.Scene) error {
	if err := storage.ValidateName(s.Name()); err != nil {
		return err
	}
	return c.Put(ctx, s.Name(), storage.Seal(scene.Marshal(s)))
}

// LoadScene fetches the scene stored under name and decodes it, resolving
// asset references through resolver.
func (c *Client) LoadScene(ctx context.Context, name string, resolver binary.AssetResolver) (*scene.Scene, error) {
	sealed, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	payload, err := storage.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", name, err)
	}
	return scene.Unmarshal(ctx, payload, resolver, scene.WithRegistry(c.registry))
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.proto.Close()
}
