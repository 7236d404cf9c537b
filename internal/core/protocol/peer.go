package protocol

import (
	"context"
	"time"
)

// Peer describes the remote end of a transport connection.
type Peer struct {
	ID          string
	RemoteAddr  string
	Transport   string
	ConnectedAt time.Time
}

type peerKey struct{}

func WithPeer(ctx context.Context, p Peer) context.Context {
	return context.WithValue(ctx, peerKey{}, p)
}

// PeerFromContext returns the peer set by the transport serving ctx.
func PeerFromContext(ctx context.Context) (Peer, bool) {
	p, ok := ctx.Value(peerKey{}).(Peer)
	return p, ok
}

type authKey struct{}

// WithAuthenticated marks ctx as belonging to a peer whose credentials were
// already checked by the transport, such as an HTTP middleware.
func WithAuthenticated(ctx context.Context) context.Context {
	return context.WithValue(ctx, authKey{}, true)
}

func Authenticated(ctx context.Context) bool {
	ok, _ := ctx.Value(authKey{}).(bool)
	return ok
}
