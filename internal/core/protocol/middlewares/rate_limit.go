package middlewares

import (
	"context"
	"sync"
	"time"

	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/protocol"
)

// RateLimiter allows each peer a fixed number of requests per window.
// Requests without a peer in their context share one bucket.
type RateLimiter struct {
	logger  log.Log
	limit   int
	window  time.Duration
	clients sync.Map // peer ID -> *clientRateLimit
}

type clientRateLimit struct {
	mu     sync.Mutex
	count  int
	window time.Time
}

func NewRateLimiter(limit int, window time.Duration, logger log.Log) *RateLimiter {
	return &RateLimiter{
		logger: logger.Named("protocol.rate_limit"),
		limit:  limit,
		window: window,
	}
}

func (m *RateLimiter) Middleware() protocol.Middleware {
	return func(next protocol.HandlerFunc) protocol.HandlerFunc {
		return func(ctx context.Context, req *protocol.Frame) *protocol.Frame {
			peerID := ""
			if p, ok := protocol.PeerFromContext(ctx); ok {
				peerID = p.ID
			}
			if !m.Allow(peerID, time.Now()) {
				m.logger.Warn("rate limit exceeded",
					log.String("peer_id", peerID),
					log.String("op", req.Op.String()),
					log.Int("limit", m.limit))
				return protocol.ErrorFrame(req, protocol.ErrTooManyRequests)
			}
			return next(ctx, req)
		}
	}
}

// Allow records one request for peerID at now and reports whether it is
// within the limit.
func (m *RateLimiter) Allow(peerID string, now time.Time) bool {
	if m.limit <= 0 {
		return true
	}
	v, _ := m.clients.LoadOrStore(peerID, &clientRateLimit{window: now})
	cl := v.(*clientRateLimit)

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if now.Sub(cl.window) > m.window {
		cl.count = 0
		cl.window = now
	}
	if cl.count >= m.limit {
		return false
	}
	cl.count++
	return true
}

// Forget drops the bucket of a disconnected peer.
func (m *RateLimiter) Forget(peerID string) {
	m.clients.Delete(peerID)
}
