package middlewares

import (
	"context"
	"crypto/subtle"

	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/protocol"
)

// Auth rejects requests whose frame token does not match token, unless the
// transport already authenticated the peer (protocol.WithAuthenticated). An
// empty token disables the check.
func Auth(token string, logger log.Log) protocol.Middleware {
	logger = logger.Named("protocol.auth")
	return func(next protocol.HandlerFunc) protocol.HandlerFunc {
		if token == "" {
			return next
		}
		return func(ctx context.Context, req *protocol.Frame) *protocol.Frame {
			if protocol.Authenticated(ctx) ||
				subtle.ConstantTimeCompare([]byte(req.Token), []byte(token)) == 1 {
				return next(ctx, req)
			}

			peerID := ""
			if p, ok := protocol.PeerFromContext(ctx); ok {
				peerID = p.ID
			}
			logger.Warn("unauthenticated request rejected",
				log.String("peer_id", peerID),
				log.String("op", req.Op.String()))
			return protocol.ErrorFrame(req, protocol.ErrUnauthorized)
		}
	}
}
