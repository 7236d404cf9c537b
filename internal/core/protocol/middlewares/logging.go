package middlewares

import (
	"context"
	"time"

	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
	"github.com/alchemy-engine/alchemy/internal/core/protocol"
)

// Logging logs every request: failures at error level, the rest at debug.
func Logging(logger log.Log) protocol.Middleware {
	logger = logger.Named("protocol")
	return func(next protocol.HandlerFunc) protocol.HandlerFunc {
		return func(ctx context.Context, req *protocol.Frame) *protocol.Frame {
			start := time.Now()
			reply := next(ctx, req)

			fields := []log.Field{
				log.String("op", req.Op.String()),
				log.String("scene", req.Name),
				log.Int("request_bytes", len(req.Payload)),
				log.Int("reply_bytes", len(reply.Payload)),
				log.Duration("took", time.Since(start)),
			}
			if p, ok := protocol.PeerFromContext(ctx); ok {
				fields = append(fields,
					log.String("peer_id", p.ID),
					log.String("remote_addr", p.RemoteAddr),
					log.String("transport", p.Transport))
			}

			if reply.Op == protocol.OpError {
				fields = append(fields,
					log.String("code", reply.Code.String()),
					log.String("message", reply.Message))
				logger.Error("request failed", fields...)
			} else {
				logger.Debug("request handled", fields...)
			}
			return reply
		}
	}
}
