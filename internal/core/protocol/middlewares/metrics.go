package middlewares

import (
	"context"
	"sync"
	"time"

	"github.com/alchemy-engine/alchemy/internal/core/protocol"
)

// Metrics collects per-operation request counters.
type Metrics struct {
	ops sync.Map // protocol.Op -> *opMetrics
}

type opMetrics struct {
	mu          sync.Mutex
	count       int64
	errors      int64
	totalTime   time.Duration
	lastUpdated time.Time
}

// OpStats is a snapshot of one operation's counters.
type OpStats struct {
	Count       int64
	Errors      int64
	TotalTime   time.Duration
	AverageTime time.Duration
	LastUpdated time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Middleware() protocol.Middleware {
	return func(next protocol.HandlerFunc) protocol.HandlerFunc {
		return func(ctx context.Context, req *protocol.Frame) *protocol.Frame {
			start := time.Now()
			reply := next(ctx, req)
			m.record(req.Op, time.Since(start), reply.Op == protocol.OpError)
			return reply
		}
	}
}

func (m *Metrics) record(op protocol.Op, took time.Duration, failed bool) {
	v, _ := m.ops.LoadOrStore(op, &opMetrics{})
	om := v.(*opMetrics)

	om.mu.Lock()
	om.count++
	om.totalTime += took
	om.lastUpdated = time.Now()
	if failed {
		om.errors++
	}
	om.mu.Unlock()
}

// Snapshot returns the counters keyed by operation name.
func (m *Metrics) Snapshot() map[string]OpStats {
	result := make(map[string]OpStats)
	m.ops.Range(func(key, value any) bool {
		om := value.(*opMetrics)

		om.mu.Lock()
		s := OpStats{
			Count:       om.count,
			Errors:      om.errors,
			TotalTime:   om.totalTime,
			LastUpdated: om.lastUpdated,
		}
		om.mu.Unlock()

		if s.Count > 0 {
			s.AverageTime = s.TotalTime / time.Duration(s.Count)
		}
		result[key.(protocol.Op).String()] = s
		return true
	})
	return result
}
