package server

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alchemy-engine/alchemy/internal/core/asset"
	"github.com/alchemy-engine/alchemy/internal/core/binary"
	"github.com/alchemy-engine/alchemy/internal/core/events/bus"
	"github.com/alchemy-engine/alchemy/internal/core/protocol"
	"github.com/alchemy-engine/alchemy/internal/core/protocol/middlewares"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
)

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type healthBody struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Assets      int    `json:"assets"`
}

type metricsBody struct {
	Protocol map[string]middlewares.OpStats `json:"protocol"`
	Assets   asset.Stats                    `json:"assets"`
	Events   bus.Metrics                    `json:"events"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(code protocol.ErrorCode) int {
	switch code {
	case protocol.ErrorCodeNotFound:
		return http.StatusNotFound
	case protocol.ErrorCodeInvalidName, protocol.ErrorCodeBadEnvelope,
		protocol.ErrorCodeChecksumMismatch, protocol.ErrorCodeMalformedScene,
		protocol.ErrorCodeInvalidFrame:
		return http.StatusBadRequest
	case protocol.ErrorCodeFrameTooLarge:
		return http.StatusRequestEntityTooLarge
	case protocol.ErrorCodeTooManyRequests:
		return http.StatusTooManyRequests
	case protocol.ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, reply *protocol.Frame) {
	writeJSON(w, statusFor(reply.Code), errorBody{Code: reply.Code.String(), Error: reply.Message})
}

// serve runs an HTTP request through the protocol handler chain so that it is
// logged, counted and rate limited like websocket and QUIC requests.
func (s *Server) serve(w http.ResponseWriter, r *http.Request, req *protocol.Frame) (*protocol.Frame, bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx := protocol.WithPeer(r.Context(), protocol.Peer{
		ID:          "http:" + host,
		RemoteAddr:  r.RemoteAddr,
		Transport:   "http",
		ConnectedAt: time.Now(),
	})

	reply := s.handler(ctx, req)
	if reply.Op == protocol.OpError {
		writeError(w, reply)
		return nil, false
	}
	return reply, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	conns := s.ws.ConnectionCount()
	if s.quic != nil {
		conns += s.quic.ConnectionCount()
	}
	writeJSON(w, http.StatusOK, healthBody{
		Status:      "healthy",
		Connections: conns,
		Assets:      s.rt.Cache.Len(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metricsBody{
		Protocol: s.metrics.Snapshot(),
		Assets:   s.rt.Cache.Stats(),
		Events:   s.rt.Events.Metrics(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	reply, ok := s.serve(w, r, &protocol.Frame{Op: protocol.OpList})
	if !ok {
		return
	}
	names, err := protocol.DecodeNames(reply.Payload)
	if err != nil {
		writeError(w, protocol.ErrorFrame(reply, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"scenes": names})
}

// handleGet returns the sealed scene, or its field tree as text with
// ?format=dump.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	reply, ok := s.serve(w, r, &protocol.Frame{Op: protocol.OpGet, Name: chi.URLParam(r, "name")})
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "dump" {
		payload, err := storage.Open(reply.Payload)
		if err != nil {
			writeError(w, protocol.ErrorFrame(reply, err))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = binary.Dump(w, payload)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(reply.Payload)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.config.MaxFrameSize)))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = protocol.ErrFrameTooLarge
		}
		writeError(w, protocol.ErrorFrame(&protocol.Frame{}, err))
		return
	}

	if _, ok := s.serve(w, r, &protocol.Frame{Op: protocol.OpPut, Name: chi.URLParam(r, "name"), Payload: body}); ok {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.serve(w, r, &protocol.Frame{Op: protocol.OpDelete, Name: chi.URLParam(r, "name")}); ok {
		w.WriteHeader(http.StatusNoContent)
	}
}
