package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/alchemy-engine/alchemy/internal/core/protocol"
)

// tokenAuth rejects requests that carry neither "Authorization: Bearer
// <token>" nor a matching "token" query parameter. An empty token disables
// the check. Accepted requests are marked authenticated for the protocol
// chain.
func tokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.URL.Query().Get("token")
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				got = strings.TrimPrefix(h, "Bearer ")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthorized", Error: ErrUnauthorized.Error()})
				return
			}
			next.ServeHTTP(w, r.WithContext(protocol.WithAuthenticated(r.Context())))
		})
	}
}
