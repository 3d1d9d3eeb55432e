package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/blogpulse/blogpulse/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request an id (honoring an incoming X-Request-ID
// header), stores it in the request context for logging, and echoes it back
// in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}
