package middleware

import (
	"net/http"
	"time"
)

const timeoutBody = `{"error":"request timeout"}`

// Timeout caps total handler time. Requests that exceed the limit receive a
// 503 with a JSON body; the handler's context is cancelled so downstream
// calls unwind.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(jsonContentType(next), limit, timeoutBody)
	}
}

// jsonContentType sets the content type before TimeoutHandler writes its
// error body, so timeout responses are served as JSON like every other API
// response.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
