package server

import (
	"net/http"
	"time"

	"github.com/blogpulse/blogpulse/pkg/health"
	"github.com/blogpulse/blogpulse/pkg/metrics"
	pkgmw "github.com/blogpulse/blogpulse/pkg/middleware"
)

// NewRouter builds the full HTTP handler.
//
// Route table:
//
//	POST /api/v1/ask            → answer a question
//	POST /api/v1/ingest         → trigger an ingestion run
//	GET  /api/v1/history        → run history and watermark size
//	GET  /api/v1/sessions/{id}  → session query log
//	GET  /api/v1/cache/stats    → response cache counters
//	GET  /health/live           → liveness
//	GET  /health/ready          → readiness (dependency checks)
//	GET  /metrics               → Prometheus scrape
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → handler
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/ask", h.Ask)
	mux.HandleFunc("POST /api/v1/ingest", h.Ingest)
	mux.HandleFunc("GET /api/v1/history", h.History)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.Session)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	if requestTimeout > 0 {
		chain = pkgmw.Timeout(requestTimeout)(chain)
	}
	if m != nil {
		chain = pkgmw.Metrics(m)(chain)
	}
	chain = pkgmw.CORS(pkgmw.DefaultCORSConfig())(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
