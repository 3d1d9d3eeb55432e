// Package ragstore abstracts the retrieval corpus behind one contract with
// two interchangeable implementations: a managed vector corpus fed through
// an object store, and a generic HTTP RAG service. The backend is selected
// once at startup; callers never branch on which one they hold.
package ragstore

import (
	"context"
	"fmt"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/pkg/config"
	"github.com/blogpulse/blogpulse/pkg/resilience"
)

// Backend is the retrieval corpus contract.
//
// Ingest is idempotent by post id: re-ingesting a summary overwrites the
// previously indexed document, never duplicates it. Retrieve returns at most
// k docs with scores clamped to [0,1]; malformed entries are skipped.
type Backend interface {
	Ingest(ctx context.Context, summary blog.Summary) error
	Retrieve(ctx context.Context, query string, k int) ([]blog.RetrievedDoc, error)
}

// New selects and builds the configured backend. The managed backend needs
// an object store for document writes; store may be nil for kind "http".
func New(cfg config.BackendConfig, store ObjectStore, retry resilience.RetryConfig) (Backend, error) {
	switch cfg.Kind {
	case "managed":
		if store == nil {
			return nil, fmt.Errorf("managed backend requires an object store")
		}
		return NewManaged(cfg, store, retry), nil
	case "http":
		return NewHTTP(cfg, retry), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}
