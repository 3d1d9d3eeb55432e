package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/internal/cache"
	"github.com/blogpulse/blogpulse/internal/pipeline"
	"github.com/blogpulse/blogpulse/internal/qa"
	"github.com/blogpulse/blogpulse/internal/ragstore"
	"github.com/blogpulse/blogpulse/internal/scraper"
	"github.com/blogpulse/blogpulse/internal/server"
	"github.com/blogpulse/blogpulse/internal/state"
	"github.com/blogpulse/blogpulse/internal/summarizer"
	"github.com/blogpulse/blogpulse/pkg/config"
	"github.com/blogpulse/blogpulse/pkg/health"
	"github.com/blogpulse/blogpulse/pkg/resilience"
)

func retryFromConfig(cfg *config.Config) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		Multiplier:     cfg.Retry.Multiplier,
		JitterFraction: cfg.Retry.JitterFraction,
	}
}

// fakeRAG is an in-memory stand-in for the generic HTTP retrieval service.
type fakeRAG struct {
	mu   sync.Mutex
	docs []ragDoc
}

type ragDoc struct {
	Document string         `json:"document"`
	Metadata map[string]any `json:"doc_metadata"`
}

func (f *fakeRAG) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /add_doc", func(w http.ResponseWriter, r *http.Request) {
		var doc ragDoc
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		// Replace on matching post id to stay idempotent.
		replaced := false
		for i, existing := range f.docs {
			if existing.Metadata["post_id"] == doc.Metadata["post_id"] {
				f.docs[i] = doc
				replaced = true
				break
			}
		}
		if !replaced {
			f.docs = append(f.docs, doc)
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question string `json:"question"`
			TopK     int    `json:"top_k"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type result struct {
			PageContent string         `json:"page_content"`
			Score       float64        `json:"score"`
			Metadata    map[string]any `json:"metadata"`
		}
		var results []result
		f.mu.Lock()
		for _, doc := range f.docs {
			for _, word := range strings.Fields(strings.ToLower(strings.Trim(req.Question, "?"))) {
				if strings.Contains(strings.ToLower(doc.Document), word) {
					results = append(results, result{PageContent: doc.Document, Score: 0.9, Metadata: doc.Metadata})
					break
				}
			}
		}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	})
	return mux
}

type scriptedModel struct{}

func (scriptedModel) Summarize(_ context.Context, post blog.Post, raw blog.RawContent) (blog.Summary, error) {
	return blog.NewSummary(post,
		"Executive summary of "+post.Title+".",
		"Technical summary of "+post.Title+": "+raw.Text+" with enough detail to satisfy the schema.",
		[]string{"first point"},
		[]string{"release"},
	)
}

func (scriptedModel) Answer(_ context.Context, question string, docs []blog.RetrievedDoc) (string, error) {
	return "Based on " + docs[0].Title + ": grounded answer.", nil
}

func TestIngestThenAskFlow(t *testing.T) {
	// Blog origin serving the feed and one post.
	blogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed.xml":
			w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Streaming Release</title>
    <link rel="alternate" href="/posts/streaming"/>
  </entry>
</feed>`))
		case "/posts/streaming":
			w.Write([]byte("<html><body><article><h1>Streaming Release</h1><p>We shipped streaming ingestion.</p></article></body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer blogSrv.Close()

	rag := &fakeRAG{}
	ragSrv := httptest.NewServer(rag.handler())
	defer ragSrv.Close()

	cfg := &config.Config{
		Feed:     config.FeedConfig{URL: blogSrv.URL + "/feed.xml", Source: "example", FetchTimeout: 5 * time.Second, FetchConcurrency: 2},
		Backend:  config.BackendConfig{Kind: "http", CorpusID: "corpus-1", Timeout: 5 * time.Second, HTTP: config.HTTPBackend{BaseURL: ragSrv.URL}},
		Pipeline: config.PipelineConfig{SummarizeConcurrency: 2, IngestConcurrency: 2, HistoryMaxEntries: 10},
		Cache:    config.CacheConfig{TopK: 8},
		Session:  config.SessionConfig{},
		Retry:    config.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		State:    config.StateConfig{Path: filepath.Join(t.TempDir(), "state.json")},
	}

	backend := ragstore.NewHTTP(cfg.Backend, retryFromConfig(cfg))
	store := state.NewFileStore(cfg.State.Path)
	var model summarizer.Model = scriptedModel{}

	p := pipeline.New(cfg, pipeline.Deps{
		Fetcher: scraper.NewHTTPFetcher(cfg.Feed.FetchTimeout),
		Model:   model,
		Backend: backend,
		State:   store,
	})
	qaSvc := qa.New(cfg, backend, model, cache.New(cache.NewMemory(100), time.Hour), cache.NewSessions(cfg.Session), nil)
	api := httptest.NewServer(server.NewRouter(server.New(qaSvc, p, store), health.NewChecker(), nil, 0))
	defer api.Close()

	// Ingest the feed.
	resp, err := http.Post(api.URL+"/api/v1/ingest", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /ingest: %v", err)
	}
	defer resp.Body.Close()
	var result blog.IngestionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding ingest response: %v", err)
	}
	if result.IngestedCount != 1 {
		t.Fatalf("result = %+v", result)
	}

	// Ask about the ingested post.
	askBody := strings.NewReader(`{"question": "what about streaming?"}`)
	resp, err = http.Post(api.URL+"/api/v1/ask", "application/json", askBody)
	if err != nil {
		t.Fatalf("POST /ask: %v", err)
	}
	defer resp.Body.Close()
	var ask struct {
		Answer  *blog.Answer `json:"answer"`
		Refused bool         `json:"refused"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ask); err != nil {
		t.Fatalf("decoding ask response: %v", err)
	}
	if ask.Refused {
		t.Fatalf("answer refused: %+v", ask.Answer)
	}
	if !strings.Contains(ask.Answer.Answer, "Streaming Release") {
		t.Errorf("answer = %q", ask.Answer.Answer)
	}
	if len(ask.Answer.Sources) != 1 || ask.Answer.Sources[0].Title != "Streaming Release" {
		t.Errorf("sources = %+v", ask.Answer.Sources)
	}

	// Unrelated question refuses.
	resp, err = http.Post(api.URL+"/api/v1/ask", "application/json", strings.NewReader(`{"question": "xyzzy?"}`))
	if err != nil {
		t.Fatalf("POST /ask: %v", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&ask); err != nil {
		t.Fatalf("decoding ask response: %v", err)
	}
	if !ask.Refused || ask.Answer.Answer != qa.RefusalNoContext {
		t.Errorf("expected refusal, got %+v", ask.Answer)
	}
}
