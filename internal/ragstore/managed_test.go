package ragstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blogpulse/blogpulse/pkg/config"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func newManagedBackend(store ObjectStore, queryURL string) *ManagedBackend {
	return NewManaged(config.BackendConfig{
		Kind:     "managed",
		CorpusID: "corpus-1",
		Timeout:  2 * time.Second,
		Managed: config.ManagedBackend{
			Bucket:   "blog-corpus",
			Prefix:   "summaries/",
			QueryURL: queryURL,
		},
	}, store, testRetry)
}

func TestManagedIngestWritesDocumentAndMetadata(t *testing.T) {
	store := newMemStore()
	b := newManagedBackend(store, "")
	summary := testSummary(t)

	if err := b.Ingest(t.Context(), summary); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	docKey := "summaries/" + summary.PostID + ".txt"
	metaKey := "summaries/" + summary.PostID + ".metadata.json"

	doc, ok := store.objects[docKey]
	if !ok {
		t.Fatalf("document object %s not written", docKey)
	}
	if string(doc) != summary.IndexableDocument() {
		t.Errorf("document body mismatch:\n%s", doc)
	}
	if ct := store.types[docKey]; !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("document content type = %q", ct)
	}

	raw, ok := store.objects[metaKey]
	if !ok {
		t.Fatalf("metadata object %s not written", metaKey)
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if meta["post_id"] != summary.PostID || meta["url"] != summary.URL {
		t.Errorf("metadata = %v", meta)
	}
}

func TestManagedIngestOverwritesSamePost(t *testing.T) {
	store := newMemStore()
	b := newManagedBackend(store, "")
	summary := testSummary(t)

	if err := b.Ingest(t.Context(), summary); err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	if err := b.Ingest(t.Context(), summary); err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if len(store.objects) != 2 {
		t.Errorf("re-ingest must overwrite in place, got %d objects", len(store.objects))
	}
}

func TestManagedRetrieveMapsContexts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req managedQueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Corpus != "corpus-1" || req.Query.Text != "streaming?" || req.Query.SimilarityTopK != 3 {
			t.Errorf("query request = %+v", req)
		}
		json.NewEncoder(w).Encode(managedQueryResponse{})
	}))
	defer srv.Close()

	resp := managedQueryResponse{}
	resp.Contexts.Contexts = []managedContext{
		{
			Text:     "Title: Alpha\nURL: https://example.org/a\n\nExecutive Summary:\nAlpha ships.",
			Distance: 0.25,
			Metadata: map[string]any{"post_id": "p1", "title": "Alpha", "url": "https://example.org/a"},
		},
		{
			Text:              "Title: Beta\nURL: https://example.org/b\n\nExecutive Summary:\nBeta ships.",
			SourceURI:         "gs://blog-corpus/summaries/p2.txt",
			SourceDisplayName: "Beta",
			Distance:          0.6,
		},
		{Text: "   ", Distance: 0.1},
	}

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv2.Close()

	b := newManagedBackend(newMemStore(), srv2.URL)
	docs, err := b.Retrieve(t.Context(), "streaming?", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2 (blank context skipped)", len(docs))
	}
	if docs[0].PostID != "p1" || docs[0].Score != 0.75 {
		t.Errorf("first doc = %+v", docs[0])
	}
	if docs[1].PostID != "p2" {
		t.Errorf("post id not recovered from object key: %+v", docs[1])
	}
	if docs[1].Title != "Beta" || docs[1].URL != "https://example.org/b" {
		t.Errorf("identity not recovered from display name and document text: %+v", docs[1])
	}

	// Exercise the request-shape assertions too.
	b2 := newManagedBackend(newMemStore(), srv.URL)
	if _, err := b2.Retrieve(t.Context(), "streaming?", 3); err != nil {
		t.Fatalf("Retrieve against asserting server: %v", err)
	}
}

func TestManagedRetrieveClampsNegativeDistance(t *testing.T) {
	resp := managedQueryResponse{}
	resp.Contexts.Contexts = []managedContext{
		{
			Text:     "Title: T\nURL: https://example.org/t",
			Distance: -0.4,
			Metadata: map[string]any{"post_id": "p1", "title": "T", "url": "https://example.org/t"},
		},
		{
			Text:     "Title: U\nURL: https://example.org/u",
			Distance: 1.9,
			Metadata: map[string]any{"post_id": "p2", "title": "U", "url": "https://example.org/u"},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	b := newManagedBackend(newMemStore(), srv.URL)
	docs, err := b.Retrieve(t.Context(), "q", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if docs[0].Score != 1 || docs[1].Score != 0 {
		t.Errorf("scores not clamped: %v %v", docs[0].Score, docs[1].Score)
	}
}
