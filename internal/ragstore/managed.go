package ragstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/pkg/config"
	errs "github.com/blogpulse/blogpulse/pkg/errors"
	"github.com/blogpulse/blogpulse/pkg/resilience"
)

// ObjectStore is the slice of the object-store client the managed backend
// needs for document writes.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ManagedBackend feeds a managed vector corpus. Ingestion writes two
// objects per summary ({post_id}.txt and {post_id}.metadata.json) under the
// configured prefix; an external indexer picks them up. Retrieval calls the
// corpus query endpoint and maps its contexts.
type ManagedBackend struct {
	store    ObjectStore
	prefix   string
	corpusID string
	queryURL string
	apiKey   string
	client   *http.Client
	retry    resilience.RetryConfig
	cb       *resilience.CircuitBreaker
	logger   *slog.Logger
}

// NewManaged creates a ManagedBackend from configuration.
func NewManaged(cfg config.BackendConfig, store ObjectStore, retry resilience.RetryConfig) *ManagedBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retry.RetryIf = errs.IsTransient
	return &ManagedBackend{
		store:    store,
		prefix:   cfg.Managed.Prefix,
		corpusID: cfg.CorpusID,
		queryURL: cfg.Managed.QueryURL,
		apiKey:   cfg.Managed.APIKey,
		client:   &http.Client{Timeout: timeout},
		retry:    retry,
		cb:       resilience.NewCircuitBreaker("managed-rag", resilience.CircuitBreakerConfig{}),
		logger:   slog.Default().With("component", "managed-backend"),
	}
}

// Ingest writes the indexable document and its metadata object. Writing the
// same post id again overwrites both in place, which keeps ingestion
// idempotent.
func (b *ManagedBackend) Ingest(ctx context.Context, summary blog.Summary) error {
	metadata, err := json.Marshal(summary.Metadata())
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", summary.PostID, err)
	}

	docKey := b.prefix + summary.PostID + ".txt"
	metaKey := b.prefix + summary.PostID + ".metadata.json"

	err = resilience.Retry(ctx, "corpus-put-doc", b.retry, func() error {
		return b.store.Put(ctx, docKey, []byte(summary.IndexableDocument()), "text/plain; charset=utf-8")
	})
	if err != nil {
		return err
	}
	err = resilience.Retry(ctx, "corpus-put-metadata", b.retry, func() error {
		return b.store.Put(ctx, metaKey, metadata, "application/json")
	})
	if err != nil {
		return err
	}

	b.logger.Debug("summary ingested", "post_id", summary.PostID, "key", docKey)
	return nil
}

type managedQueryRequest struct {
	Corpus string           `json:"corpus"`
	Query  managedQueryBody `json:"query"`
}

type managedQueryBody struct {
	Text           string `json:"text"`
	SimilarityTopK int    `json:"similarity_top_k"`
}

type managedQueryResponse struct {
	Contexts struct {
		Contexts []managedContext `json:"contexts"`
	} `json:"contexts"`
}

type managedContext struct {
	Text              string         `json:"text"`
	SourceURI         string         `json:"sourceUri"`
	SourceDisplayName string         `json:"sourceDisplayName"`
	Distance          float64        `json:"distance"`
	Metadata          map[string]any `json:"metadata"`
}

// Retrieve queries the managed corpus. Relevance arrives as a distance;
// scores are mapped as 1 - distance and clamped.
func (b *ManagedBackend) Retrieve(ctx context.Context, query string, k int) ([]blog.RetrievedDoc, error) {
	body := managedQueryRequest{
		Corpus: b.corpusID,
		Query:  managedQueryBody{Text: query, SimilarityTopK: k},
	}

	var resp managedQueryResponse
	err := resilience.Retry(ctx, "corpus-query", b.retry, func() error {
		resp = managedQueryResponse{}
		return b.cb.Execute(func() error {
			return b.postQuery(ctx, body, &resp)
		})
	})
	if err != nil {
		return nil, err
	}

	docs := make([]blog.RetrievedDoc, 0, len(resp.Contexts.Contexts))
	for _, c := range resp.Contexts.Contexts {
		doc, ok := b.mapContext(c)
		if !ok {
			b.logger.Warn("skipping malformed corpus context", "source_uri", c.SourceURI)
			continue
		}
		docs = append(docs, doc)
		if len(docs) == k {
			break
		}
	}
	return docs, nil
}

// mapContext recovers doc identity from context metadata when present,
// falling back to the object key and the rendered document text.
func (b *ManagedBackend) mapContext(c managedContext) (blog.RetrievedDoc, bool) {
	snippet := strings.TrimSpace(c.Text)
	if snippet == "" {
		return blog.RetrievedDoc{}, false
	}

	postID, _ := c.Metadata["post_id"].(string)
	if postID == "" {
		postID = strings.TrimSuffix(path.Base(c.SourceURI), ".txt")
		if postID == "." || postID == "/" {
			postID = ""
		}
	}

	title, _ := c.Metadata["title"].(string)
	if title == "" {
		title = c.SourceDisplayName
	}
	if title == "" {
		title = documentField(snippet, "Title: ")
	}

	url, _ := c.Metadata["url"].(string)
	if url == "" {
		url = documentField(snippet, "URL: ")
	}

	if title == "" || url == "" {
		return blog.RetrievedDoc{}, false
	}

	return blog.RetrievedDoc{
		PostID:   postID,
		Title:    title,
		URL:      url,
		Snippet:  snippet,
		Score:    blog.ClampScore(1 - c.Distance),
		Metadata: c.Metadata,
	}, true
}

// documentField pulls a "Label: value" line out of a rendered indexable
// document.
func documentField(doc, label string) string {
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, label) {
			return strings.TrimSpace(strings.TrimPrefix(line, label))
		}
	}
	return ""
}

func (b *ManagedBackend) postQuery(ctx context.Context, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding corpus query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.queryURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building corpus query: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.ErrBackendUnavailable, err, "querying corpus")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return errs.Newf(errs.ErrBackendUnavailable, resp.StatusCode, "corpus query returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.ErrBackendUnavailable, err, "decoding corpus response")
	}
	return nil
}
