package ragstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/pkg/config"
	errs "github.com/blogpulse/blogpulse/pkg/errors"
	"github.com/blogpulse/blogpulse/pkg/resilience"
)

// HTTPBackend talks to a generic RAG service over two endpoints:
// POST {base}/add_doc and POST {base}/query.
type HTTPBackend struct {
	baseURL  string
	apiKey   string
	corpusID string
	client   *http.Client
	retry    resilience.RetryConfig
	cb       *resilience.CircuitBreaker
	logger   *slog.Logger
}

// NewHTTP creates an HTTPBackend from configuration.
func NewHTTP(cfg config.BackendConfig, retry resilience.RetryConfig) *HTTPBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retry.RetryIf = errs.IsTransient
	return &HTTPBackend{
		baseURL:  strings.TrimSuffix(cfg.HTTP.BaseURL, "/"),
		apiKey:   cfg.HTTP.APIKey,
		corpusID: cfg.CorpusID,
		client:   &http.Client{Timeout: timeout},
		retry:    retry,
		cb:       resilience.NewCircuitBreaker("http-rag", resilience.CircuitBreakerConfig{}),
		logger:   slog.Default().With("component", "http-backend"),
	}
}

type addDocRequest struct {
	Document    string         `json:"document"`
	DocIndex    int            `json:"doc_index"`
	DocMetadata map[string]any `json:"doc_metadata"`
	UUID        string         `json:"uuid"`
}

type queryRequest struct {
	Question string `json:"question"`
	UUID     string `json:"uuid"`
	TopK     int    `json:"top_k"`
}

type queryResponse struct {
	Results []queryResult `json:"results"`
}

type queryResult struct {
	PageContent string         `json:"page_content"`
	Score       float64        `json:"score"`
	Metadata    map[string]any `json:"metadata"`
}

// Ingest posts the summary's indexable document and metadata to the
// service. Transient failures are retried before surfacing.
func (b *HTTPBackend) Ingest(ctx context.Context, summary blog.Summary) error {
	body := addDocRequest{
		Document:    summary.IndexableDocument(),
		DocIndex:    0,
		DocMetadata: summary.Metadata(),
		UUID:        b.corpusID,
	}
	return resilience.Retry(ctx, "rag-add-doc", b.retry, func() error {
		return b.cb.Execute(func() error {
			return b.post(ctx, "/add_doc", body, nil)
		})
	})
}

// Retrieve queries the service and maps its results, skipping malformed
// entries and clamping scores.
func (b *HTTPBackend) Retrieve(ctx context.Context, query string, k int) ([]blog.RetrievedDoc, error) {
	var resp queryResponse
	err := resilience.Retry(ctx, "rag-query", b.retry, func() error {
		resp = queryResponse{}
		return b.cb.Execute(func() error {
			return b.post(ctx, "/query", queryRequest{Question: query, UUID: b.corpusID, TopK: k}, &resp)
		})
	})
	if err != nil {
		return nil, err
	}

	docs := make([]blog.RetrievedDoc, 0, len(resp.Results))
	for _, r := range resp.Results {
		doc, ok := mapQueryResult(r)
		if !ok {
			b.logger.Warn("skipping malformed retrieval entry", "metadata", r.Metadata)
			continue
		}
		docs = append(docs, doc)
		if len(docs) == k {
			break
		}
	}
	return docs, nil
}

func mapQueryResult(r queryResult) (blog.RetrievedDoc, bool) {
	title, _ := r.Metadata["title"].(string)
	url, _ := r.Metadata["url"].(string)
	postID, _ := r.Metadata["post_id"].(string)
	if r.PageContent == "" || title == "" || url == "" {
		return blog.RetrievedDoc{}, false
	}
	return blog.RetrievedDoc{
		PostID:   postID,
		Title:    title,
		URL:      url,
		Snippet:  r.PageContent,
		Score:    blog.ClampScore(r.Score),
		Metadata: r.Metadata,
	}, true
}

// post sends one JSON request and decodes the response into out when it is
// non-nil. Non-2xx statuses surface as backend errors carrying the status
// code for retry classification.
func (b *HTTPBackend) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.ErrBackendUnavailable, err, "calling %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return errs.Newf(errs.ErrBackendUnavailable, resp.StatusCode, "%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errs.Wrap(errs.ErrBackendUnavailable, err, "decoding %s response", path)
		}
	}
	return nil
}
