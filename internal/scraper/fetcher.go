// Package scraper obtains article HTML over HTTP and extracts cleaned text
// and heading-segmented sections from it.
package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	errs "github.com/blogpulse/blogpulse/pkg/errors"
)

// maxBodyBytes caps how much of a response body is read. Article pages
// beyond this are truncated, not failed.
const maxBodyBytes = 4 << 20

// Fetcher abstracts "fetch URL, get HTML text" so the pipeline can be tested
// without a network.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages with a shared HTTP client and a per-request
// timeout. All failures (network, timeout, non-2xx) map to ErrFetchFailed;
// the upstream status code is preserved for retry classification.
type HTTPFetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPFetcher creates an HTTPFetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		logger: slog.Default().With("component", "fetcher"),
	}
}

// Fetch retrieves the page at url and returns its body as text.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errs.Newf(errs.ErrFetchFailed, http.StatusBadRequest, "building request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", "blogpulse/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.ErrFetchFailed, err, "fetching %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", errs.Newf(errs.ErrFetchFailed, resp.StatusCode, "fetching %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errs.Wrap(errs.ErrFetchFailed, err, "reading body of %s", url)
	}

	f.logger.Debug("page fetched", "url", url, "bytes", len(body))
	return string(body), nil
}
