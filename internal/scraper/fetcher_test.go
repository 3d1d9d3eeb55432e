package scraper

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errs "github.com/blogpulse/blogpulse/pkg/errors"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPFetcher(5 * time.Second)
	body, err := f.Fetch(t.Context(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if body != "<html><body>ok</body></html>" {
		t.Errorf("body = %q", body)
	}
}

func TestFetchNon2xxIsFetchFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPFetcher(5 * time.Second)
	_, err := f.Fetch(t.Context(), srv.URL)
	if !errors.Is(err, errs.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if errs.IsTransient(err) {
		t.Error("404 should be classified permanent")
	}
}

func TestFetch5xxIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPFetcher(5 * time.Second)
	_, err := f.Fetch(t.Context(), srv.URL)
	if !errors.Is(err, errs.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if !errs.IsTransient(err) {
		t.Error("502 should be classified transient")
	}
}

func TestFetchConnectionErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	f := NewHTTPFetcher(time.Second)
	_, err := f.Fetch(t.Context(), srv.URL)
	if !errors.Is(err, errs.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if !errs.IsTransient(err) {
		t.Error("connection refusal should be classified transient")
	}
}
