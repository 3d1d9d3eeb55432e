package blog

import (
	"strings"
	"testing"
	"time"
)

func TestPostIDDeterministic(t *testing.T) {
	a := PostID("https://example.org/posts/alpha")
	b := PostID("https://example.org/posts/alpha")
	if a != b {
		t.Errorf("same URL produced different ids: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64-char hex id, got %d chars", len(a))
	}
	if a == PostID("https://example.org/posts/beta") {
		t.Error("different URLs produced the same id")
	}
}

func testPost() Post {
	published := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return Post{
		ID:          PostID("https://example.org/posts/alpha"),
		URL:         "https://example.org/posts/alpha",
		Title:       "Alpha Release",
		PublishedAt: &published,
		Source:      "example-blog",
	}
}

func TestNewSummaryNormalizesKeywords(t *testing.T) {
	s, err := NewSummary(testPost(),
		"A short executive summary.",
		strings.Repeat("Technical detail. ", 5),
		[]string{" first point ", "", "second point"},
		[]string{"Go", "  go ", "Distributed Systems", "GO", "rust"},
	)
	if err != nil {
		t.Fatalf("NewSummary: %v", err)
	}

	want := []string{"go", "distributed systems", "rust"}
	if len(s.Keywords) != len(want) {
		t.Fatalf("keywords = %v, want %v", s.Keywords, want)
	}
	for i, k := range want {
		if s.Keywords[i] != k {
			t.Errorf("keywords[%d] = %q, want %q", i, s.Keywords[i], k)
		}
		if k != strings.ToLower(k) {
			t.Errorf("keyword %q is not lowercase", k)
		}
	}
	if len(s.Bullets) != 2 {
		t.Errorf("bullets = %v, want 2 trimmed entries", s.Bullets)
	}
}

func TestNewSummaryRejectsShortSummaries(t *testing.T) {
	if _, err := NewSummary(testPost(), "tiny", strings.Repeat("x", 60), nil, nil); err == nil {
		t.Error("expected error for short executive summary")
	}
	if _, err := NewSummary(testPost(), "long enough exec", "too short", nil, nil); err == nil {
		t.Error("expected error for short technical summary")
	}
}

func TestIndexableDocumentRendering(t *testing.T) {
	s, err := NewSummary(testPost(),
		"Covers the alpha release.",
		strings.Repeat("The alpha release adds streaming. ", 3),
		[]string{"streaming added"},
		[]string{"release", "streaming"},
	)
	if err != nil {
		t.Fatalf("NewSummary: %v", err)
	}

	doc := s.IndexableDocument()
	for _, want := range []string{
		"Title: Alpha Release",
		"URL: https://example.org/posts/alpha",
		"Published: 2026-03-14T09:30:00Z",
		"Executive Summary:",
		"Technical Summary:",
		"- streaming added",
		"Keywords: release, streaming",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}

	if doc != s.IndexableDocument() {
		t.Error("rendering is not deterministic")
	}
}

func TestMetadataKeys(t *testing.T) {
	s, err := NewSummary(testPost(),
		"Covers the alpha release.",
		strings.Repeat("The alpha release adds streaming. ", 3),
		nil,
		[]string{"release"},
	)
	if err != nil {
		t.Fatalf("NewSummary: %v", err)
	}

	md := s.Metadata()
	for _, key := range []string{"post_id", "title", "url", "published_at", "keywords", "source"} {
		if _, ok := md[key]; !ok {
			t.Errorf("metadata missing key %q", key)
		}
	}
	if md["source"] != "example-blog" {
		t.Errorf("metadata source = %v", md["source"])
	}
}

func TestClampScore(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-0.3, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}
	for _, tc := range cases {
		if got := ClampScore(tc.in); got != tc.want {
			t.Errorf("ClampScore(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
