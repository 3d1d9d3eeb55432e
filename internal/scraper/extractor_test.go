package scraper

import (
	"strings"
	"testing"

	"github.com/blogpulse/blogpulse/internal/blog"
)

func extractorPost() blog.Post {
	url := "https://example.org/posts/alpha"
	return blog.Post{
		ID:     blog.PostID(url),
		URL:    url,
		Title:  "Alpha Release",
		Source: "example-blog",
	}
}

func TestExtractPrefersArticleElement(t *testing.T) {
	html := `<html><body>
		<div class="sidebar">navigation junk</div>
		<article><p>The   real
		article    text.</p></article>
	</body></html>`

	content := Extract(extractorPost(), html)
	if content.Text != "The real article text." {
		t.Errorf("text = %q", content.Text)
	}
	if content.HTML != html {
		t.Error("HTML field must carry the input unchanged")
	}
}

func TestExtractDivClassCascade(t *testing.T) {
	html := `<html><body>
		<div class="wrapper"><div class="blog-post"><p>Div-hosted body.</p></div></div>
	</body></html>`

	content := Extract(extractorPost(), html)
	if content.Text != "Div-hosted body." {
		t.Errorf("text = %q", content.Text)
	}
}

func TestExtractStripsScriptsAndStyles(t *testing.T) {
	html := `<html><body><main>
		<script>var hidden = true;</script>
		<style>.a { color: red }</style>
		<noscript>enable js</noscript>
		<p>Visible words only.</p>
	</main></body></html>`

	content := Extract(extractorPost(), html)
	if content.Text != "Visible words only." {
		t.Errorf("text = %q", content.Text)
	}
}

func TestExtractEmptyFallsBackToTitle(t *testing.T) {
	content := Extract(extractorPost(), `<html><body><article></article></body></html>`)
	if content.Text != "Alpha Release" {
		t.Errorf("text = %q, want title fallback", content.Text)
	}

	content = Extract(extractorPost(), "")
	if content.Text != "Alpha Release" {
		t.Errorf("text on empty input = %q, want title fallback", content.Text)
	}
}

func TestExtractSections(t *testing.T) {
	html := `<html><body><article>
		<h2>Overview</h2>
		<p>First paragraph.</p>
		<p>Second paragraph.</p>
		<h2>Details</h2>
		<p>Deep dive.</p>
		<div>not a paragraph</div>
	</article></body></html>`

	content := Extract(extractorPost(), html)
	if len(content.Sections) != 2 {
		t.Fatalf("sections = %d, want 2: %#v", len(content.Sections), content.Sections)
	}
	if content.Sections[0] != "Overview\n\nFirst paragraph. Second paragraph." {
		t.Errorf("sections[0] = %q", content.Sections[0])
	}
	if content.Sections[1] != "Details\n\nDeep dive." {
		t.Errorf("sections[1] = %q", content.Sections[1])
	}
}

func TestExtractNoHeadingsSingleSection(t *testing.T) {
	html := `<html><body><article><p>Only body text here.</p></article></body></html>`
	content := Extract(extractorPost(), html)
	if len(content.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(content.Sections))
	}
	if !strings.Contains(content.Sections[0], "Only body text here.") {
		t.Errorf("sections[0] = %q", content.Sections[0])
	}
}

func TestExtractInlineContent(t *testing.T) {
	content := Extract(extractorPost(), "<p>hello</p>")
	if content.Text != "hello" {
		t.Errorf("text = %q, want %q", content.Text, "hello")
	}
}
