package feed

import (
	"strings"
	"testing"

	"github.com/blogpulse/blogpulse/internal/blog"
)

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Blog</title>
  <entry>
    <title>First Post</title>
    <link rel="alternate" href="https://example.org/posts/first"/>
    <link rel="self" href="https://example.org/feed.xml"/>
    <updated>2026-03-14T09:30:00Z</updated>
    <category term="go"/>
    <category term=" infra "/>
    <content type="html">&lt;p&gt;Full first post body with plenty of text.&lt;/p&gt;</content>
  </entry>
  <entry>
    <title>Second Post</title>
    <link href="/posts/second"/>
    <published>not-a-date</published>
  </entry>
  <entry>
    <title></title>
    <link href="https://example.org/posts/untitled"/>
  </entry>
</feed>`

func TestParseAtom(t *testing.T) {
	p := NewParser("https://example.org/feed.xml", "example-blog")
	posts := p.Parse([]byte(atomFixture))

	if len(posts) != 2 {
		t.Fatalf("expected 2 posts (untitled entry dropped), got %d", len(posts))
	}

	first := posts[0]
	if first.URL != "https://example.org/posts/first" {
		t.Errorf("first URL = %q", first.URL)
	}
	if first.ID != blog.PostID(first.URL) {
		t.Error("post id is not derived from the URL")
	}
	if first.PublishedAt == nil {
		t.Error("expected parsed timestamp on first entry")
	}
	if !strings.Contains(first.InlineContent, "<p>Full first post body") {
		t.Errorf("inline content not harvested: %q", first.InlineContent)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "go" || first.Tags[1] != "infra" {
		t.Errorf("tags = %v", first.Tags)
	}
	if first.Source != "example-blog" {
		t.Errorf("source = %q", first.Source)
	}

	second := posts[1]
	if second.URL != "https://example.org/posts/second" {
		t.Errorf("relative link not resolved: %q", second.URL)
	}
	if second.PublishedAt != nil {
		t.Error("unparseable timestamp should degrade to nil")
	}
	if second.InlineContent != "" {
		t.Errorf("unexpected inline content: %q", second.InlineContent)
	}
}

const rssFixture = `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Example Blog</title>
    <item>
      <title>Hello World</title>
      <link>https://example.org/posts/hello</link>
      <pubDate>Sat, 14 Mar 2026 09:30:00 GMT</pubDate>
      <category>go</category>
      <content:encoded><![CDATA[<p>hello</p>]]></content:encoded>
      <description>short teaser</description>
    </item>
    <item>
      <title>No Link Here</title>
    </item>
    <item>
      <title>Description Only</title>
      <link>https://example.org/posts/desc</link>
      <description><![CDATA[<p>teaser body</p>]]></description>
    </item>
  </channel>
</rss>`

func TestParseRSS(t *testing.T) {
	p := NewParser("https://example.org/feed.xml", "example-blog")
	posts := p.Parse([]byte(rssFixture))

	if len(posts) != 2 {
		t.Fatalf("expected 2 posts (link-less item dropped), got %d", len(posts))
	}

	hello := posts[0]
	if hello.InlineContent != "<p>hello</p>" {
		t.Errorf("content:encoded not preferred: %q", hello.InlineContent)
	}
	if hello.PublishedAt == nil {
		t.Error("expected parsed RFC 1123 pubDate")
	}

	desc := posts[1]
	if desc.InlineContent != "<p>teaser body</p>" {
		t.Errorf("description fallback failed: %q", desc.InlineContent)
	}
}

const htmlFixture = `<!DOCTYPE html>
<html><body>
  <article><a href="https://example.org/posts/a">Post A</a></article>
  <div class="post"><a href="/posts/b">Post B</a></div>
  <div><a href="https://example.org/posts/a">Post A again</a></div>
  <div><span>no anchor</span></div>
</body></html>`

func TestParseHTMLFallback(t *testing.T) {
	p := NewParser("https://example.org/blog", "example-blog")
	posts := p.Parse([]byte(htmlFixture))

	if len(posts) != 2 {
		t.Fatalf("expected 2 deduplicated posts, got %d: %+v", len(posts), posts)
	}
	if posts[0].URL != "https://example.org/posts/a" || posts[0].Title != "Post A" {
		t.Errorf("posts[0] = %+v", posts[0])
	}
	if posts[1].URL != "https://example.org/posts/b" {
		t.Errorf("relative href not resolved: %q", posts[1].URL)
	}
	if posts[0].InlineContent != "" {
		t.Error("html fallback should not harvest inline content")
	}
}

func TestParseBrokenFeed(t *testing.T) {
	p := NewParser("https://example.org/feed.xml", "example-blog")
	if posts := p.Parse([]byte("%%% not xml, not html &&&")); len(posts) != 0 {
		t.Errorf("broken feed should yield no posts, got %d", len(posts))
	}
	if posts := p.Parse(nil); len(posts) != 0 {
		t.Errorf("empty input should yield no posts, got %d", len(posts))
	}
}

func TestParsePreservesOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel>`)
	for _, name := range []string{"one", "two", "three", "four"} {
		b.WriteString("<item><title>" + name + "</title><link>https://example.org/" + name + "</link></item>")
	}
	b.WriteString(`</channel></rss>`)

	p := NewParser("https://example.org/feed.xml", "example-blog")
	posts := p.Parse([]byte(b.String()))
	if len(posts) != 4 {
		t.Fatalf("expected 4 posts, got %d", len(posts))
	}
	for i, want := range []string{"one", "two", "three", "four"} {
		if posts[i].Title != want {
			t.Errorf("posts[%d].Title = %q, want %q", i, posts[i].Title, want)
		}
	}
}
