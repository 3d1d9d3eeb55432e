// Package feed turns a feed document (Atom 1.0, RSS 2.0, or an HTML index
// page as a fallback) into an ordered list of posts, harvesting inline
// article content when the feed carries it.
package feed

import (
	"bytes"
	"encoding/xml"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/blogpulse/blogpulse/internal/blog"
)

// Parser parses one feed. Relative entry URLs are resolved against the feed
// URL before hashing into post ids.
type Parser struct {
	baseURL *url.URL
	source  string
	logger  *slog.Logger
}

// NewParser creates a Parser for the given feed URL and source label.
func NewParser(feedURL, source string) *Parser {
	base, err := url.Parse(feedURL)
	if err != nil {
		base = nil
	}
	return &Parser{
		baseURL: base,
		source:  source,
		logger:  slog.Default().With("component", "feed-parser"),
	}
}

type format int

const (
	formatAtom format = iota
	formatRSS
	formatHTML
)

// Parse extracts posts from a feed document, preserving input order.
// Entries without a usable URL or title are dropped silently; a broken feed
// yields an empty slice, never an error.
func (p *Parser) Parse(data []byte) []blog.Post {
	switch detectFormat(data) {
	case formatAtom:
		return p.parseAtom(data)
	case formatRSS:
		return p.parseRSS(data)
	default:
		return p.parseHTMLIndex(data)
	}
}

// detectFormat inspects the root element: <feed> is Atom, <rss> is RSS 2.0,
// anything else (including unparseable input) is treated as an HTML index.
func detectFormat(data []byte) format {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			return formatHTML
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch strings.ToLower(start.Name.Local) {
		case "feed":
			return formatAtom
		case "rss":
			return formatRSS
		default:
			return formatHTML
		}
	}
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title      string         `xml:"title"`
	Links      []atomLink     `xml:"link"`
	Updated    string         `xml:"updated"`
	Published  string         `xml:"published"`
	Categories []atomCategory `xml:"category"`
	Content    atomContent    `xml:"content"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomContent struct {
	Type string `xml:"type,attr"`
	// Raw keeps the inner XML for type="xhtml"; Text is the unescaped
	// character data for type="html".
	Raw  string `xml:",innerxml"`
	Text string `xml:",chardata"`
}

func (p *Parser) parseAtom(data []byte) []blog.Post {
	var f atomFeed
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&f); err != nil {
		p.logger.Warn("atom feed unparseable", "error", err)
		return nil
	}

	posts := make([]blog.Post, 0, len(f.Entries))
	for _, e := range f.Entries {
		u := p.resolveURL(atomEntryURL(e.Links))
		title := strings.TrimSpace(e.Title)
		if u == "" || title == "" {
			continue
		}

		ts := e.Updated
		if ts == "" {
			ts = e.Published
		}

		var inline string
		switch strings.ToLower(e.Content.Type) {
		case "html":
			inline = strings.TrimSpace(e.Content.Text)
		case "xhtml":
			inline = strings.TrimSpace(e.Content.Raw)
		}

		tags := make([]string, 0, len(e.Categories))
		for _, c := range e.Categories {
			if term := strings.TrimSpace(c.Term); term != "" {
				tags = append(tags, term)
			}
		}

		posts = append(posts, blog.Post{
			ID:            blog.PostID(u),
			URL:           u,
			Title:         title,
			PublishedAt:   parseTime(ts),
			Tags:          tags,
			Source:        p.source,
			InlineContent: inline,
		})
	}
	return posts
}

// atomEntryURL prefers the rel="alternate" link and falls back to the first
// link present.
func atomEntryURL(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "alternate" && l.Href != "" {
			return l.Href
		}
	}
	for _, l := range links {
		if l.Href != "" {
			return l.Href
		}
	}
	return ""
}

type rssFeed struct {
	Items []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
	Encoded     string   `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	Description string   `xml:"description"`
}

func (p *Parser) parseRSS(data []byte) []blog.Post {
	var f rssFeed
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&f); err != nil {
		p.logger.Warn("rss feed unparseable", "error", err)
		return nil
	}

	posts := make([]blog.Post, 0, len(f.Items))
	for _, item := range f.Items {
		u := p.resolveURL(item.Link)
		title := strings.TrimSpace(item.Title)
		if u == "" || title == "" {
			continue
		}

		inline := strings.TrimSpace(item.Encoded)
		if inline == "" {
			inline = strings.TrimSpace(item.Description)
		}

		tags := make([]string, 0, len(item.Categories))
		for _, c := range item.Categories {
			if c = strings.TrimSpace(c); c != "" {
				tags = append(tags, c)
			}
		}

		posts = append(posts, blog.Post{
			ID:            blog.PostID(u),
			URL:           u,
			Title:         title,
			PublishedAt:   parseTime(item.PubDate),
			Tags:          tags,
			Source:        p.source,
			InlineContent: inline,
		})
	}
	return posts
}

// htmlIndexSelectors are tried in priority order when the input is not a
// recognizable feed.
var htmlIndexSelectors = []string{"article", "div.post", "div"}

func (p *Parser) parseHTMLIndex(data []byte) []blog.Post {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		p.logger.Warn("html index unparseable", "error", err)
		return nil
	}

	var posts []blog.Post
	seen := make(map[string]struct{})
	for _, selector := range htmlIndexSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			anchor := sel.Find("a[href]").First()
			href, ok := anchor.Attr("href")
			if !ok {
				return
			}
			u := p.resolveURL(href)
			title := strings.TrimSpace(anchor.Text())
			if u == "" || title == "" {
				return
			}
			if _, dup := seen[u]; dup {
				return
			}
			seen[u] = struct{}{}
			posts = append(posts, blog.Post{
				ID:     blog.PostID(u),
				URL:    u,
				Title:  title,
				Source: p.source,
			})
		})
	}
	return posts
}

// resolveURL returns the absolute form of href, resolving relative paths
// against the feed URL. Unresolvable hrefs return "".
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	if p.baseURL == nil {
		return ""
	}
	return p.baseURL.ResolveReference(u).String()
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime parses feed timestamps best-effort; unparseable values degrade
// to nil rather than failing the entry.
func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
