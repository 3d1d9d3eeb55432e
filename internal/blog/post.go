// Package blog defines the core data model shared by the feed parser,
// scraper, summarizer, retrieval backends, and pipeline: posts discovered in
// a feed, their extracted content, the structured summaries produced for
// them, and the documents returned by retrieval.
package blog

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// PostID derives the stable identifier for a post from its absolute URL.
// Equal URLs always produce equal ids, across runs and processes.
func PostID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Post is a single feed entry. Posts are created by the feed parser and
// never mutated afterwards.
type Post struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Source      string     `json:"source"`

	// InlineContent carries raw HTML harvested from the feed itself
	// (Atom <content>, RSS content:encoded or description). When present
	// the pipeline skips the article fetch.
	InlineContent string `json:"inline_content,omitempty"`
}

// RawContent is the fetched and cleaned body of one post. Text is never
// empty: when extraction yields nothing, the post title stands in.
type RawContent struct {
	PostID   string   `json:"post_id"`
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	HTML     string   `json:"html"`
	Text     string   `json:"text"`
	Sections []string `json:"sections,omitempty"`
}
