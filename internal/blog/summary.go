package blog

import (
	"fmt"
	"strings"
	"time"
)

const (
	minExecutiveSummaryLen = 10
	minTechnicalSummaryLen = 50
)

// Summary is the structured LLM output for one post. Summaries are
// constructed once via NewSummary and never mutated.
type Summary struct {
	PostID           string     `json:"post_id"`
	Title            string     `json:"title"`
	URL              string     `json:"url"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	Source           string     `json:"source"`
	ExecutiveSummary string     `json:"executive_summary"`
	TechnicalSummary string     `json:"technical_summary"`
	Bullets          []string   `json:"bullet_points"`
	Keywords         []string   `json:"keywords"`
}

// NewSummary builds a Summary for a post, normalizing keywords (lowercase,
// trimmed, deduplicated in first-seen order) and enforcing the minimum
// summary lengths.
func NewSummary(post Post, executive, technical string, bullets, keywords []string) (Summary, error) {
	executive = strings.TrimSpace(executive)
	technical = strings.TrimSpace(technical)
	if len(executive) < minExecutiveSummaryLen {
		return Summary{}, fmt.Errorf("executive summary too short (%d chars, need %d)", len(executive), minExecutiveSummaryLen)
	}
	if len(technical) < minTechnicalSummaryLen {
		return Summary{}, fmt.Errorf("technical summary too short (%d chars, need %d)", len(technical), minTechnicalSummaryLen)
	}

	cleanBullets := make([]string, 0, len(bullets))
	for _, b := range bullets {
		if b = strings.TrimSpace(b); b != "" {
			cleanBullets = append(cleanBullets, b)
		}
	}

	seen := make(map[string]struct{}, len(keywords))
	cleanKeywords := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		cleanKeywords = append(cleanKeywords, k)
	}

	return Summary{
		PostID:           post.ID,
		Title:            post.Title,
		URL:              post.URL,
		PublishedAt:      post.PublishedAt,
		Source:           post.Source,
		ExecutiveSummary: executive,
		TechnicalSummary: technical,
		Bullets:          cleanBullets,
		Keywords:         cleanKeywords,
	}, nil
}

// IndexableDocument renders the summary as the deterministic text document
// written into the retrieval corpus.
func (s Summary) IndexableDocument() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", s.Title)
	fmt.Fprintf(&b, "URL: %s\n", s.URL)
	if s.PublishedAt != nil {
		fmt.Fprintf(&b, "Published: %s\n", s.PublishedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "\nExecutive Summary:\n%s\n", s.ExecutiveSummary)
	fmt.Fprintf(&b, "\nTechnical Summary:\n%s\n", s.TechnicalSummary)
	if len(s.Bullets) > 0 {
		b.WriteString("\nKey Points:\n")
		for _, bullet := range s.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
	}
	if len(s.Keywords) > 0 {
		fmt.Fprintf(&b, "\nKeywords: %s\n", strings.Join(s.Keywords, ", "))
	}
	return b.String()
}

// Metadata returns the fixed-key metadata mapping stored alongside the
// indexable document.
func (s Summary) Metadata() map[string]any {
	published := ""
	if s.PublishedAt != nil {
		published = s.PublishedAt.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"post_id":      s.PostID,
		"title":        s.Title,
		"url":          s.URL,
		"published_at": published,
		"keywords":     s.Keywords,
		"source":       s.Source,
	}
}
