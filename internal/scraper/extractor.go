package scraper

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/blogpulse/blogpulse/internal/blog"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)

	// articleDivClasses are the class fragments that mark a div as a
	// plausible article container, tried after <article>.
	articleDivClasses = []string{"post", "article", "blog-article", "blog-post", "content", "main-content"}
)

// Extract turns an HTML article page into RawContent for the given post.
// It never fails: pages with no extractable text fall back to the post
// title so downstream stages always see non-empty text.
func Extract(post blog.Post, html string) blog.RawContent {
	content := blog.RawContent{
		PostID: post.ID,
		URL:    post.URL,
		Title:  post.Title,
		HTML:   html,
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		content.Text = post.Title
		return content
	}

	root := findArticleRoot(doc)
	root.Find("script, style, noscript").Remove()

	content.Text = collapseWhitespace(root.Text())
	if content.Text == "" {
		content.Text = post.Title
	}
	content.Sections = extractSections(root, content.Text)
	return content
}

// findArticleRoot picks the article container by fallback cascade:
// <article>, then a div whose class hints at article content, then <main>,
// then <body>.
func findArticleRoot(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("article").First(); sel.Length() > 0 {
		return sel
	}
	var divMatch *goquery.Selection
	doc.Find("div[class]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		class = strings.ToLower(class)
		for _, hint := range articleDivClasses {
			if strings.Contains(class, hint) {
				divMatch = sel
				return false
			}
		}
		return true
	})
	if divMatch != nil {
		return divMatch
	}
	if sel := doc.Find("main").First(); sel.Length() > 0 {
		return sel
	}
	return doc.Find("body")
}

// extractSections walks headings h1..h6 in the root and pairs each with the
// paragraphs that follow it, up to the next heading. When the page has no
// headings, the whole text becomes a single section.
func extractSections(root *goquery.Selection, fullText string) []string {
	headings := root.Find("h1, h2, h3, h4, h5, h6")
	if headings.Length() == 0 {
		if fullText == "" {
			return nil
		}
		return []string{fullText}
	}

	var sections []string
	headings.Each(func(_ int, heading *goquery.Selection) {
		title := collapseWhitespace(heading.Text())
		if title == "" {
			return
		}
		var paragraphs []string
		for sib := heading.Next(); sib.Length() > 0; sib = sib.Next() {
			if isHeading(sib) {
				break
			}
			if goquery.NodeName(sib) != "p" {
				continue
			}
			if text := collapseWhitespace(sib.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
		sections = append(sections, title+"\n\n"+strings.Join(paragraphs, " "))
	})
	return sections
}

func isHeading(sel *goquery.Selection) bool {
	switch goquery.NodeName(sel) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// collapseWhitespace folds all whitespace runs, newlines included, into
// single spaces and trims the result.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
