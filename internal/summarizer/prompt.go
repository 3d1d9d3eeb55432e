package summarizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/blogpulse/blogpulse/internal/blog"
)

const summarySystemPrompt = `You are a technical blog analyst. You respond with strict JSON only: no prose, no markdown, no code fences.`

const answerSystemPrompt = `You are an assistant answering questions about technical blog posts. Answer using ONLY the provided context. If the context does not contain the answer, say that the available blog posts do not cover it.`

// buildSummaryPrompt embeds the article text, truncated to the character
// budget, and as many sections as still fit.
func buildSummaryPrompt(post blog.Post, raw blog.RawContent, budgetChars int) string {
	text := raw.Text
	if len(text) > budgetChars {
		// Back up to a rune boundary so the cut never leaves invalid UTF-8.
		cut := budgetChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	var b strings.Builder
	b.WriteString("Summarize the following blog post.\n\n")
	fmt.Fprintf(&b, "Title: %s\nURL: %s\n", post.Title, post.URL)
	if len(post.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(post.Tags, ", "))
	}
	fmt.Fprintf(&b, "\nContent:\n%s\n", text)

	remaining := budgetChars - len(text)
	if remaining > 0 && len(raw.Sections) > 0 {
		b.WriteString("\nSection outline:\n")
		for _, section := range raw.Sections {
			heading, _, _ := strings.Cut(section, "\n\n")
			if len(heading) > remaining {
				break
			}
			fmt.Fprintf(&b, "- %s\n", heading)
			remaining -= len(heading)
		}
	}

	b.WriteString(`
Respond with a JSON object containing exactly these keys:
  "executive_summary": two or three sentences for a general audience
  "technical_summary": a detailed paragraph for engineers
  "bullet_points": a list of short key takeaways
  "keywords": a list of topical keywords

Return only the JSON object.`)
	return b.String()
}

// buildAnswerPrompt lists each retrieved document with a title/URL header
// followed by its snippet, then the question.
func buildAnswerPrompt(question string, docs []blog.RetrievedDoc) string {
	var b strings.Builder
	b.WriteString("Context from blog posts:\n\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, doc.Title, doc.URL, doc.Snippet)
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
