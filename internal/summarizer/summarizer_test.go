package summarizer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/blogpulse/blogpulse/internal/blog"
	errs "github.com/blogpulse/blogpulse/pkg/errors"
)

type fakeCompleter struct {
	response string
	err      error
	lastUser string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func summarizerPost() (blog.Post, blog.RawContent) {
	url := "https://example.org/posts/alpha"
	post := blog.Post{
		ID:     blog.PostID(url),
		URL:    url,
		Title:  "Alpha Release",
		Source: "example-blog",
	}
	raw := blog.RawContent{
		PostID:   post.ID,
		URL:      url,
		Title:    post.Title,
		Text:     strings.Repeat("The alpha release adds streaming support. ", 200),
		Sections: []string{"Overview\n\nIt streams.", "Details\n\nDeeply."},
	}
	return post, raw
}

func TestSummarizeParsesAndNormalizes(t *testing.T) {
	fake := &fakeCompleter{response: "```json\n" + validSummaryJSON + "\n```"}
	c := &Client{completer: fake, budgetChars: 4000, logger: slog.Default()}

	post, raw := summarizerPost()
	summary, err := c.Summarize(t.Context(), post, raw)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.PostID != post.ID || summary.URL != post.URL {
		t.Errorf("summary identity fields wrong: %+v", summary)
	}
	if len(summary.Keywords) == 0 {
		t.Error("keywords not carried through")
	}
}

func TestSummarizeTruncatesToBudget(t *testing.T) {
	fake := &fakeCompleter{response: validSummaryJSON}
	c := &Client{completer: fake, budgetChars: 500, logger: slog.Default()}

	post, raw := summarizerPost()
	if _, err := c.Summarize(t.Context(), post, raw); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(fake.lastUser) > 1200 {
		t.Errorf("prompt not truncated: %d chars", len(fake.lastUser))
	}
	if !strings.Contains(fake.lastUser, post.Title) {
		t.Error("prompt missing post title")
	}
}

func TestSummarizeMalformedResponse(t *testing.T) {
	fake := &fakeCompleter{response: `here is the summary: {"executive_summary": "unterminated`}
	c := &Client{completer: fake, budgetChars: 4000, logger: slog.Default()}

	post, raw := summarizerPost()
	_, err := c.Summarize(t.Context(), post, raw)
	if !errors.Is(err, errs.ErrSummaryParseFailed) {
		t.Fatalf("expected ErrSummaryParseFailed, got %v", err)
	}
	if errs.IsTransient(err) {
		t.Error("parse failures must be permanent")
	}
}

func TestAnswerPromptIncludesDocs(t *testing.T) {
	fake := &fakeCompleter{response: "Grounded answer."}
	c := &Client{completer: fake, logger: slog.Default()}

	docs := []blog.RetrievedDoc{
		{PostID: "p1", Title: "Alpha Release", URL: "https://example.org/posts/alpha", Snippet: "Alpha adds streaming.", Score: 0.9},
		{PostID: "p2", Title: "Beta Notes", URL: "https://example.org/posts/beta", Snippet: "Beta fixes bugs.", Score: 0.7},
	}
	answer, err := c.Answer(t.Context(), "what changed in alpha?", docs)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "Grounded answer." {
		t.Errorf("answer = %q", answer)
	}
	for _, want := range []string{"Alpha Release", "https://example.org/posts/beta", "Beta fixes bugs.", "what changed in alpha?"} {
		if !strings.Contains(fake.lastUser, want) {
			t.Errorf("answer prompt missing %q", want)
		}
	}
}
