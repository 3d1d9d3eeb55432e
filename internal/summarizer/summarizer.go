// Package summarizer produces structured summaries of article content and
// grounded answers over retrieved documents, via a configurable LLM provider
// (Anthropic or OpenAI-compatible).
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/pkg/config"
	errs "github.com/blogpulse/blogpulse/pkg/errors"
)

// Model is the port the pipeline and QA orchestrator depend on.
type Model interface {
	Summarize(ctx context.Context, post blog.Post, raw blog.RawContent) (blog.Summary, error)
	Answer(ctx context.Context, question string, docs []blog.RetrievedDoc) (string, error)
}

// completer is the provider-level primitive: one system+user exchange in,
// raw model text out.
type completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client implements Model on top of a provider completer. The provider is
// chosen once at construction from configuration.
type Client struct {
	completer   completer
	budgetChars int
	timeout     time.Duration
	logger      *slog.Logger
}

// New builds a Client for the configured provider.
func New(cfg config.LLMConfig) (*Client, error) {
	var c completer
	switch cfg.Provider {
	case "anthropic":
		c = newAnthropicCompleter(cfg)
	case "openai":
		c = newOpenAICompleter(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	budget := cfg.SummaryBudgetChars
	if budget <= 0 {
		budget = 4000
	}
	return &Client{
		completer:   c,
		budgetChars: budget,
		timeout:     cfg.Timeout,
		logger:      slog.Default().With("component", "summarizer", "provider", cfg.Provider),
	}, nil
}

// Summarize asks the model for a strict-JSON summary of the post content and
// parses the response tolerantly. Malformed responses fail with
// ErrSummaryParseFailed for this post only.
func (c *Client) Summarize(ctx context.Context, post blog.Post, raw blog.RawContent) (blog.Summary, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.completer.Complete(ctx, summarySystemPrompt, buildSummaryPrompt(post, raw, c.budgetChars))
	if err != nil {
		return blog.Summary{}, fmt.Errorf("summarizing %s: %w", post.ID, err)
	}

	payload, err := parseSummaryResponse(resp)
	if err != nil {
		return blog.Summary{}, errs.Wrap(errs.ErrSummaryParseFailed, err, "post %s", post.ID)
	}

	summary, err := blog.NewSummary(post, payload.ExecutiveSummary, payload.TechnicalSummary, payload.BulletPoints, payload.Keywords)
	if err != nil {
		return blog.Summary{}, errs.Wrap(errs.ErrSummaryParseFailed, err, "post %s", post.ID)
	}

	c.logger.Debug("post summarized", "post_id", post.ID, "keywords", len(summary.Keywords))
	return summary, nil
}

// Answer asks the model to answer the question using only the retrieved
// documents as context.
func (c *Client) Answer(ctx context.Context, question string, docs []blog.RetrievedDoc) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	answer, err := c.completer.Complete(ctx, answerSystemPrompt, buildAnswerPrompt(question, docs))
	if err != nil {
		return "", fmt.Errorf("answering question: %w", err)
	}
	return answer, nil
}
