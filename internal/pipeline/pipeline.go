// Package pipeline runs one ingestion pass: parse the feed, diff against
// the watermark, fetch and extract new posts, summarize them, index the
// summaries, then commit state atomically. Individual post failures are
// absorbed; a failed post is simply not committed and gets retried on the
// next run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/internal/feed"
	"github.com/blogpulse/blogpulse/internal/ragstore"
	"github.com/blogpulse/blogpulse/internal/scraper"
	"github.com/blogpulse/blogpulse/internal/state"
	"github.com/blogpulse/blogpulse/internal/summarizer"
	"github.com/blogpulse/blogpulse/pkg/config"
	errs "github.com/blogpulse/blogpulse/pkg/errors"
	"github.com/blogpulse/blogpulse/pkg/metrics"
	"github.com/blogpulse/blogpulse/pkg/resilience"
)

// RunPublisher receives committed run results, e.g. for a Kafka audit topic.
type RunPublisher interface {
	PublishRun(ctx context.Context, result blog.IngestionResult) error
}

// Deps are the collaborators a Pipeline needs. Events and Metrics are
// optional.
type Deps struct {
	Fetcher scraper.Fetcher
	Model   summarizer.Model
	Backend ragstore.Backend
	State   state.Store
	Events  RunPublisher
	Metrics *metrics.Metrics
}

// Pipeline orchestrates ingestion runs. It is safe to reuse across runs but
// runs must not overlap, since each run owns the loaded state.
type Pipeline struct {
	feedURL              string
	source               string
	fetcher              scraper.Fetcher
	model                summarizer.Model
	backend              ragstore.Backend
	state                state.Store
	events               RunPublisher
	metrics              *metrics.Metrics
	retry                resilience.RetryConfig
	fetchConcurrency     int
	summarizeConcurrency int
	ingestConcurrency    int
	historyMax           int
	logger               *slog.Logger
	now                  func() time.Time
}

// New creates a Pipeline from configuration and its collaborators.
func New(cfg *config.Config, deps Deps) *Pipeline {
	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		Multiplier:     cfg.Retry.Multiplier,
		JitterFraction: cfg.Retry.JitterFraction,
		RetryIf:        errs.IsTransient,
	}
	return &Pipeline{
		feedURL:              cfg.Feed.URL,
		source:               cfg.Feed.Source,
		fetcher:              deps.Fetcher,
		model:                deps.Model,
		backend:              deps.Backend,
		state:                deps.State,
		events:               deps.Events,
		metrics:              deps.Metrics,
		retry:                retry,
		fetchConcurrency:     concurrency(cfg.Feed.FetchConcurrency, 8),
		summarizeConcurrency: concurrency(cfg.Pipeline.SummarizeConcurrency, 4),
		ingestConcurrency:    concurrency(cfg.Pipeline.IngestConcurrency, 4),
		historyMax:           cfg.Pipeline.HistoryMaxEntries,
		logger:               slog.Default().With("component", "pipeline"),
		now:                  time.Now,
	}
}

func concurrency(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}

// item tracks one new post through the stages. Slots keep feed order so the
// commit is deterministic regardless of worker scheduling.
type item struct {
	post    blog.Post
	raw     *blog.RawContent
	summary *blog.Summary
	indexed bool
}

// Run fetches the feed and ingests everything new in it.
func (p *Pipeline) Run(ctx context.Context) (blog.IngestionResult, error) {
	var feedData string
	err := resilience.Retry(ctx, "fetch-feed", p.retry, func() error {
		var ferr error
		feedData, ferr = p.fetcher.Fetch(ctx, p.feedURL)
		return ferr
	})
	if err != nil {
		p.observeRun("failed", 0)
		return blog.IngestionResult{}, fmt.Errorf("fetching feed %s: %w", p.feedURL, err)
	}
	return p.IngestFeed(ctx, feedData)
}

// IngestFeed runs the pipeline over already-fetched feed data.
func (p *Pipeline) IngestFeed(ctx context.Context, feedData string) (blog.IngestionResult, error) {
	start := p.now()

	posts := feed.NewParser(p.feedURL, p.source).Parse([]byte(feedData))
	if p.metrics != nil {
		p.metrics.PostsDiscoveredTotal.Add(float64(len(posts)))
	}

	st, err := p.state.Load(ctx)
	if err != nil {
		p.observeRun("failed", time.Since(start))
		return blog.IngestionResult{}, fmt.Errorf("loading state: %w", err)
	}

	items := make([]*item, 0, len(posts))
	for _, post := range posts {
		if st.Seen(post.ID) {
			continue
		}
		items = append(items, &item{post: post})
	}
	p.logger.Info("run started", "discovered", len(posts), "new", len(items))

	p.extractAll(ctx, items)
	p.summarizeAll(ctx, items)
	p.ingestAll(ctx, items)

	// A cancelled run commits nothing, even for posts that made it all the
	// way through.
	if ctx.Err() != nil {
		p.observeRun("cancelled", time.Since(start))
		return blog.IngestionResult{}, fmt.Errorf("run cancelled: %w", ctx.Err())
	}

	summarized := 0
	ingestedIDs := make([]string, 0, len(items))
	for _, it := range items {
		if it.summary != nil {
			summarized++
		}
		if it.indexed {
			ingestedIDs = append(ingestedIDs, it.post.ID)
		}
	}

	result := blog.IngestionResult{
		DiscoveredCount: len(posts),
		NewCount:        len(items),
		SummarizedCount: summarized,
		IngestedCount:   len(ingestedIDs),
		NewPostIDs:      ingestedIDs,
		Timestamp:       p.now().UTC(),
	}

	st.AddSeen(ingestedIDs...)
	st.RecordRun(result, p.historyMax)
	if err := p.state.Save(ctx, st); err != nil {
		p.observeRun("failed", time.Since(start))
		return blog.IngestionResult{}, fmt.Errorf("saving state: %w", err)
	}

	if p.events != nil {
		if err := p.events.PublishRun(ctx, result); err != nil {
			p.logger.Warn("publishing run event failed", "error", err)
		}
	}

	p.observeRun("committed", time.Since(start))
	p.logger.Info("run committed",
		"discovered", result.DiscoveredCount,
		"new", result.NewCount,
		"summarized", result.SummarizedCount,
		"ingested", result.IngestedCount,
	)
	return result, nil
}

// extractAll fetches and extracts content for each item. Posts carrying
// inline feed content skip the network round trip.
func (p *Pipeline) extractAll(ctx context.Context, items []*item) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fetchConcurrency)
	for _, it := range items {
		it := it
		g.Go(func() error {
			html := it.post.InlineContent
			if html == "" {
				err := resilience.Retry(gctx, "fetch-post", p.retry, func() error {
					var ferr error
					html, ferr = p.fetcher.Fetch(gctx, it.post.URL)
					return ferr
				})
				if err != nil {
					p.logger.Warn("fetch failed, skipping post", "post_id", it.post.ID, "url", it.post.URL, "error", err)
					p.observeStage("extract", "failed")
					return nil
				}
			}
			raw := scraper.Extract(it.post, html)
			it.raw = &raw
			p.observeStage("extract", "ok")
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) summarizeAll(ctx context.Context, items []*item) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.summarizeConcurrency)
	for _, it := range items {
		it := it
		g.Go(func() error {
			if it.raw == nil {
				return nil
			}
			var summary blog.Summary
			err := resilience.Retry(gctx, "summarize-post", p.retry, func() error {
				var serr error
				summary, serr = p.model.Summarize(gctx, it.post, *it.raw)
				return serr
			})
			if err != nil {
				p.logger.Warn("summarize failed, skipping post", "post_id", it.post.ID, "error", err)
				p.observeStage("summarize", "failed")
				return nil
			}
			it.summary = &summary
			p.observeStage("summarize", "ok")
			return nil
		})
	}
	_ = g.Wait()
}

// ingestAll indexes summaries. Backend implementations already retry
// transient failures internally.
func (p *Pipeline) ingestAll(ctx context.Context, items []*item) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.ingestConcurrency)
	for _, it := range items {
		it := it
		g.Go(func() error {
			if it.summary == nil {
				return nil
			}
			if err := p.backend.Ingest(gctx, *it.summary); err != nil {
				p.logger.Warn("ingest failed, skipping post", "post_id", it.post.ID, "error", err)
				p.observeStage("ingest", "failed")
				return nil
			}
			it.indexed = true
			p.observeStage("ingest", "ok")
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) observeStage(stage, status string) {
	if p.metrics != nil {
		p.metrics.PostsStageTotal.WithLabelValues(stage, status).Inc()
	}
}

func (p *Pipeline) observeRun(outcome string, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.IngestRunsTotal.WithLabelValues(outcome).Inc()
	if outcome == "committed" {
		p.metrics.IngestRunDuration.Observe(elapsed.Seconds())
	}
}
