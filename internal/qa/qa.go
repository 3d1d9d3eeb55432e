// Package qa answers questions grounded in the indexed blog corpus. Every
// answer is backed by retrieved documents; when retrieval comes back empty
// the service refuses instead of letting the model guess.
package qa

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/internal/cache"
	"github.com/blogpulse/blogpulse/internal/ragstore"
	"github.com/blogpulse/blogpulse/internal/summarizer"
	"github.com/blogpulse/blogpulse/pkg/config"
	errs "github.com/blogpulse/blogpulse/pkg/errors"
	"github.com/blogpulse/blogpulse/pkg/metrics"
	"github.com/blogpulse/blogpulse/pkg/resilience"
)

// RefusalNoContext is returned verbatim when retrieval finds nothing.
const RefusalNoContext = "I couldn't find any blog posts related to that question. Please try rephrasing or asking about topics covered on the blog."

// RefusalEmptyQuestion is returned for blank questions.
const RefusalEmptyQuestion = "Please ask a question about the blog's content."

// maxTopK caps per-request retrieval depth.
const maxTopK = 20

// errNoContext routes the empty-retrieval case out of the cache compute
// path so refusals are never cached.
var errNoContext = errors.New("no documents retrieved")

// Service orchestrates retrieve-then-answer with caching and per-session
// query logs.
type Service struct {
	backend  ragstore.Backend
	model    summarizer.Model
	cache    *cache.QueryCache
	sessions *cache.Sessions
	topK     int
	retry    resilience.RetryConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a QA Service. Metrics may be nil.
func New(cfg *config.Config, backend ragstore.Backend, model summarizer.Model, qc *cache.QueryCache, sessions *cache.Sessions, m *metrics.Metrics) *Service {
	topK := cfg.Cache.TopK
	if topK <= 0 {
		topK = 8
	}
	return &Service{
		backend:  backend,
		model:    model,
		cache:    qc,
		sessions: sessions,
		topK:     topK,
		retry: resilience.RetryConfig{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			BaseDelay:      cfg.Retry.BaseDelay,
			MaxDelay:       cfg.Retry.MaxDelay,
			Multiplier:     cfg.Retry.Multiplier,
			JitterFraction: cfg.Retry.JitterFraction,
			RetryIf:        errs.IsTransient,
		},
		metrics:  m,
		logger:   slog.Default().With("component", "qa"),
		now:      time.Now,
	}
}

// Ask answers a question, retrieving up to k documents. A k outside [1,
// maxTopK] falls back to the configured default or the cap. The second
// return value reports whether the answer was served from cache.
func (s *Service) Ask(ctx context.Context, question, sessionID string, k int) (*blog.Answer, bool, error) {
	start := s.now()
	k = s.clampK(k)

	if strings.TrimSpace(question) == "" {
		s.observeRequest("refused", "miss", start)
		return &blog.Answer{
			Question:  question,
			Answer:    RefusalEmptyQuestion,
			Refused:   true,
			CreatedAt: s.now().UTC(),
		}, false, nil
	}

	answer, cached, err := s.cache.GetOrCompute(ctx, question, k, func() (*blog.Answer, error) {
		return s.compute(ctx, question, k)
	})
	if err != nil {
		if errors.Is(err, errNoContext) {
			s.observeRequest("refused", "miss", start)
			refusal := &blog.Answer{
				Question:  question,
				Answer:    RefusalNoContext,
				Refused:   true,
				CreatedAt: s.now().UTC(),
			}
			s.record(sessionID, refusal, false)
			return refusal, false, nil
		}
		s.observeRequest("error", "miss", start)
		return nil, false, err
	}

	cacheStatus := "miss"
	if cached {
		cacheStatus = "hit"
		if s.metrics != nil {
			s.metrics.CacheHitsTotal.Inc()
		}
	} else if s.metrics != nil {
		s.metrics.CacheMissesTotal.Inc()
	}
	s.observeRequest("answered", cacheStatus, start)
	s.record(sessionID, answer, cached)
	return answer, cached, nil
}

// clampK resolves the retrieval depth for one request: the configured
// default when unset, never more than maxTopK.
func (s *Service) clampK(k int) int {
	switch {
	case k <= 0:
		return s.topK
	case k > maxTopK:
		return maxTopK
	}
	return k
}

// compute runs retrieve-then-answer once. Returning errNoContext keeps the
// refusal out of the cache.
func (s *Service) compute(ctx context.Context, question string, k int) (*blog.Answer, error) {
	docs, err := s.backend.Retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RetrievedDocsCount.Observe(float64(len(docs)))
	}
	if len(docs) == 0 {
		return nil, errNoContext
	}

	var text string
	err = resilience.Retry(ctx, "qa-answer", s.retry, func() error {
		var aerr error
		text, aerr = s.model.Answer(ctx, question, docs)
		return aerr
	})
	if err != nil {
		return nil, err
	}

	return &blog.Answer{
		Question:  question,
		Answer:    text,
		Sources:   docs,
		CreatedAt: s.now().UTC(),
	}, nil
}

// Session returns a session's query log.
func (s *Service) Session(id string) ([]cache.SessionEntry, bool) {
	if s.sessions == nil {
		return nil, false
	}
	return s.sessions.Get(id)
}

// CacheStats returns response cache hit and miss counters.
func (s *Service) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}

func (s *Service) record(sessionID string, answer *blog.Answer, cached bool) {
	if s.sessions == nil || sessionID == "" {
		return
	}
	s.sessions.Record(sessionID, cache.SessionEntry{
		Question: answer.Question,
		Answer:   answer.Answer,
		CacheHit: cached,
		AskedAt:  s.now().UTC(),
	})
}

func (s *Service) observeRequest(result, cacheStatus string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.QARequestsTotal.WithLabelValues(result).Inc()
	s.metrics.QALatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
}
