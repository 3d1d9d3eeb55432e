// Command server runs the HTTP service: QA over the indexed corpus,
// on-demand ingestion, run history, session logs, health, and metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/blogpulse/blogpulse/internal/cache"
	"github.com/blogpulse/blogpulse/internal/events"
	"github.com/blogpulse/blogpulse/internal/pipeline"
	"github.com/blogpulse/blogpulse/internal/qa"
	"github.com/blogpulse/blogpulse/internal/ragstore"
	"github.com/blogpulse/blogpulse/internal/scraper"
	"github.com/blogpulse/blogpulse/internal/server"
	"github.com/blogpulse/blogpulse/internal/state"
	"github.com/blogpulse/blogpulse/internal/summarizer"
	"github.com/blogpulse/blogpulse/pkg/config"
	"github.com/blogpulse/blogpulse/pkg/health"
	"github.com/blogpulse/blogpulse/pkg/logger"
	"github.com/blogpulse/blogpulse/pkg/metrics"
	"github.com/blogpulse/blogpulse/pkg/objstore"
	pkgredis "github.com/blogpulse/blogpulse/pkg/redis"
	"github.com/blogpulse/blogpulse/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting server",
		"port", cfg.Server.Port,
		"backend", cfg.Backend.Kind,
		"llm_provider", cfg.LLM.Provider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var objClient *objstore.Client
	if cfg.Backend.Kind == "managed" {
		objClient, err = objstore.New(objstore.Config{
			Bucket:          cfg.Backend.Managed.Bucket,
			Region:          cfg.Backend.Managed.Region,
			Endpoint:        cfg.Backend.Managed.Endpoint,
			AccessKeyID:     cfg.Backend.Managed.AccessKeyID,
			SecretAccessKey: cfg.Backend.Managed.SecretAccessKey,
			PathStyle:       cfg.Backend.Managed.PathStyle,
		})
		if err != nil {
			slog.Error("failed to create object store client", "error", err)
			os.Exit(1)
		}
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		Multiplier:     cfg.Retry.Multiplier,
		JitterFraction: cfg.Retry.JitterFraction,
	}

	var objStore ragstore.ObjectStore
	if objClient != nil {
		objStore = objClient
	}
	backend, err := ragstore.New(cfg.Backend, objStore, retryCfg)
	if err != nil {
		slog.Error("failed to create retrieval backend", "error", err)
		os.Exit(1)
	}

	model, err := summarizer.New(cfg.LLM)
	if err != nil {
		slog.Error("failed to create summarizer", "error", err)
		os.Exit(1)
	}

	stateStore, err := state.Open(cfg.State.Path, cfg.Backend.Managed)
	if err != nil {
		slog.Error("failed to open state store", "error", err)
		os.Exit(1)
	}

	var cacheStore cache.Store
	var redisClient *pkgredis.Client
	if cfg.Cache.Backend == "redis" {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, falling back to in-memory cache", "error", err)
			cacheStore = cache.NewMemory(cfg.Cache.MaxSize)
		} else {
			defer redisClient.Close()
			cacheStore = cache.NewRedis(redisClient)
			slog.Info("response cache using redis", "addr", cfg.Redis.Addr)
		}
	} else {
		cacheStore = cache.NewMemory(cfg.Cache.MaxSize)
	}
	qc := cache.New(cacheStore, cfg.Cache.TTL)
	sessions := cache.NewSessions(cfg.Session)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		if cfg.Metrics.Port > 0 {
			shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := shutdownMetrics(shutdownCtx); err != nil {
					slog.Error("metrics server shutdown error", "error", err)
				}
			}()
		}
	}

	deps := pipeline.Deps{
		Fetcher: scraper.NewHTTPFetcher(cfg.Feed.FetchTimeout),
		Model:   model,
		Backend: backend,
		State:   stateStore,
		Metrics: m,
	}
	pub, err := events.New(cfg.Events, cfg.Feed.Source)
	if err != nil {
		slog.Error("failed to create run publisher", "error", err)
		os.Exit(1)
	}
	if pub != nil {
		defer pub.Close()
		deps.Events = pub
		slog.Info("run events enabled", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	}

	p := pipeline.New(cfg, deps)
	qaSvc := qa.New(cfg, backend, model, qc, sessions, m)

	checker := health.NewChecker()
	checker.Register("state", func(ctx context.Context) health.ComponentHealth {
		if _, err := stateStore.Load(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if objClient != nil {
		checker.Register("object_store", func(ctx context.Context) health.ComponentHealth {
			if err := objClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}
	if redisClient != nil {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	handler := server.New(qaSvc, p, stateStore)
	router := server.NewRouter(handler, checker, m, cfg.Server.RequestTimeout)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
