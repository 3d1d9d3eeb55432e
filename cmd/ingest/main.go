// Command ingest runs one ingestion pass over the configured blog feed and
// prints the committed run result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/blogpulse/blogpulse/internal/events"
	"github.com/blogpulse/blogpulse/internal/pipeline"
	"github.com/blogpulse/blogpulse/internal/ragstore"
	"github.com/blogpulse/blogpulse/internal/scraper"
	"github.com/blogpulse/blogpulse/internal/state"
	"github.com/blogpulse/blogpulse/internal/summarizer"
	"github.com/blogpulse/blogpulse/pkg/config"
	"github.com/blogpulse/blogpulse/pkg/logger"
	"github.com/blogpulse/blogpulse/pkg/objstore"
	"github.com/blogpulse/blogpulse/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	feedURL := flag.String("feed", "", "feed URL (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *feedURL != "" {
		cfg.Feed.URL = *feedURL
	}
	if cfg.Feed.URL == "" {
		fmt.Fprintln(os.Stderr, "no feed URL configured (set feed.url or pass -feed)")
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion run", "feed", cfg.Feed.URL, "backend", cfg.Backend.Kind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *objstore.Client
	if cfg.Backend.Kind == "managed" {
		store, err = objstore.New(objstore.Config{
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

	backend, err := ragstore.New(cfg.Backend, objectStoreOrNil(store), retryCfg)
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

	deps := pipeline.Deps{
		Fetcher: scraper.NewHTTPFetcher(cfg.Feed.FetchTimeout),
		Model:   model,
		Backend: backend,
		State:   stateStore,
	}

	pub, err := events.New(cfg.Events, cfg.Feed.Source)
	if err != nil {
		slog.Error("failed to create run publisher", "error", err)
		os.Exit(1)
	}
	if pub != nil {
		defer pub.Close()
		deps.Events = pub
	}

	result, err := pipeline.New(cfg, deps).Run(ctx)
	if err != nil {
		slog.Error("ingestion run failed", "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

// objectStoreOrNil keeps a typed nil *objstore.Client from becoming a
// non-nil interface value.
func objectStoreOrNil(c *objstore.Client) ragstore.ObjectStore {
	if c == nil {
		return nil
	}
	return c
}
