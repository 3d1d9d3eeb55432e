// Command ask answers a single question against the indexed blog corpus and
// prints the answer with its sources.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/blogpulse/blogpulse/internal/cache"
	"github.com/blogpulse/blogpulse/internal/qa"
	"github.com/blogpulse/blogpulse/internal/ragstore"
	"github.com/blogpulse/blogpulse/internal/summarizer"
	"github.com/blogpulse/blogpulse/pkg/config"
	"github.com/blogpulse/blogpulse/pkg/logger"
	"github.com/blogpulse/blogpulse/pkg/objstore"
	"github.com/blogpulse/blogpulse/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	topK := flag.Int("k", 0, "number of documents to retrieve (overrides config)")
	flag.Parse()

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "usage: ask [-config path] [-k n] <question>")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

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

	var objStore ragstore.ObjectStore
	if store != nil {
		objStore = store
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

	qc := cache.New(cache.NewMemory(cfg.Cache.MaxSize), cfg.Cache.TTL)
	svc := qa.New(cfg, backend, model, qc, nil, nil)

	answer, _, err := svc.Ask(ctx, question, "", *topK)
	if err != nil {
		slog.Error("failed to answer question", "error", err)
		os.Exit(1)
	}

	fmt.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, doc := range answer.Sources {
			fmt.Printf("  [%d] %s (%s) score=%.2f\n", i+1, doc.Title, doc.URL, doc.Score)
		}
	}
}
