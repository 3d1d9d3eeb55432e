// Package events publishes committed ingestion run records to Kafka so
// downstream consumers can track corpus growth without polling state.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/pkg/config"
	"github.com/blogpulse/blogpulse/pkg/kafka"
)

// publisher is the slice of the Kafka producer the run publisher needs.
type publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
	Close() error
}

// RunPublisher emits one record per committed ingestion run.
type RunPublisher struct {
	producer publisher
	source   string
	logger   *slog.Logger
}

// runRecord is the published payload.
type runRecord struct {
	Source string               `json:"source"`
	Result blog.IngestionResult `json:"result"`
}

// New creates a RunPublisher, or nil when events are disabled. A nil
// RunPublisher is safe to pass around; the pipeline treats it as absent.
func New(cfg config.EventsConfig, source string) (*RunPublisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("events enabled but no brokers configured")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "ingestion-runs"
	}
	return &RunPublisher{
		producer: kafka.NewProducer(cfg.Brokers, topic),
		source:   source,
		logger:   slog.Default().With("component", "run-publisher", "topic", topic),
	}, nil
}

// PublishRun emits a committed run, keyed by source so one blog's runs stay
// ordered within a partition.
func (p *RunPublisher) PublishRun(ctx context.Context, result blog.IngestionResult) error {
	key := fmt.Sprintf("%s:%s", p.source, result.Timestamp.Format(time.RFC3339))
	return p.producer.Publish(ctx, kafka.Event{
		Key:   key,
		Value: runRecord{Source: p.source, Result: result},
	})
}

// Close flushes and closes the underlying producer.
func (p *RunPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
