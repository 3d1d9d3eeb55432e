// Package kafka provides a small synchronous producer for publishing run
// records.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is one record to publish. Key selects the partition; Value is
// JSON-encoded on the wire.
type Event struct {
	Key   string
	Value any
}

// Producer writes events to a single topic and waits for broker acks.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer builds a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
			BatchTimeout: 10 * time.Millisecond,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish encodes event.Value as JSON and writes it, blocking until the
// brokers acknowledge.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("encoding event %q: %w", event.Key, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
	})
	if err != nil {
		p.logger.Error("publish failed", "key", event.Key, "error", err)
		return fmt.Errorf("publishing event %q: %w", event.Key, err)
	}
	p.logger.Debug("event published", "key", event.Key, "bytes", len(value))
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
