package events

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/pkg/config"
	"github.com/blogpulse/blogpulse/pkg/kafka"
)

type fakeProducer struct {
	events []kafka.Event
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, event kafka.Event) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestNewDisabledReturnsNil(t *testing.T) {
	p, err := New(config.EventsConfig{Enabled: false}, "example")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p != nil {
		t.Error("disabled events must yield a nil publisher")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close on nil publisher: %v", err)
	}
}

func TestNewEnabledRequiresBrokers(t *testing.T) {
	if _, err := New(config.EventsConfig{Enabled: true}, "example"); err == nil {
		t.Fatal("expected error for missing brokers")
	}
}

func TestPublishRunKeyAndPayload(t *testing.T) {
	fake := &fakeProducer{}
	p := &RunPublisher{producer: fake, source: "example", logger: slog.Default()}

	result := blog.IngestionResult{
		DiscoveredCount: 3,
		IngestedCount:   2,
		Timestamp:       time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}
	if err := p.PublishRun(t.Context(), result); err != nil {
		t.Fatalf("PublishRun: %v", err)
	}

	if len(fake.events) != 1 {
		t.Fatalf("events = %d", len(fake.events))
	}
	if !strings.HasPrefix(fake.events[0].Key, "example:") {
		t.Errorf("key = %q", fake.events[0].Key)
	}
	record, ok := fake.events[0].Value.(runRecord)
	if !ok {
		t.Fatalf("value type %T", fake.events[0].Value)
	}
	if record.Source != "example" || record.Result.IngestedCount != 2 {
		t.Errorf("record = %+v", record)
	}
}
