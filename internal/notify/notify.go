// Package notify announces published exports on a Kafka topic.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/go-ports/poimap/internal/config"
	"github.com/go-ports/poimap/internal/models"
)

// EventExportPublished is the Type of an ExportEvent.
const EventExportPublished = "export.published"

// MessageWriter is the subset of *kafka.Writer used by Notifier.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ExportEvent is the message body sent when an export lands in object storage.
type ExportEvent struct {
	Type        string                 `json:"type"`
	Bucket      string                 `json:"bucket"`
	Key         string                 `json:"key"`
	Records     int                    `json:"records"`
	Selection   models.FilterSelection `json:"selection"`
	PublishedAt time.Time              `json:"published_at"`
}

// Notifier publishes events. A Notifier without a writer is a no-op.
type Notifier struct {
	w MessageWriter
}

// New returns a Notifier writing to cfg.Topic on cfg.Brokers, or a no-op
// Notifier when no brokers are configured.
func New(cfg config.NotifyConfig) *Notifier {
	if len(cfg.Brokers) == 0 {
		return &Notifier{}
	}
	return NewWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	})
}

// NewWithWriter returns a Notifier over w.
func NewWithWriter(w MessageWriter) *Notifier {
	return &Notifier{w: w}
}

// Enabled reports whether events are actually sent.
func (n *Notifier) Enabled() bool {
	return n != nil && n.w != nil
}

// ExportPublished sends ev keyed by its object key.
func (n *Notifier) ExportPublished(ctx context.Context, ev ExportEvent) error {
	if !n.Enabled() {
		return nil
	}
	ev.Type = EventExportPublished
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify.ExportPublished: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := n.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("notify.ExportPublished: %w", err)
	}
	slog.Debug("export notification sent", "key", ev.Key)
	return nil
}

// Close flushes and closes the underlying writer.
func (n *Notifier) Close() error {
	if !n.Enabled() {
		return nil
	}
	return n.w.Close()
}
