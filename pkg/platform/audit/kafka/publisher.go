// Package kafka publishes audit events to a Kafka topic.
//
// The publisher is fail-open: verification flows must not stall because the
// audit pipeline is degraded, so produce errors are logged, not returned.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "warden/pkg/platform/audit"
)

// Publisher emits audit events to Kafka using franz-go.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the brokers and ensures the audit topic exists.
func New(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	for _, res := range resp.Sorted() {
		if topicEnsureFailed(res.Err) {
			logger.Warn("audit topic creation reported error", "topic", res.Topic, "error", res.Err)
		}
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// topicEnsureFailed reports whether a create-topic response needs a warning.
// TOPIC_ALREADY_EXISTS is the normal restart case and is not a failure.
func topicEnsureFailed(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, kerr.TopicAlreadyExists)
}

// Emit produces one audit event asynchronously.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.SubjectID),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("failed to produce audit event",
				"action", event.Action, "error", err)
		}
	})
	return nil
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		p.client.Close()
		return fmt.Errorf("flush audit events: %w", err)
	}
	p.client.Close()
	return nil
}
