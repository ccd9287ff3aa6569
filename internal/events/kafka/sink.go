// Package kafka ships registry events to a Kafka topic for downstream audit
// consumers. Records are keyed by subject address so per-address ordering is
// preserved within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"credentry/internal/events"
)

const defaultTopic = "credentry.registry-events"

// Sink produces event envelopes as JSON records.
type Sink struct {
	client *kgo.Client
	topic  string
}

type Option func(*Sink)

// WithTopic overrides the default topic.
func WithTopic(topic string) Option {
	return func(s *Sink) {
		s.topic = topic
	}
}

// New connects to the brokers and ensures the topic exists. Topic creation is
// idempotent; an already-exists response is not an error.
func New(ctx context.Context, brokers []string, opts ...Option) (*Sink, error) {
	s := &Sink{topic: defaultTopic}
	for _, opt := range opts {
		opt(s)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(s.topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	s.client = client

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 3, 1, nil, s.topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %q: %w", s.topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("ensure topic %q: %w", s.topic, res.Err)
		}
	}
	return s, nil
}

// Append produces the event synchronously so relay workers get backpressure
// instead of unbounded buffering.
func (s *Sink) Append(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event %s: %w", event.Name, err)
	}
	return nil
}

// Close flushes and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
