// Package kafka forwards audit events to a Kafka topic, keyed by account so
// one account's trail stays ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "github.com/ip-fomin/LaborX-backend/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client this sink needs; tests substitute a
// recording implementation.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Sink struct {
	producer Producer
	topic    string
}

// New wires a Kafka audit sink over an existing franz-go client.
func New(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

// NewClient builds a franz-go client for the given brokers.
func NewClient(brokers []string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return client, nil
}

// payload is the JSON structure published to the topic. Field names match
// audit.Event so consumers can deserialize without a second schema.
type payload struct {
	Category  string `json:"Category"`
	Timestamp string `json:"Timestamp"`
	AccountID string `json:"AccountID,omitempty"`
	Action    string `json:"Action"`
	Level     int    `json:"Level,omitempty"`
	Purpose   string `json:"Purpose,omitempty"`
	Reason    string `json:"Reason,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
	Device    string `json:"Device,omitempty"`
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	body, err := json.Marshal(payload{
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		AccountID: event.AccountID.String(),
		Action:    event.Action,
		Level:     event.Level,
		Purpose:   event.Purpose,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		Device:    event.Device,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.AccountID.String()),
		Value: body,
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}
