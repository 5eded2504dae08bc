// Package kafka mirrors audit events onto a Kafka topic for downstream
// consumers (SIEM, retention pipelines). The durable log lives in the store;
// this sink is best-effort.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"gatepass/pkg/audit"
)

type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish produces the event keyed by subject so per-subject ordering holds
// within a partition. Delivery failures are logged, never returned upstream
// of the caller's pipeline.
func (p *Publisher) Publish(ctx context.Context, e audit.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(e.SubjectType + ":" + strconv.FormatInt(e.SubjectID, 10)),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit event not delivered to kafka",
				"topic", p.topic, "action", e.Action, "error", err)
		}
	})
	return nil
}

func (p *Publisher) Close() {
	p.client.Close()
}
