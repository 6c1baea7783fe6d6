package repository

import (
	"context"
	"strconv"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	pkgkafka "TradePulse/pkg/kafka"
)

// KafkaPublisher emits each published snapshot to a Kafka topic so
// downstream consumers (alerting, persistence, dashboards) see the same
// data the API serves.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.SignalPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishSnapshot writes the snapshot as one JSON message keyed by its
// publish timestamp, so log compaction keeps the newest per partition.
func (p *KafkaPublisher) PublishSnapshot(ctx context.Context, snap *models.MarketSnapshot) error {
	key := []byte(strconv.FormatInt(snap.PublishedAt.Unix(), 10))
	return p.producer.Publish(ctx, p.topic, key, snap)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
