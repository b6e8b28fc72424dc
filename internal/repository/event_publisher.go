package repository

import (
	"context"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	pkgkafka "Booster/pkg/kafka"

	"github.com/google/uuid"
)

// KafkaEventPublisher announces replaced tables on a Kafka topic, keyed by
// instrument so events of one instrument stay ordered.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishTableEvent(ctx context.Context, ev *models.TableEvent) error {
	stampEvent(ev)
	return p.producer.Publish(ctx, p.topic, []byte(ev.Instrument), ev)
}

// PublishMessage forwards arbitrary payloads, used by the log collector.
func (p *KafkaEventPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.PublishMessage(ctx, topic, payload)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopEventPublisher drops events. Used when Kafka is disabled.
type NoopEventPublisher struct{}

var _ domrepo.EventPublisher = NoopEventPublisher{}

func (NoopEventPublisher) PublishTableEvent(_ context.Context, ev *models.TableEvent) error {
	stampEvent(ev)
	return nil
}

func (NoopEventPublisher) Close() error { return nil }

func stampEvent(ev *models.TableEvent) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.ReplacedAt.IsZero() {
		ev.ReplacedAt = time.Now().UTC()
	}
}
