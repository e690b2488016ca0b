package events

import (
	"context"
	"errors"
	"time"

	"glimpse/internal/config"
	"glimpse/internal/featureflags"
	"glimpse/internal/middleware"
	"glimpse/internal/observability"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates an async writer; delivery errors surface
// through the writer's completion callback.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("events: no kafka brokers configured")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				middleware.Logger.Error("kafka batch delivery failed", "messages", len(msgs), "error", err)
			}
		},
	}
	return &KafkaPublisher{w: w}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	payload, err := e.encode()
	if err != nil {
		logPublishError(ctx, e, err)
		observability.EventsPublished.WithLabelValues(e.Type, "error").Inc()
		return
	}
	msg := kafka.Message{
		Key:   e.Key(),
		Value: payload,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		logPublishError(ctx, e, err)
		observability.EventsPublished.WithLabelValues(e.Type, "error").Inc()
		return
	}
	observability.EventsPublished.WithLabelValues(e.Type, "ok").Inc()
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// NewPublisher returns a Kafka publisher gated by the domain_events flag,
// or a NopPublisher when KAFKA_BROKERS is empty.
func NewPublisher(cfg *config.Config, flags *featureflags.Set) (Publisher, error) {
	brokers := cfg.KafkaBrokerList()
	if len(brokers) == 0 {
		return NopPublisher{}, nil
	}
	kp, err := NewKafkaPublisher(brokers, cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	middleware.Logger.Info("domain events enabled", "brokers", brokers, "topic", cfg.KafkaTopic)
	return Gate(kp, flags), nil
}
