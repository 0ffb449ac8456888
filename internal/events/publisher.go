package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Config selects the transport: Kafka when brokers are given, in-process otherwise
type Config struct {
	KafkaBrokers []string
	Topic        string
}

type watermillEventPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

// NewEventPublisher builds the publisher described by cfg
func NewEventPublisher(cfg Config, logger *slog.Logger) (EventPublisher, error) {
	if len(cfg.KafkaBrokers) > 0 {
		return NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.Topic, logger)
	}
	logger.Warn("No Kafka brokers configured, publishing events in-process", "topic", cfg.Topic)
	publisher, _ := NewInProcessEventPublisher(cfg.Topic, logger)
	return publisher, nil
}

func NewKafkaEventPublisher(brokers []string, topic string, logger *slog.Logger) (EventPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	logger.Info("Kafka event publisher created", "brokers", brokers, "topic", topic)
	return &watermillEventPublisher{publisher: publisher, topic: topic, logger: logger}, nil
}

// NewInProcessEventPublisher also returns the channel so in-process consumers can subscribe
func NewInProcessEventPublisher(topic string, logger *slog.Logger) (EventPublisher, *gochannel.GoChannel) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	return &watermillEventPublisher{publisher: pubSub, topic: topic, logger: logger}, pubSub
}

func (p *watermillEventPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published", "event_id", event.ID, "event_type", event.Type)
	return nil
}

func (p *watermillEventPublisher) Close() error {
	return p.publisher.Close()
}
