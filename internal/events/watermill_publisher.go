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

// WatermillPublisher sends events through any watermill publisher
type WatermillPublisher struct {
	publisher   message.Publisher
	topicPrefix string
	logger      *slog.Logger
}

func NewWatermillPublisher(publisher message.Publisher, topicPrefix string, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher, topicPrefix: topicPrefix, logger: logger}
}

// NewKafkaPublisher connects a watermill Kafka publisher to brokers
func NewKafkaPublisher(brokers []string, topicPrefix string, logger *slog.Logger) (*WatermillPublisher, error) {
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
	return NewWatermillPublisher(publisher, topicPrefix, logger), nil
}

// NewInProcessPublisher returns a gochannel-backed publisher and its subscriber side
func NewInProcessPublisher(topicPrefix string, logger *slog.Logger) (*WatermillPublisher, *gochannel.GoChannel) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
	return NewWatermillPublisher(pubSub, topicPrefix, logger), pubSub
}

func (p *WatermillPublisher) PublishAttemptStarted(ctx context.Context, event AttemptStartedEvent) error {
	return p.publish(ctx, TopicAttemptStarted, event)
}

func (p *WatermillPublisher) PublishAttemptSubmitted(ctx context.Context, event AttemptSubmittedEvent) error {
	return p.publish(ctx, TopicAttemptSubmitted, event)
}

func (p *WatermillPublisher) Topic(name string) string {
	if p.topicPrefix == "" {
		return name
	}
	return p.topicPrefix + "." + name
}

func (p *WatermillPublisher) publish(ctx context.Context, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("event_type", name)
	msg.SetContext(ctx)

	topic := p.Topic(name)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.logger.Debug("Event published", "topic", topic, "message_id", msg.UUID)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
