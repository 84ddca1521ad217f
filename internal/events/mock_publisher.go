package events

import (
	"context"
	"log/slog"
	"sync"
)

// PublishedEvent is a recorded event of MockEventPublisher
type PublishedEvent struct {
	Topic   string
	Payload interface{}
}

// MockEventPublisher records events in memory
type MockEventPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	logger *slog.Logger
	err    error
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

// FailWith makes subsequent publishes return err
func (m *MockEventPublisher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockEventPublisher) PublishAttemptStarted(ctx context.Context, event AttemptStartedEvent) error {
	return m.record(TopicAttemptStarted, event)
}

func (m *MockEventPublisher) PublishAttemptSubmitted(ctx context.Context, event AttemptSubmittedEvent) error {
	return m.record(TopicAttemptSubmitted, event)
}

func (m *MockEventPublisher) record(topic string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, PublishedEvent{Topic: topic, Payload: payload})
	if m.logger != nil {
		m.logger.Debug("Mock event published", "topic", topic)
	}
	return nil
}

func (m *MockEventPublisher) GetPublishedEvents() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.events...)
}

func (m *MockEventPublisher) Close() error { return nil }
