package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

// EventProducer publishes interaction events to the event sink.
type EventProducer interface {
	PublishInteraction(ctx context.Context, ev *domain.InteractionEvent) error
	Close() error
}

// StreamEvent is a stream lifecycle change emitted by the media pipeline.
type StreamEvent struct {
	Type          string `json:"type"` // "stream_started" | "stream_ended"
	StreamID      string `json:"streamId"`
	BroadcasterID string `json:"broadcasterId"`
	Timestamp     int64  `json:"timestamp,omitempty"`
}

// Event types
const (
	EventStreamStarted = "stream_started"
	EventStreamEnded   = "stream_ended"
)

// Status maps the lifecycle type to the status broadcast to viewers.
func (e *StreamEvent) Status() (string, bool) {
	switch e.Type {
	case EventStreamStarted:
		return domain.StreamStatusLive, true
	case EventStreamEnded:
		return domain.StreamStatusEnded, true
	}
	return "", false
}

// DecodeStreamEvent parses and validates a stream lifecycle message value.
func DecodeStreamEvent(value []byte) (*StreamEvent, error) {
	var ev StreamEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream event: %w", err)
	}
	if _, ok := ev.Status(); !ok {
		return nil, fmt.Errorf("unknown stream event type %q", ev.Type)
	}
	if err := domain.ValidateID("streamId", ev.StreamID); err != nil {
		return nil, err
	}
	return &ev, nil
}

// StreamEventHandler handles incoming stream lifecycle events.
type StreamEventHandler interface {
	HandleStreamEvent(ctx context.Context, event *StreamEvent) error
}

// StreamEventConsumer defines the interface for consuming stream lifecycle events.
type StreamEventConsumer interface {
	Start(ctx context.Context) error
	Close() error
}

// NoopProducer drops every event. Used when kafka is disabled.
type NoopProducer struct{}

func (NoopProducer) PublishInteraction(context.Context, *domain.InteractionEvent) error { return nil }
func (NoopProducer) Close() error                                                      { return nil }
