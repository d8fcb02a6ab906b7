package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
)

// ConfluentConsumer implements StreamEventConsumer using confluent-kafka-go.
type ConfluentConsumer struct {
	consumer *kafka.Consumer
	topic    string
	handler  StreamEventHandler
	doneCh   chan struct{}
	started  bool
}

// NewConfluentConsumer creates a new Kafka consumer for stream lifecycle events.
func NewConfluentConsumer(brokers, topic, groupID string, handler StreamEventHandler) (*ConfluentConsumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"group.id":           groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &ConfluentConsumer{
		consumer: c,
		topic:    topic,
		handler:  handler,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start subscribes and begins consuming in the background until ctx is cancelled.
func (cc *ConfluentConsumer) Start(ctx context.Context) error {
	if err := cc.consumer.Subscribe(cc.topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", cc.topic, err)
	}

	l := log.L()
	l.Info().Str("topic", cc.topic).Msg("kafka consumer started")

	cc.started = true
	go cc.consumeLoop(ctx)

	return nil
}

func (cc *ConfluentConsumer) consumeLoop(ctx context.Context) {
	defer close(cc.doneCh)
	l := log.L()

	for {
		select {
		case <-ctx.Done():
			l.Info().Str("topic", cc.topic).Msg("kafka consumer shutting down")
			return
		default:
			msg, err := cc.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				l.Error().Err(err).Msg("kafka consumer error")
				continue
			}

			cc.processMessage(ctx, msg.Value)
		}
	}
}

func (cc *ConfluentConsumer) processMessage(ctx context.Context, value []byte) {
	l := log.L()

	event, err := DecodeStreamEvent(value)
	if err != nil {
		l.Warn().Err(err).Msg("dropping stream event")
		return
	}

	l.Debug().
		Str("type", event.Type).
		Str(log.FieldStreamID, event.StreamID).
		Str("broadcaster_id", event.BroadcasterID).
		Msg("received stream event")

	if err := cc.handler.HandleStreamEvent(ctx, event); err != nil {
		l.Error().Err(err).Str(log.FieldStreamID, event.StreamID).Msg("failed to handle stream event")
	}
}

// Close stops the consumer and releases resources. The context passed to
// Start must be cancelled first.
func (cc *ConfluentConsumer) Close() error {
	if cc.started {
		<-cc.doneCh
	}
	if err := cc.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	return nil
}
