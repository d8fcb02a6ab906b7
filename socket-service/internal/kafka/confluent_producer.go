package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

// Header keys set on every interaction record.
const (
	HeaderType      = "type"
	HeaderUser      = "user_id"
	HeaderTimestamp = "ts"
)

// ProducerConfig configures the interaction event sink.
type ProducerConfig struct {
	Brokers    string
	Topic      string
	Partitions int
	// FlushTimeout bounds how long Close waits for queued records.
	FlushTimeout time.Duration
	// OnFailure is called with the event type of every record the broker rejected.
	OnFailure func(eventType string)
}

// ConfluentProducer publishes persisted interactions for downstream consumers
// such as feeds and notifications. Records are keyed by room, so one room's
// records stay ordered on a single partition. Delivery reports are drained in
// the background.
type ConfluentProducer struct {
	producer     *kafka.Producer
	topic        string
	flushTimeout time.Duration
	onFailure    func(eventType string)
	doneCh       chan struct{}
}

func NewConfluentProducer(cfg ProducerConfig) (*ConfluentProducer, error) {
	l := log.L()
	if err := ensureTopic(cfg.Brokers, cfg.Topic, cfg.Partitions); err != nil {
		l.Warn().Err(err).Str("topic", cfg.Topic).Msg("failed to ensure topic (may already exist)")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	flush := cfg.FlushTimeout
	if flush <= 0 {
		flush = 5 * time.Second
	}
	cp := &ConfluentProducer{
		producer:     p,
		topic:        cfg.Topic,
		flushTimeout: flush,
		onFailure:    cfg.OnFailure,
		doneCh:       make(chan struct{}),
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	if partitions <= 0 {
		partitions = 1
	}

	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if code := result.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (cp *ConfluentProducer) deliveryReportHandler() {
	defer close(cp.doneCh)

	l := log.L()
	for e := range cp.producer.Events() {
		msg, ok := e.(*kafka.Message)
		if !ok || msg.TopicPartition.Error == nil {
			continue
		}
		eventType := headerValue(msg.Headers, HeaderType)
		l.Error().Err(msg.TopicPartition.Error).
			Str(log.FieldRoom, string(msg.Key)).
			Str(log.FieldEvent, eventType).
			Msg("interaction delivery failed")
		if cp.onFailure != nil {
			cp.onFailure(eventType)
		}
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// interactionMessage encodes ev as a record for topic.
func interactionMessage(topic *string, ev *domain.InteractionEvent) (*kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal interaction event: %w", err)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: topic, Partition: kafka.PartitionAny},
		Key:            []byte(ev.Room),
		Value:          value,
		Timestamp:      ev.Timestamp,
		Headers: []kafka.Header{
			{Key: HeaderType, Value: []byte(ev.Type)},
			{Key: HeaderUser, Value: []byte(ev.UserID)},
			{Key: HeaderTimestamp, Value: []byte(strconv.FormatInt(ev.Timestamp.UnixMilli(), 10))},
		},
	}, nil
}

// PublishInteraction only enqueues; the outcome arrives as a delivery report.
func (cp *ConfluentProducer) PublishInteraction(_ context.Context, ev *domain.InteractionEvent) error {
	msg, err := interactionMessage(&cp.topic, ev)
	if err != nil {
		return err
	}
	if err := cp.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce interaction event: %w", err)
	}
	return nil
}

// Close flushes queued records and waits for the last delivery reports.
func (cp *ConfluentProducer) Close() error {
	if remaining := cp.producer.Flush(int(cp.flushTimeout.Milliseconds())); remaining > 0 {
		l := log.L()
		l.Warn().Int("remaining", remaining).Msg("interaction records left unflushed")
	}
	cp.producer.Close()
	<-cp.doneCh
	return nil
}
