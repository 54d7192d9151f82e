package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/MrEthical07/shopAuth"
	"go.uber.org/zap"
)

// Config selects brokers and the destination topic.
type Config struct {
	Brokers []string
	Topic   string
	// ClientID defaults to "shopauth-audit".
	ClientID string
}

// Sink is a shopAuth.AuditSink backed by a synchronous producer. It runs on
// the audit dispatcher goroutine, so a slow broker backs up the dispatcher
// buffer rather than request paths.
type Sink struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewSink dials the brokers and returns a ready sink.
func NewSink(cfg Config, logger *zap.Logger) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka audit sink: at least one broker required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka audit sink: topic required")
	}

	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	if sc.ClientID == "" {
		sc.ClientID = "shopauth-audit"
	}
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Metadata.Retry.Max = 3
	sc.Metadata.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewSinkWithProducer(producer, cfg.Topic, logger), nil
}

// NewSinkWithProducer wraps an existing producer.
func NewSinkWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{producer: producer, topic: topic, logger: logger.Named("audit.kafka")}
}

// Emit publishes event. Failures are logged and the event is dropped.
func (s *Sink) Emit(_ context.Context, event shopAuth.AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode audit event", zap.String("event_type", event.EventType), zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType)},
		},
		Timestamp: event.Timestamp,
	}
	if key := messageKey(event); key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.logger.Warn("publish audit event",
			zap.String("topic", s.topic),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}

// Close flushes and closes the producer.
func (s *Sink) Close() error {
	if err := s.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}

// messageKey keeps events for one subject on one partition.
func messageKey(event shopAuth.AuditEvent) string {
	if event.Subject != "" {
		return event.Subject
	}
	return event.SessionID
}
