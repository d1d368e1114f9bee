package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peersenco/storefront-backend/pkg/config"
	"github.com/peersenco/storefront-backend/pkg/outbox"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink publishes outbox messages to a Kafka topic, keyed by aggregate id.
type Sink struct {
	writer  messageWriter
	brokers []string
	topic   string
	now     func() time.Time
}

var _ outbox.Sink = (*Sink)(nil)

func NewSink(cfg config.KafkaConfig) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.OrdersTopic == "" {
		return nil, errors.New("kafka orders topic is required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrdersTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Sink{writer: writer, brokers: cfg.Brokers, topic: cfg.OrdersTopic, now: time.Now}, nil
}

func (s *Sink) Name() string { return "kafka" }

func (s *Sink) Publish(ctx context.Context, msg outbox.Message) error {
	headers := make([]kafka.Header, 0, len(msg.Attributes))
	for k, v := range msg.Attributes {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: headers,
		Time:    s.now(),
	})
}

// Ping dials the first reachable broker and reads the topic's partitions.
func (s *Sink) Ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range s.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.ReadPartitions(s.topic)
		_ = conn.Close()
		if err != nil {
			return fmt.Errorf("reading partitions of %q: %w", s.topic, err)
		}
		return nil
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

func (s *Sink) Close() error {
	return s.writer.Close()
}
