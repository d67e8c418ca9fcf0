package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"certalert/internal/entity"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const ProviderKafka = "kafka"

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTransport emits each notification as an event keyed by reminder id, for
// downstream delivery services.
type KafkaTransport struct {
	writer messageWriter
	log    *zap.Logger
}

func NewKafkaTransport(cfg KafkaConfig, log *zap.Logger) *KafkaTransport {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	log.Info("kafka transport initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)

	return &KafkaTransport{writer: writer, log: log}
}

func (s *KafkaTransport) Name() string { return ProviderKafka }

func (s *KafkaTransport) Send(ctx context.Context, msg entity.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: kafka: marshal: %w", entity.ErrTransport, err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ReminderID.String()),
		Value: value,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "tier", Value: []byte(msg.Tier.String())},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: kafka: %w", entity.ErrTransport, err)
	}

	s.log.Debug("notification event written", zap.String("reminder_id", msg.ReminderID.String()))
	return nil
}

func (s *KafkaTransport) Close() error {
	return s.writer.Close()
}
