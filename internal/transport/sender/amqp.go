package sender

import (
	"context"
	"encoding/json"
	"fmt"

	"certalert/internal/entity"

	"go.uber.org/zap"
)

const ProviderAMQP = "amqp"

type publisher interface {
	Publish(ctx context.Context, body []byte, routingKey string, headers map[string]any) error
}

// AMQPTransport hands the rendered message to a mail relay consuming from RabbitMQ.
// Routing keys are "<prefix>.<tier>".
type AMQPTransport struct {
	pub    publisher
	prefix string
	log    *zap.Logger
}

func NewAMQPTransport(pub publisher, routingPrefix string, log *zap.Logger) *AMQPTransport {
	if routingPrefix == "" {
		routingPrefix = "certalert.notification"
	}
	return &AMQPTransport{pub: pub, prefix: routingPrefix, log: log}
}

func (s *AMQPTransport) Name() string { return ProviderAMQP }

func (s *AMQPTransport) Send(ctx context.Context, msg entity.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: amqp: marshal: %w", entity.ErrTransport, err)
	}

	routingKey := s.prefix + "." + msg.Tier.String()
	headers := map[string]any{
		"reminder_id": msg.ReminderID.String(),
		"tier":        msg.Tier.String(),
	}

	if err := s.pub.Publish(ctx, body, routingKey, headers); err != nil {
		return fmt.Errorf("%w: amqp: %w", entity.ErrTransport, err)
	}

	s.log.Debug("notification published",
		zap.String("routing_key", routingKey),
		zap.String("reminder_id", msg.ReminderID.String()),
	)
	return nil
}
