package rabbit

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Config struct {
	URL            string
	Exchange       string
	ExchangeKind   string
	ConnectionName string
	ContentType    string
	Heartbeat      time.Duration
}

// Publisher publishes persistent messages to one durable exchange.
// Publishing is serialized because an amqp channel is not safe for concurrent use.
type Publisher struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex
}

func NewPublisher(cfg Config) (*Publisher, error) {
	const op = "rabbit.NewPublisher"

	if cfg.ExchangeKind == "" {
		cfg.ExchangeKind = amqp.ExchangeTopic
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/json"
	}

	amqpCfg := amqp.Config{
		Heartbeat:  cfg.Heartbeat,
		Properties: amqp.NewConnectionProperties(),
	}
	if cfg.ConnectionName != "" {
		amqpCfg.Properties.SetClientConnectionName(cfg.ConnectionName)
	}

	conn, err := amqp.DialConfig(cfg.URL, amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: open channel: %w", op, err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		cfg.ExchangeKind,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: declare exchange %q: %w", op, cfg.Exchange, err)
	}

	return &Publisher{cfg: cfg, conn: conn, ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, body []byte, routingKey string, headers map[string]any) error {
	const op = "rabbit.Publisher.Publish"

	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.PublishWithContext(ctx,
		p.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  p.cfg.ContentType,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Headers:      amqp.Table(headers),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
