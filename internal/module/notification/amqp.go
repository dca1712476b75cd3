package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RoutingKey is the routing key of published email messages.
const RoutingKey = "notification.email"

// Envelope is the message body consumed by the downstream mail worker.
type Envelope struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	QueuedAt time.Time `json:"queued_at"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSender publishes messages to a RabbitMQ topic exchange.
type AMQPSender struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	logger   *zap.Logger
}

// NewAMQPSender dials url and declares a durable topic exchange.
func NewAMQPSender(url, exchange string, logger *zap.Logger) (*AMQPSender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPSender{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

// Name implements Sender.
func (s *AMQPSender) Name() string { return "amqp" }

// Send publishes the message as a persistent JSON envelope.
func (s *AMQPSender) Send(ctx context.Context, to, subject, body string) error {
	b, err := json.Marshal(Envelope{To: to, Subject: subject, HTML: body, QueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	err = s.ch.PublishWithContext(ctx, s.exchange, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         b,
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	s.logger.Debug("notification queued", zap.String("to", to), zap.String("exchange", s.exchange))
	return nil
}

// Close closes the channel and connection.
func (s *AMQPSender) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
