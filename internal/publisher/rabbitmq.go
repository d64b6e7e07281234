package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"app_radar/internal/domain"
)

// DefaultExchange is the direct exchange digests are routed through.
const DefaultExchange = "app_radar"

// RabbitMQ publishes each digest as one persistent JSON message. Consumers
// bind their own queues; the configured queue is declared so a digest is
// never dropped before the first consumer shows up.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
	// MessageTTL expires unread digests; zero keeps them until consumed.
	MessageTTL time.Duration
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareDigestTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger = logger.With("publisher", "rabbitmq")
	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
		"message_ttl", cfg.MessageTTL,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

// declareDigestTopology declares the durable direct exchange and, when a
// queue name is set, a durable queue bound on the routing key.
func declareDigestTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	if cfg.QueueName == "" {
		return nil
	}

	var args amqp.Table
	if cfg.MessageTTL > 0 {
		args = amqp.Table{"x-message-ttl": cfg.MessageTTL.Milliseconds()}
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, args)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.QueueName, err)
	}
	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	return nil
}

// DigestMessage is the AMQP payload for one run.
type DigestMessage struct {
	Type      string              `json:"type"`
	Report    domain.DigestReport `json:"report"`
	Timestamp time.Time           `json:"timestamp"`
}

const digestMessageType = "app_radar.digest"

func (r *RabbitMQ) Publish(ctx context.Context, report *domain.DigestReport) error {
	msg := DigestMessage{
		Type:      digestMessageType,
		Report:    *report,
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         digestMessageType,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published digest",
		"ranked", len(report.Ranked),
		"succeeded", report.Succeeded,
		"total", report.Total,
	)

	return nil
}

func (r *RabbitMQ) Name() string {
	return "rabbitmq"
}

func (r *RabbitMQ) Close() error {
	var errs []error
	if r.channel != nil && !r.channel.IsClosed() {
		if err := r.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
