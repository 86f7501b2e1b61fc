// Package service holds outbound integrations used by the HTTP layer.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/queue"
)

// ActivityPublisher announces committed booking operations.
type ActivityPublisher interface {
	Publish(ctx context.Context, a queue.Activity) error
}

// AMQPPublisher publishes activities to a durable RabbitMQ queue. It
// dials per message; publishing happens after the transaction commits
// and a broker outage never fails the request that triggered it.
type AMQPPublisher struct {
	url   string
	queue string
	log   *zap.Logger
}

// NewAMQPPublisher returns a publisher for queue on the broker at url.
func NewAMQPPublisher(url, queue string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, log: log.Named("activity-publisher")}
}

// Publish sends a as a persistent JSON message routed to the queue.
func (p *AMQPPublisher) Publish(ctx context.Context, a queue.Activity) error {
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    a.OccurredAt,
		Type:         string(a.Kind),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", a.Kind, err)
	}
	p.log.Debug("activity published", zap.String("kind", string(a.Kind)), zap.Int64("event_id", a.EventID))
	return nil
}

// NopPublisher drops every activity. It is used when no broker is
// configured.
type NopPublisher struct{}

// Publish implements ActivityPublisher.
func (NopPublisher) Publish(context.Context, queue.Activity) error { return nil }
