package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer records every booking activity message in the audit log.
type Consumer struct {
	url   string
	queue string
	log   *zap.Logger
}

// NewConsumer returns a Consumer reading queue on the broker at url.
func NewConsumer(url, queue string, log *zap.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, log: log.Named("activity-consumer")}
}

// Run connects to the broker and consumes until ctx is cancelled. Lost
// connections are re-established with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handleMessage(d.Body); err != nil {
			c.log.Error("handle message failed", zap.Error(err))
			// Reject without requeue so a poison message cannot spin.
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handleMessage(body []byte) error {
	var a Activity
	if err := json.Unmarshal(body, &a); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if a.Kind == "" {
		return errors.New("activity without kind")
	}

	fields := []zap.Field{
		zap.String("kind", string(a.Kind)),
		zap.Int64("event_id", a.EventID),
		zap.Int64("actor_id", a.ActorID),
		zap.Time("occurred_at", a.OccurredAt),
	}
	switch a.Kind {
	case EventScheduled, EventRescheduled:
		fields = append(fields, zap.Int64("venue_id", a.VenueID), zap.Int64s("timeslot_ids", a.TimeslotIDs))
	case ReservationCreated, ReservationCancelled:
		fields = append(fields,
			zap.Int64("reservation_id", a.ReservationID),
			zap.Int64("user_id", a.UserID),
			zap.Int64("seats", a.Seats),
		)
	}
	c.log.Info("booking activity", fields...)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
