// Package service publishes donation events to RabbitMQ.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/receipt-booklet-ledger/internal/queue"
)

// Publisher sends DonationEvent messages to the donation queue.  Each call
// dials the broker, so a broker outage only affects the events raised while
// it lasts.
type Publisher struct {
	url string
	log *zap.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log.Named("publisher")}
}

// Publish assigns an ID and timestamp when missing and sends ev as a
// persistent JSON message.  Errors are logged and returned so callers may
// ignore them.
func (p *Publisher) Publish(ctx context.Context, ev queue.DonationEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := p.publish(ctx, ev); err != nil {
		p.log.Warn("publish event failed", zap.String("type", ev.Type), zap.String("id", ev.ID), zap.Error(err))
		return err
	}
	p.log.Debug("event published", zap.String("type", ev.Type), zap.String("id", ev.ID))
	return nil
}

func (p *Publisher) publish(ctx context.Context, ev queue.DonationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.DonationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	return ch.PublishWithContext(ctx,
		"",                  // default exchange
		queue.DonationQueue, // routing key = queue name
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Type:         ev.Type,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
