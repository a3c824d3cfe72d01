// Package service holds outbound integrations used by the HTTP handlers.
// Errors are logged and returned so callers can ignore failures without
// interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/gsr-share/internal/queue"
)

// EventPublisher publishes share code events.
type EventPublisher interface {
	PublishShareCode(ctx context.Context, ev q.ShareCodeEvent) error
}

// AMQPPublisher dials the broker for every publish.  Share code changes are
// rare enough that a pooled connection is not worth its reconnect logic.
type AMQPPublisher struct {
	URL string
	Log *slog.Logger
}

func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{URL: url, Log: log}
}

// PublishShareCode sends ev to the durable sharecode.events queue as a
// persistent JSON message.
func (p *AMQPPublisher) PublishShareCode(ctx context.Context, ev q.ShareCodeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.Log.Error("rabbitmq: marshal event failed", "error", err)
		return err
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warn("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		q.ShareCodeQueue, // name
		true,             // durable
		false,            // autoDelete
		false,            // exclusive
		false,            // noWait
		nil,              // args
	); err != nil {
		p.Log.Warn("rabbitmq: queue declare failed", "error", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.ShareCodeQueue, false, false, pub); err != nil {
		p.Log.Warn("rabbitmq: publish failed", "error", err)
		return err
	}
	return nil
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishShareCode(context.Context, q.ShareCodeEvent) error { return nil }
