package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/gsr-share/internal/mailer"
)

// Consumer reads ShareCodeEvent messages, appends each one to
// <LogDir>/sharecode.log and emails the booking owner a receipt.
type Consumer struct {
	URL    string
	LogDir string
	Mailer mailer.Sender
	Log    *slog.Logger

	mu sync.Mutex // serialises log file appends
}

func NewConsumer(url, logDir string, m mailer.Sender, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	if logDir == "" {
		logDir = "logs"
	}
	return &Consumer{URL: url, LogDir: logDir, Mailer: m, Log: log}
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-dialled with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("sharecode-consumer: dial failed", "error", err, "retry_in", backoff.String())
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
		c.Log.Warn("sharecode-consumer: consume loop ended; reconnecting", "error", err)
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
		c.Log.Warn("sharecode-consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(ShareCodeQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ShareCodeQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleMessage(ctx, d.Body); err != nil {
				c.Log.Error("sharecode-consumer: handle message failed", "error", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one event, records it and notifies the owner.
// Email failures are logged and do not fail the message.
func (c *Consumer) HandleMessage(ctx context.Context, body []byte) error {
	var ev ShareCodeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	if err := c.appendLog(ev); err != nil {
		return err
	}
	if msg, ok := Notification(ev); ok && c.Mailer != nil {
		if _, err := c.Mailer.Send(ctx, msg); err != nil {
			c.Log.Warn("sharecode-consumer: email failed", "error", err, "code", ev.Code, "owner_id", ev.OwnerID)
		}
	}
	return nil
}

func (c *Consumer) appendLog(ev ShareCodeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, "sharecode.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(ev.LogLine()); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// Notification builds the owner receipt for ev; ok is false when the
// owner's address is unknown.
func Notification(ev ShareCodeEvent) (mailer.Message, bool) {
	if ev.OwnerEmail == "" {
		return mailer.Message{}, false
	}
	window := fmt.Sprintf("%s to %s UTC", ev.Start.UTC().Format("Mon 2 Jan 15:04"), ev.End.UTC().Format("15:04"))
	var subject, text string
	switch ev.Type {
	case ShareCodeCreated:
		subject = "A share code was created for your room booking"
		text = fmt.Sprintf("Share code %s now gives access to your booking of %s, %s. Anyone with the code can view the booking until it ends.", ev.Code, ev.RoomName, window)
	case ShareCodeDeleted:
		subject = "A share code for your room booking was removed"
		text = fmt.Sprintf("Share code %s for your booking of %s, %s, no longer works.", ev.Code, ev.RoomName, window)
	default:
		return mailer.Message{}, false
	}
	return mailer.Message{ToEmail: ev.OwnerEmail, Subject: subject, Text: text}, true
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
