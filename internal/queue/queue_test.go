package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/gsr-share/internal/mailer"
)

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, m mailer.Message) (string, error) {
	f.sent = append(f.sent, m)
	return "id", f.err
}

func sampleEvent() ShareCodeEvent {
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	return ShareCodeEvent{
		Type:       ShareCodeDeleted,
		Code:       "0123456789abcdef0123456789abcdef",
		BookingID:  11,
		OwnerID:    1,
		OwnerEmail: "alice@example.edu",
		ActorID:    1,
		RoomName:   "Huntsman 250",
		Start:      start,
		End:        start.Add(time.Hour),
		OccurredAt: start.Add(-time.Hour),
	}
}

func TestLogLine(t *testing.T) {
	line := sampleEvent().LogLine()
	for _, want := range []string{
		"[2026-03-02T13:00:00Z] Share code deleted",
		"code=0123456789abcdef0123456789abcdef",
		"booking_id=11",
		`room="Huntsman 250"`,
		"window=2026-03-02T14:00:00Z..2026-03-02T15:00:00Z",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("line is not newline terminated")
	}
}

func TestValidate(t *testing.T) {
	ev := sampleEvent()
	if err := ev.Validate(); err != nil {
		t.Fatalf("valid event: %v", err)
	}
	ev.Type = "updated"
	if ev.Validate() == nil {
		t.Error("unknown type accepted")
	}
	ev = sampleEvent()
	ev.Code = ""
	if ev.Validate() == nil {
		t.Error("event without code accepted")
	}
}

func TestNotification(t *testing.T) {
	msg, ok := Notification(sampleEvent())
	if !ok || msg.ToEmail != "alice@example.edu" || !strings.Contains(msg.Text, "no longer works") {
		t.Errorf("deleted notification = %+v, %v", msg, ok)
	}
	ev := sampleEvent()
	ev.Type = ShareCodeCreated
	if msg, ok := Notification(ev); !ok || !strings.Contains(msg.Text, ev.Code) {
		t.Errorf("created notification = %+v, %v", msg, ok)
	}
	ev.OwnerEmail = ""
	if _, ok := Notification(ev); ok {
		t.Error("notification built without an address")
	}
}

func TestHandleMessage(t *testing.T) {
	dir := t.TempDir()
	sender := &fakeSender{err: errors.New("provider down")}
	var logs bytes.Buffer
	c := NewConsumer("amqp://unused", dir, sender, slog.New(slog.NewTextHandler(&logs, nil)))

	body, _ := json.Marshal(sampleEvent())
	if err := c.HandleMessage(context.Background(), body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if err := c.HandleMessage(context.Background(), body); err != nil {
		t.Fatalf("second HandleMessage: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sharecode.log"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("log has %d lines, want 2", n)
	}
	if len(sender.sent) != 2 {
		t.Errorf("sent %d emails, want 2", len(sender.sent))
	}
	if !strings.Contains(logs.String(), "email failed") {
		t.Error("email failure was not logged")
	}
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	c := NewConsumer("amqp://unused", t.TempDir(), nil, nil)
	if err := c.HandleMessage(context.Background(), []byte("{")); err == nil {
		t.Error("malformed JSON accepted")
	}
	if err := c.HandleMessage(context.Background(), []byte(`{"type":"moved","code":"x","booking_id":1}`)); err == nil {
		t.Error("unknown event type accepted")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsumer("amqp://127.0.0.1:1/", t.TempDir(), nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}
