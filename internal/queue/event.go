// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into audit log lines and emails.
package queue

import (
	"fmt"
	"time"
)

// ShareCodeQueue is the durable queue carrying ShareCodeEvent messages.
const ShareCodeQueue = "sharecode.events"

// Share code event types.
const (
	ShareCodeCreated = "created"
	ShareCodeDeleted = "deleted"
)

// ShareCodeEvent is published after a share code is created or deleted.  It
// carries enough about the booking and its owner for the notifier to log
// and email without querying the primary database.
type ShareCodeEvent struct {
	Type       string    `json:"type"`
	Code       string    `json:"code"`
	BookingID  uint64    `json:"booking_id"`
	OwnerID    uint64    `json:"owner_id"`
	OwnerEmail string    `json:"owner_email,omitempty"`
	ActorID    uint64    `json:"actor_id"`
	RoomName   string    `json:"room_name"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LogLine renders the event as one line of the audit log.
func (e ShareCodeEvent) LogLine() string {
	return fmt.Sprintf("[%s] Share code %s | code=%s | booking_id=%d | owner_id=%d | actor_id=%d | room=%q | window=%s..%s\n",
		e.OccurredAt.UTC().Format(time.RFC3339), e.Type, e.Code, e.BookingID, e.OwnerID, e.ActorID, e.RoomName,
		e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339))
}

// Validate rejects events the consumer cannot act on.
func (e ShareCodeEvent) Validate() error {
	switch e.Type {
	case ShareCodeCreated, ShareCodeDeleted:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.Code == "" || e.BookingID == 0 {
		return fmt.Errorf("event without code or booking")
	}
	return nil
}
