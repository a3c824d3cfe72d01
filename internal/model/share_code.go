package model

import (
	"time"

	"github.com/iliyamo/gsr-share/internal/access"
)

// ShareCode is a public reference to a booking.  Anyone holding the code
// can view the booking while it is valid; only the booking's effective
// owner can delete the code.
//
// Fields:
//  ID        – primary key identifier.
//  Code      – opaque public code used in share links.
//  BookingID – referenced booking.
//  Booking   – the loaded booking with its reservation.
//  ExpiresAt – optional hard expiry independent of the booking window.
//  CreatedAt – creation timestamp.
type ShareCode struct {
	ID        uint64     // share_codes.id
	Code      string     // share_codes.code
	BookingID uint64     // share_codes.booking_id
	Booking   *Booking   // joined bookings row
	ExpiresAt *time.Time // share_codes.expires_at (nullable)
	CreatedAt time.Time  // share_codes.created_at
}

// IsValid reports whether the share code can be read at now.
func (s *ShareCode) IsValid(now time.Time) bool {
	if s == nil || !s.Booking.IsValid(now) {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// AccessView snapshots the share code for an access decision at now.
func (s *ShareCode) AccessView(now time.Time) *access.ShareCode {
	if s == nil {
		return nil
	}
	return &access.ShareCode{
		Booking: s.Booking.AccessView(),
		Valid:   s.IsValid(now),
	}
}
