package model

import (
	"time"

	"github.com/iliyamo/gsr-share/internal/access"
)

// Booking represents one room booked for a time window.  A booking is
// owned either directly by a user or by the creator of the reservation
// it belongs to.  This struct corresponds to a row in the `bookings`
// table, with Reservation populated by the repository when the row has
// a reservation_id.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – direct owner (nil when booked through a reservation).
//  ReservationID – owning reservation (nil for direct bookings).
//  Reservation   – the loaded reservation, when ReservationID is set.
//  RoomID        – booked room.
//  RoomName      – denormalised room name for listings and notifications.
//  StartAt       – start of the booked window (UTC).
//  EndAt         – end of the booked window (UTC).
//  IsCancelled   – whether the booking was cancelled.
//  CreatedAt     – creation timestamp.
type Booking struct {
	ID            uint64       // bookings.id
	UserID        *uint64      // bookings.user_id (nullable)
	ReservationID *uint64      // bookings.reservation_id (nullable)
	Reservation   *Reservation // joined reservations row
	RoomID        uint64       // bookings.room_id
	RoomName      string       // rooms.name
	StartAt       time.Time    // bookings.start_at
	EndAt         time.Time    // bookings.end_at
	IsCancelled   bool         // bookings.is_cancelled
	CreatedAt     time.Time    // bookings.created_at
}

// IsValid reports whether the booking still stands at now: it has not been
// cancelled and its window has not ended.
func (b *Booking) IsValid(now time.Time) bool {
	if b == nil || b.IsCancelled {
		return false
	}
	return now.Before(b.EndAt)
}

// AccessView returns the ownership fields the access package evaluates.
func (b *Booking) AccessView() *access.Booking {
	if b == nil {
		return nil
	}
	v := &access.Booking{}
	if b.UserID != nil {
		v.UserID = *b.UserID
	}
	if b.Reservation != nil {
		v.Reservation = &access.Reservation{CreatorID: b.Reservation.CreatorID}
	}
	return v
}

// OwnerID returns the effective owner of the booking, or zero when none
// can be resolved.
func (b *Booking) OwnerID() uint64 {
	src, ok := access.Owner(b.AccessView())
	if !ok {
		return 0
	}
	return src.OwnerID()
}
