package model

import "time"

// Reservation groups several bookings that were requested together.  The
// creator owns every booking in the group, regardless of the bookings'
// own user column.
//
// Fields:
//  ID        – primary key identifier.
//  CreatorID – user who made the reservation.
//  CreatedAt – creation timestamp.
type Reservation struct {
	ID        uint64    // reservations.id
	CreatorID uint64    // reservations.creator_id
	CreatedAt time.Time // reservations.created_at
}
