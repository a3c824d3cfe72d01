package model

import "time"

// Room represents a bookable group study room.  Rooms are grouped by
// location (a library or building) and can be deactivated without being
// deleted so that past bookings keep their reference.
//
// Fields:
//  ID        – primary key identifier.
//  Location  – building or library the room belongs to.
//  Name      – room name, unique per location.
//  Capacity  – number of seats (nil if unknown).
//  IsActive  – whether the room can be booked.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Room struct {
	ID        uint64    `json:"id"`                 // rooms.id
	Location  string    `json:"location"`           // rooms.location
	Name      string    `json:"name"`               // rooms.name
	Capacity  *uint32   `json:"capacity,omitempty"` // rooms.capacity (nullable)
	IsActive  bool      `json:"is_active"`          // rooms.is_active
	CreatedAt time.Time `json:"created_at"`         // rooms.created_at
	UpdatedAt time.Time `json:"updated_at"`         // rooms.updated_at
}
