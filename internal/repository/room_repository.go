package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/gsr-share/internal/model"
)

// RoomRepo provides read access to the rooms table for the public browse
// endpoints and for booking creation.
type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomColumns = "id, location, name, capacity, is_active, created_at, updated_at"

func scanRoom(s rowScanner) (*model.Room, error) {
	var (
		rm  model.Room
		cap sql.NullInt64
	)
	if err := s.Scan(&rm.ID, &rm.Location, &rm.Name, &cap, &rm.IsActive, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	if cap.Valid {
		c := uint32(cap.Int64)
		rm.Capacity = &c
	}
	return &rm, nil
}

// ListActive returns active rooms, optionally filtered by location,
// ordered by location and name.
func (r *RoomRepo) ListActive(ctx context.Context, location string) ([]*model.Room, error) {
	q := "SELECT " + roomColumns + " FROM rooms WHERE is_active = 1"
	var args []any
	if location != "" {
		q += " AND location = ?"
		args = append(args, location)
	}
	q += " ORDER BY location, name"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rooms := make([]*model.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

// GetByID returns the room with the given id, active or not.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rm, err
}
