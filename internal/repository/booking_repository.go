package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/gsr-share/internal/model"
)

// BookingRepo provides data access to bookings and the reservations that
// group them.  Reads always join the owning reservation so that callers
// can resolve the effective owner without a second query.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const bookingSelect = `SELECT b.id, b.user_id, b.reservation_id, r.creator_id, r.created_at,
       b.room_id, rm.name, b.start_at, b.end_at, b.is_cancelled, b.created_at
FROM bookings b
JOIN rooms rm ON rm.id = b.room_id
LEFT JOIN reservations r ON r.id = b.reservation_id`

// scanBookingInto reads the bookingSelect columns; extra destinations are
// scanned first so share-code queries can prepend their own columns.
func scanBookingInto(s rowScanner, b *model.Booking, extra ...any) error {
	var (
		userID, reservationID, creatorID sql.NullInt64
		reservationCreated               sql.NullTime
	)
	dest := append(extra,
		&b.ID, &userID, &reservationID, &creatorID, &reservationCreated,
		&b.RoomID, &b.RoomName, &b.StartAt, &b.EndAt, &b.IsCancelled, &b.CreatedAt,
	)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	if userID.Valid {
		id := uint64(userID.Int64)
		b.UserID = &id
	}
	if reservationID.Valid {
		id := uint64(reservationID.Int64)
		b.ReservationID = &id
		b.Reservation = &model.Reservation{ID: id}
		if creatorID.Valid {
			b.Reservation.CreatorID = uint64(creatorID.Int64)
		}
		if reservationCreated.Valid {
			b.Reservation.CreatedAt = reservationCreated.Time
		}
	}
	b.StartAt = b.StartAt.UTC()
	b.EndAt = b.EndAt.UTC()
	return nil
}

// GetByID returns the booking with its reservation, or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := scanBookingInto(r.db.QueryRowContext(ctx, bookingSelect+" WHERE b.id = ?", id), &b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListOwnedBy returns the bookings the user effectively owns: direct
// bookings without a reservation, and every booking of a reservation the
// user created.  Newest window first.
func (r *BookingRepo) ListOwnedBy(ctx context.Context, userID uint64) ([]*model.Booking, error) {
	const where = ` WHERE (b.reservation_id IS NULL AND b.user_id = ?) OR r.creator_id = ?
ORDER BY b.start_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, bookingSelect+where, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := scanBookingInto(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// CreateTx inserts a booking inside tx.  The room must be active and the
// window must not overlap another non-cancelled booking of the same room;
// the overlapping rows are locked so two concurrent requests cannot both
// pass the check.  On success b.ID, b.RoomName and b.CreatedAt are set.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	var (
		active bool
		name   string
	)
	err := tx.QueryRowContext(ctx, `SELECT is_active, name FROM rooms WHERE id = ? FOR UPDATE`, b.RoomID).Scan(&active, &name)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	var overlapping int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE room_id = ? AND is_cancelled = 0 AND start_at < ? AND end_at > ?
		 FOR UPDATE`,
		b.RoomID, b.EndAt.UTC(), b.StartAt.UTC()).Scan(&overlapping)
	if err != nil {
		return err
	}
	if overlapping > 0 {
		return ErrConflict
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, reservation_id, room_id, start_at, end_at) VALUES (?, ?, ?, ?, ?)`,
		nullableID(b.UserID), nullableID(b.ReservationID), b.RoomID, b.StartAt.UTC(), b.EndAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.RoomName = name
	b.CreatedAt = time.Now().UTC()
	return nil
}

// Create inserts a single direct booking in its own transaction.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	return r.withTx(ctx, func(tx *sql.Tx) error { return r.CreateTx(ctx, tx, b) })
}

// CreateReservation inserts a reservation owned by creatorID and all of
// its bookings atomically.  The bookings carry no direct user; ownership
// flows through the reservation.
func (r *BookingRepo) CreateReservation(ctx context.Context, creatorID uint64, bookings []*model.Booking) (*model.Reservation, error) {
	if len(bookings) == 0 {
		return nil, fmt.Errorf("reservation without bookings: %w", ErrConflict)
	}
	res := &model.Reservation{CreatorID: creatorID, CreatedAt: time.Now().UTC()}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		out, err := tx.ExecContext(ctx, `INSERT INTO reservations (creator_id) VALUES (?)`, creatorID)
		if err != nil {
			return err
		}
		id, err := out.LastInsertId()
		if err != nil {
			return err
		}
		res.ID = uint64(id)
		for _, b := range bookings {
			b.UserID = nil
			b.ReservationID = &res.ID
			b.Reservation = res
			if err := r.CreateTx(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelIf locks the booking row, asks allow whether the caller may cancel
// it and flips is_cancelled when permitted.  It returns ErrNotFound,
// ErrForbidden when allow denies, or ErrConflict when already cancelled.
func (r *BookingRepo) CancelIf(ctx context.Context, id uint64, allow func(*model.Booking) bool) (*model.Booking, error) {
	var b model.Booking
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		err := scanBookingInto(tx.QueryRowContext(ctx, bookingSelect+" WHERE b.id = ? FOR UPDATE", id), &b)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !allow(&b) {
			return ErrForbidden
		}
		if b.IsCancelled {
			return ErrConflict
		}
		if _, err := tx.ExecContext(ctx, `UPDATE bookings SET is_cancelled = 1 WHERE id = ?`, id); err != nil {
			return err
		}
		b.IsCancelled = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (r *BookingRepo) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return runInTx(ctx, r.db, fn)
}

func runInTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}
