package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/gsr-share/internal/model"
)

// ShareCodeRepo stores share codes.  Every read loads the referenced
// booking and its reservation so access decisions can be made from a
// single row.
type ShareCodeRepo struct {
	db *sql.DB
}

func NewShareCodeRepo(db *sql.DB) *ShareCodeRepo { return &ShareCodeRepo{db: db} }

const shareCodeSelect = `SELECT sc.id, sc.code, sc.booking_id, sc.expires_at, sc.created_at,
       b.id, b.user_id, b.reservation_id, r.creator_id, r.created_at,
       b.room_id, rm.name, b.start_at, b.end_at, b.is_cancelled, b.created_at
FROM share_codes sc
JOIN bookings b ON b.id = sc.booking_id
JOIN rooms rm ON rm.id = b.room_id
LEFT JOIN reservations r ON r.id = b.reservation_id`

func scanShareCode(s rowScanner) (*model.ShareCode, error) {
	var (
		sc      model.ShareCode
		b       model.Booking
		expires sql.NullTime
	)
	if err := scanBookingInto(s, &b, &sc.ID, &sc.Code, &sc.BookingID, &expires, &sc.CreatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time.UTC()
		sc.ExpiresAt = &t
	}
	sc.Booking = &b
	return &sc, nil
}

// Create inserts a share code for sc.BookingID.  A duplicate code yields
// ErrConflict so the caller can retry with a fresh one.
func (r *ShareCodeRepo) Create(ctx context.Context, sc *model.ShareCode) error {
	var expires any
	if sc.ExpiresAt != nil {
		expires = sc.ExpiresAt.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO share_codes (code, booking_id, expires_at) VALUES (?, ?, ?)`,
		sc.Code, sc.BookingID, expires)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sc.ID = uint64(id)
	sc.CreatedAt = time.Now().UTC()
	return nil
}

// GetByCode returns the share code with its booking, or ErrNotFound.
func (r *ShareCodeRepo) GetByCode(ctx context.Context, code string) (*model.ShareCode, error) {
	sc, err := scanShareCode(r.db.QueryRowContext(ctx, shareCodeSelect+" WHERE sc.code = ?", code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sc, err
}

// DeleteIf locks the share code and its booking, asks allow whether the
// caller may delete it and removes the row when permitted.  The decision
// and the delete happen in one transaction, so an ownership change
// committed concurrently is either seen by allow or blocked until after
// the delete.  Returns ErrNotFound or ErrForbidden.
func (r *ShareCodeRepo) DeleteIf(ctx context.Context, code string, allow func(*model.ShareCode) bool) (*model.ShareCode, error) {
	var deleted *model.ShareCode
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		sc, err := scanShareCode(tx.QueryRowContext(ctx, shareCodeSelect+" WHERE sc.code = ? FOR UPDATE", code))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !allow(sc) {
			return ErrForbidden
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM share_codes WHERE id = ?`, sc.ID); err != nil {
			return err
		}
		deleted = sc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ListAll pages through every share code, newest first.
func (r *ShareCodeRepo) ListAll(ctx context.Context, limit, offset int) ([]*model.ShareCode, error) {
	rows, err := r.db.QueryContext(ctx, shareCodeSelect+" ORDER BY sc.id DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.ShareCode, 0)
	for rows.Next() {
		sc, err := scanShareCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ListForBooking returns the codes issued for one booking.
func (r *ShareCodeRepo) ListForBooking(ctx context.Context, bookingID uint64) ([]*model.ShareCode, error) {
	rows, err := r.db.QueryContext(ctx, shareCodeSelect+" WHERE sc.booking_id = ? ORDER BY sc.id", bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.ShareCode, 0)
	for rows.Next() {
		sc, err := scanShareCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
