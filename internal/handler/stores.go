package handler

import (
	"context"
	"time"

	"github.com/iliyamo/gsr-share/internal/model"
)

// The handlers depend on these narrow views of the repositories so tests
// can substitute in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type RoomStore interface {
	ListActive(ctx context.Context, location string) ([]*model.Room, error)
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	CreateReservation(ctx context.Context, creatorID uint64, bookings []*model.Booking) (*model.Reservation, error)
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListOwnedBy(ctx context.Context, userID uint64) ([]*model.Booking, error)
	CancelIf(ctx context.Context, id uint64, allow func(*model.Booking) bool) (*model.Booking, error)
}

type ShareCodeStore interface {
	Create(ctx context.Context, sc *model.ShareCode) error
	GetByCode(ctx context.Context, code string) (*model.ShareCode, error)
	DeleteIf(ctx context.Context, code string, allow func(*model.ShareCode) bool) (*model.ShareCode, error)
	ListAll(ctx context.Context, limit, offset int) ([]*model.ShareCode, error)
	ListForBooking(ctx context.Context, bookingID uint64) ([]*model.ShareCode, error)
}

// CachePurger drops cached GET responses for concrete paths.
type CachePurger interface {
	Purge(ctx context.Context, paths ...string) error
}
