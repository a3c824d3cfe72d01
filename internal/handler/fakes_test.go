package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gsr-share/internal/middleware"
	"github.com/iliyamo/gsr-share/internal/model"
	"github.com/iliyamo/gsr-share/internal/queue"
	"github.com/iliyamo/gsr-share/internal/repository"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func u64(v uint64) *uint64 { return &v }

// request builds an Echo context for h.  uid 0 means anonymous.
func request(method, target, body string, uid uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = middleware.NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != 0 {
		c.Set("user_id", uid)
		c.Set("role", role)
	}
	return c, rec
}

func withParam(c echo.Context, name, value string) echo.Context {
	c.SetParamNames(name)
	c.SetParamValues(value)
	return c
}

type fakeBookings struct {
	mu       sync.Mutex
	byID     map[uint64]*model.Booking
	nextID   uint64
	createFn func(b *model.Booking) error
}

func newFakeBookings(bs ...*model.Booking) *fakeBookings {
	f := &fakeBookings{byID: map[uint64]*model.Booking{}, nextID: 100}
	for _, b := range bs {
		f.byID[b.ID] = b
	}
	return f
}

func (f *fakeBookings) Create(ctx context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFn != nil {
		if err := f.createFn(b); err != nil {
			return err
		}
	}
	f.nextID++
	b.ID = f.nextID
	b.RoomName = "Room"
	f.byID[b.ID] = b
	return nil
}

func (f *fakeBookings) CreateReservation(ctx context.Context, creatorID uint64, bookings []*model.Booking) (*model.Reservation, error) {
	res := &model.Reservation{ID: 7, CreatorID: creatorID}
	for _, b := range bookings {
		b.ReservationID = &res.ID
		b.Reservation = res
		if err := f.Create(ctx, b); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (f *fakeBookings) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (f *fakeBookings) ListOwnedBy(ctx context.Context, userID uint64) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.byID {
		if b.OwnerID() == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) CancelIf(ctx context.Context, id uint64, allow func(*model.Booking) bool) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !allow(b) {
		return nil, repository.ErrForbidden
	}
	if b.IsCancelled {
		return nil, repository.ErrConflict
	}
	b.IsCancelled = true
	return b, nil
}

type fakeCodes struct {
	mu         sync.Mutex
	byCode     map[string]*model.ShareCode
	createErrs []error
}

func newFakeCodes(scs ...*model.ShareCode) *fakeCodes {
	f := &fakeCodes{byCode: map[string]*model.ShareCode{}}
	for _, sc := range scs {
		f.byCode[sc.Code] = sc
	}
	return f
}

func (f *fakeCodes) Create(ctx context.Context, sc *model.ShareCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	sc.ID = uint64(len(f.byCode) + 1)
	f.byCode[sc.Code] = sc
	return nil
}

func (f *fakeCodes) GetByCode(ctx context.Context, code string) (*model.ShareCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.byCode[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return sc, nil
}

func (f *fakeCodes) DeleteIf(ctx context.Context, code string, allow func(*model.ShareCode) bool) (*model.ShareCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.byCode[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !allow(sc) {
		return nil, repository.ErrForbidden
	}
	delete(f.byCode, code)
	return sc, nil
}

func (f *fakeCodes) ListAll(ctx context.Context, limit, offset int) ([]*model.ShareCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.ShareCode, 0, len(f.byCode))
	for _, sc := range f.byCode {
		out = append(out, sc)
	}
	return out, nil
}

func (f *fakeCodes) ListForBooking(ctx context.Context, bookingID uint64) ([]*model.ShareCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ShareCode
	for _, sc := range f.byCode {
		if sc.BookingID == bookingID {
			out = append(out, sc)
		}
	}
	return out, nil
}

type fakeUsers struct {
	byID      map[uint64]model.User
	createErr error
}

func (f *fakeUsers) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	return 42, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type fakeTokens struct {
	stored  map[string]uint64
	revoked []string
}

func (f *fakeTokens) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	if f.stored == nil {
		f.stored = map[string]uint64{}
	}
	f.stored[tokenHash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	id, ok := f.stored[tokenHash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

func (f *fakeTokens) RevokeByHash(ctx context.Context, tokenHash string) error {
	delete(f.stored, tokenHash)
	f.revoked = append(f.revoked, tokenHash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	for h, id := range f.stored {
		if id == userID {
			delete(f.stored, h)
			f.revoked = append(f.revoked, h)
		}
	}
	return nil
}

type fakePublisher struct {
	events []queue.ShareCodeEvent
	err    error
}

func (f *fakePublisher) PublishShareCode(ctx context.Context, ev queue.ShareCodeEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

type fakePurger struct {
	paths []string
}

func (f *fakePurger) Purge(ctx context.Context, paths ...string) error {
	f.paths = append(f.paths, paths...)
	return nil
}
