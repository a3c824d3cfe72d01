package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gsr-share/internal/access"
	"github.com/iliyamo/gsr-share/internal/logger"
	"github.com/iliyamo/gsr-share/internal/middleware"
	"github.com/iliyamo/gsr-share/internal/model"
	"github.com/iliyamo/gsr-share/internal/queue"
	"github.com/iliyamo/gsr-share/internal/repository"
	"github.com/iliyamo/gsr-share/internal/service"
	"github.com/iliyamo/gsr-share/internal/utils"
)

// publishTimeout bounds the broker round trip made after a share code change.
const publishTimeout = 3 * time.Second

// ShareCodeHandler creates, resolves and deletes share codes.  Every
// decision goes through access.Evaluate; deletes are decided inside the
// store's transaction so the check and the mutation see the same row.
type ShareCodeHandler struct {
	Codes    ShareCodeStore
	Bookings BookingStore
	Users    UserStore
	Events   service.EventPublisher
	Cache    CachePurger
	TTL      time.Duration // optional hard lifetime of new codes
	Now      func() time.Time
}

type createShareCodeReq struct {
	BookingID uint64 `json:"booking_id" validate:"required"`
}

// SharedBooking is what a share code reveals about its booking.
type SharedBooking struct {
	ID       uint64    `json:"id"`
	RoomID   uint64    `json:"room_id"`
	RoomName string    `json:"room_name"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// ShareCodeView is the public JSON shape of a share code.
type ShareCodeView struct {
	Code      string        `json:"code"`
	Path      string        `json:"path"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Booking   SharedBooking `json:"booking"`
}

func shareCodeView(sc *model.ShareCode) ShareCodeView {
	b := sc.Booking
	return ShareCodeView{
		Code:      sc.Code,
		Path:      ShareCodePath + sc.Code,
		ExpiresAt: sc.ExpiresAt,
		Booking: SharedBooking{
			ID:       b.ID,
			RoomID:   b.RoomID,
			RoomName: b.RoomName,
			Start:    b.StartAt,
			End:      b.EndAt,
		},
	}
}

// Create issues a new share code for a booking the caller owns.  The
// booking must still be valid.
func (h *ShareCodeHandler) Create(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	if !access.Evaluate(actor, access.ActionCreate, nil) {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createShareCodeReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, req.BookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return errJSON(c, http.StatusNotFound, "booking not found")
	}
	if err != nil {
		logger.WithContext(ctx).Error("load booking failed", "error", err, "booking_id", req.BookingID)
		return errJSON(c, http.StatusInternalServerError, "database error")
	}
	owner, ok := access.Owner(b.AccessView())
	if !ok || !access.IsOwner(actor, owner) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	now := nowFunc(h.Now)
	if !b.IsValid(now) {
		return errJSON(c, http.StatusConflict, "booking is cancelled or over")
	}

	sc := &model.ShareCode{BookingID: b.ID, Booking: b}
	if h.TTL > 0 {
		exp := now.Add(h.TTL)
		sc.ExpiresAt = &exp
	}
	for attempt := 0; ; attempt++ {
		sc.Code = utils.NewShareCode()
		err = h.Codes.Create(ctx, sc)
		if !errors.Is(err, repository.ErrConflict) || attempt == 2 {
			break
		}
	}
	if err != nil {
		logger.WithContext(ctx).Error("create share code failed", "error", err, "booking_id", b.ID)
		return errJSON(c, http.StatusInternalServerError, "create share code failed")
	}

	h.publish(ctx, queue.ShareCodeCreated, sc, actor, now)
	return c.JSON(http.StatusCreated, shareCodeView(sc))
}

// Retrieve resolves a share code for anyone, authenticated or not.  Codes
// that do not exist and codes whose booking is no longer valid are both
// reported as 404.
func (h *ShareCodeHandler) Retrieve(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	code := c.Param("code")
	if !access.Evaluate(actor, access.ActionRetrieve, nil) || !utils.IsShareCode(code) {
		return errJSON(c, http.StatusNotFound, "share code not found")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	sc, err := h.Codes.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return errJSON(c, http.StatusNotFound, "share code not found")
	}
	if err != nil {
		logger.WithContext(ctx).Error("load share code failed", "error", err)
		return errJSON(c, http.StatusInternalServerError, "database error")
	}
	now := nowFunc(h.Now)
	if !access.Evaluate(actor, access.ActionRead, sc.AccessView(now)) {
		return errJSON(c, http.StatusNotFound, "share code not found")
	}
	c.Set(middleware.CacheTTLKey, remainingValidity(sc, now))
	return c.JSON(http.StatusOK, shareCodeView(sc))
}

// remainingValidity is how long sc stays readable from now.
func remainingValidity(sc *model.ShareCode, now time.Time) time.Duration {
	until := sc.Booking.EndAt
	if sc.ExpiresAt != nil && sc.ExpiresAt.Before(until) {
		until = *sc.ExpiresAt
	}
	return until.Sub(now)
}

// Delete removes a share code.  Only the booking's effective owner may do
// so; staff get no exception.
func (h *ShareCodeHandler) Delete(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	if !access.CanCreateOrDestroy(actor) {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	code := c.Param("code")
	if !utils.IsShareCode(code) {
		return errJSON(c, http.StatusNotFound, "share code not found")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	now := nowFunc(h.Now)
	sc, err := h.Codes.DeleteIf(ctx, code, func(sc *model.ShareCode) bool {
		return access.Evaluate(actor, access.ActionDestroy, sc.AccessView(now))
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errJSON(c, http.StatusNotFound, "share code not found")
	case errors.Is(err, repository.ErrForbidden):
		return errJSON(c, http.StatusForbidden, "forbidden")
	case err != nil:
		logger.WithContext(ctx).Error("delete share code failed", "error", err)
		return errJSON(c, http.StatusInternalServerError, "delete failed")
	}

	if h.Cache != nil {
		if err := h.Cache.Purge(ctx, ShareCodePath+sc.Code); err != nil {
			logger.WithContext(ctx).Warn("cache purge failed", "error", err, "code", sc.Code)
		}
	}
	h.publish(ctx, queue.ShareCodeDeleted, sc, actor, now)
	return c.NoContent(http.StatusNoContent)
}

// AdminShareCode is the staff listing row.
type AdminShareCode struct {
	ShareCodeView
	OwnerID   uint64    `json:"owner_id"`
	Valid     bool      `json:"valid"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAll pages through every share code for staff.  Listing is the only
// extra right staff have.
func (h *ShareCodeHandler) ListAll(c echo.Context) error {
	limit := queryInt(c, "limit", 50, 1, 200)
	offset := queryInt(c, "offset", 0, 0, 1<<30)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	codes, err := h.Codes.ListAll(ctx, limit, offset)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "database error")
	}
	now := nowFunc(h.Now)
	items := make([]AdminShareCode, 0, len(codes))
	for _, sc := range codes {
		items = append(items, AdminShareCode{
			ShareCodeView: shareCodeView(sc),
			OwnerID:       sc.Booking.OwnerID(),
			Valid:         sc.IsValid(now),
			CreatedAt:     sc.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "limit": limit, "offset": offset})
}

// publish emits a share code event.  Failures are logged; the HTTP
// response does not depend on the broker.
func (h *ShareCodeHandler) publish(ctx context.Context, typ string, sc *model.ShareCode, actor access.Actor, now time.Time) {
	if h.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := queue.ShareCodeEvent{
		Type:       typ,
		Code:       sc.Code,
		BookingID:  sc.BookingID,
		OwnerID:    sc.Booking.OwnerID(),
		ActorID:    actor.ID,
		RoomName:   sc.Booking.RoomName,
		Start:      sc.Booking.StartAt,
		End:        sc.Booking.EndAt,
		OccurredAt: now,
	}
	if h.Users != nil && ev.OwnerID != 0 {
		if u, err := h.Users.GetByID(ctx, ev.OwnerID); err == nil {
			ev.OwnerEmail = u.Email
		}
	}
	if err := h.Events.PublishShareCode(ctx, ev); err != nil {
		logger.WithContext(ctx).Warn("publish share code event failed", "error", err, "type", typ, "code", sc.Code)
	}
}
