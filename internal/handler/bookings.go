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
	"github.com/iliyamo/gsr-share/internal/repository"
)

// maxBookingLength caps a single booked window.
const maxBookingLength = 4 * time.Hour

// BookingHandler serves booking and reservation endpoints for students
// and staff.  Every endpoint acts on the caller's own bookings only.
type BookingHandler struct {
	Bookings BookingStore
	Codes    ShareCodeStore
	Cache    CachePurger
	Now      func() time.Time
}

type windowReq struct {
	RoomID uint64    `json:"room_id" validate:"required"`
	Start  time.Time `json:"start" validate:"required"`
	End    time.Time `json:"end" validate:"required"`
}

type reservationReq struct {
	Bookings []windowReq `json:"bookings" validate:"required,min=1,max=10,dive"`
}

// BookingView is the JSON shape of a booking returned to its owner.
type BookingView struct {
	ID            uint64    `json:"id"`
	RoomID        uint64    `json:"room_id"`
	RoomName      string    `json:"room_name"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	ReservationID *uint64   `json:"reservation_id,omitempty"`
	OwnerID       uint64    `json:"owner_id"`
	Cancelled     bool      `json:"cancelled"`
	Valid         bool      `json:"valid"`
}

func bookingView(b *model.Booking, now time.Time) BookingView {
	return BookingView{
		ID:            b.ID,
		RoomID:        b.RoomID,
		RoomName:      b.RoomName,
		Start:         b.StartAt,
		End:           b.EndAt,
		ReservationID: b.ReservationID,
		OwnerID:       b.OwnerID(),
		Cancelled:     b.IsCancelled,
		Valid:         b.IsValid(now),
	}
}

// checkWindow returns a client error message for an unusable window.
func checkWindow(w windowReq, now time.Time) string {
	switch {
	case !w.End.After(w.Start):
		return "end must be after start"
	case !w.Start.After(now):
		return "start must be in the future"
	case w.End.Sub(w.Start) > maxBookingLength:
		return "booking longer than " + maxBookingLength.String()
	}
	return ""
}

// CreateBooking books one room window owned directly by the caller.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	var req windowReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	now := nowFunc(h.Now)
	if msg := checkWindow(req, now); msg != "" {
		return errJSON(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b := &model.Booking{UserID: &uid, RoomID: req.RoomID, StartAt: req.Start.UTC(), EndAt: req.End.UTC()}
	if err := h.Bookings.Create(ctx, b); err != nil {
		return bookingWriteError(ctx, c, err)
	}
	return c.JSON(http.StatusCreated, bookingView(b, now))
}

// CreateReservation books several windows at once under a reservation the
// caller creates; either all bookings are stored or none.
func (h *BookingHandler) CreateReservation(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	var req reservationReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	now := nowFunc(h.Now)
	bookings := make([]*model.Booking, 0, len(req.Bookings))
	for _, w := range req.Bookings {
		if msg := checkWindow(w, now); msg != "" {
			return errJSON(c, http.StatusBadRequest, msg)
		}
		bookings = append(bookings, &model.Booking{RoomID: w.RoomID, StartAt: w.Start.UTC(), EndAt: w.End.UTC()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Bookings.CreateReservation(ctx, uid, bookings)
	if err != nil {
		return bookingWriteError(ctx, c, err)
	}
	items := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, bookingView(b, now))
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.ID,
		"creator_id":     res.CreatorID,
		"bookings":       items,
	})
}

func bookingWriteError(ctx context.Context, c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		return errJSON(c, http.StatusNotFound, "room not found")
	case errors.Is(err, repository.ErrConflict):
		return errJSON(c, http.StatusConflict, "room already booked for that window")
	}
	logger.WithContext(ctx).Error("create booking failed", "error", err)
	return errJSON(c, http.StatusInternalServerError, "create booking failed")
}

// ListMine lists every booking the caller effectively owns.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	bookings, err := h.Bookings.ListOwnedBy(ctx, uid)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "database error")
	}
	now := nowFunc(h.Now)
	items := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, bookingView(b, now))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Cancel cancels a booking owned by the caller.  Cached share code
// responses for the booking are purged so the codes stop resolving.
func (h *BookingHandler) Cancel(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	if !actor.Authenticated {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return errJSON(c, http.StatusBadRequest, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.Bookings.CancelIf(ctx, id, func(b *model.Booking) bool {
		owner, ok := access.Owner(b.AccessView())
		return ok && access.IsOwner(actor, owner)
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errJSON(c, http.StatusNotFound, "booking not found")
	case errors.Is(err, repository.ErrForbidden):
		return errJSON(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrConflict):
		return errJSON(c, http.StatusConflict, "booking already cancelled")
	case err != nil:
		logger.WithContext(ctx).Error("cancel booking failed", "error", err, "booking_id", id)
		return errJSON(c, http.StatusInternalServerError, "cancel failed")
	}
	h.purgeCodes(ctx, b.ID)
	return c.JSON(http.StatusOK, bookingView(b, nowFunc(h.Now)))
}

func (h *BookingHandler) purgeCodes(ctx context.Context, bookingID uint64) {
	if h.Cache == nil || h.Codes == nil {
		return
	}
	codes, err := h.Codes.ListForBooking(ctx, bookingID)
	if err != nil {
		logger.WithContext(ctx).Warn("list share codes for purge failed", "error", err, "booking_id", bookingID)
		return
	}
	paths := make([]string, 0, len(codes))
	for _, sc := range codes {
		paths = append(paths, ShareCodePath+sc.Code)
	}
	if err := h.Cache.Purge(ctx, paths...); err != nil {
		logger.WithContext(ctx).Warn("cache purge failed", "error", err, "booking_id", bookingID)
	}
}
