package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gsr-share/internal/repository"
)

// RoomHandler serves the public room catalogue.  Responses are cached by
// the Redis cache middleware.
type RoomHandler struct {
	Rooms RoomStore
}

// PublicRoom is the room shape exposed to unauthenticated clients.
type PublicRoom struct {
	ID       uint64  `json:"id"`
	Location string  `json:"location"`
	Name     string  `json:"name"`
	Capacity *uint32 `json:"capacity,omitempty"`
}

// ListRooms returns active rooms, optionally filtered by ?location=.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	rooms, err := h.Rooms.ListActive(ctx, strings.TrimSpace(c.QueryParam("location")))
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "database error")
	}
	out := make([]PublicRoom, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, PublicRoom{ID: rm.ID, Location: rm.Location, Name: rm.Name, Capacity: rm.Capacity})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetRoom returns one active room.
func (h *RoomHandler) GetRoom(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return errJSON(c, http.StatusBadRequest, "invalid room id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	rm, err := h.Rooms.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !rm.IsActive) {
		return errJSON(c, http.StatusNotFound, "room not found")
	}
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "database error")
	}
	return c.JSON(http.StatusOK, PublicRoom{ID: rm.ID, Location: rm.Location, Name: rm.Name, Capacity: rm.Capacity})
}
