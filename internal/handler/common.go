package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gsr-share/internal/middleware"
)

// dbTimeout bounds every database round trip made by a handler.
const dbTimeout = 5 * time.Second

// ShareCodePath is the public prefix under which share codes are served.
const ShareCodePath = "/v1/sharecodes/"

func errJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// bindAndValidate decodes the body into req and runs the Echo validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		var verr *middleware.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verr.Fields})
		}
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	return nil
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// queryInt reads an integer query parameter clamped to [lo, hi].
func queryInt(c echo.Context, name string, def, lo, hi int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return max(lo, min(v, hi))
}

func nowFunc(f func() time.Time) time.Time {
	if f != nil {
		return f().UTC()
	}
	return time.Now().UTC()
}
