package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/gsr-share/internal/logger"
)

// RequestID assigns every request an id (reusing a client supplied
// X-Request-ID) and stores it in the request context for logging.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), logger.RequestIDKey, id)))
		},
	})
}

// RequestLogger writes one structured line per request.
func RequestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError || v.Error != nil {
				level = slog.LevelError
			}
			attrs := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"elapsed_ms", v.Latency.Milliseconds(),
				"remote_ip", v.RemoteIP,
				"user_agent", v.UserAgent,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error.Error())
			}
			ctx := c.Request().Context()
			logger.WithContext(ctx).Log(ctx, level, "HTTP request completed", attrs...)
			return nil
		},
	})
}

// CORS allows browser clients from origins.  An empty list or "*" allows
// any origin, in which case credentials are not allowed.
func CORS(origins []string) echo.MiddlewareFunc {
	anyOrigin := len(origins) == 0 || slices.Contains(origins, "*")
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Cache", "Retry-After"},
		AllowCredentials: !anyOrigin,
		MaxAge:           300,
	}
	if anyOrigin {
		opts.AllowedOrigins = []string{"*"}
	}
	return echo.WrapMiddleware(cors.Handler(opts))
}
