// Package logger builds the process-wide structured logger and attaches
// request-scoped fields (request id, user id) taken from a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
)

var defaultLogger = New(os.Stdout, "info", "json")

// New returns a logger writing to w.  Unknown levels fall back to info and
// any format other than "text" produces JSON.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// Init replaces the default logger and also routes the standard library's
// log package through it.
func Init(level, format string) *slog.Logger {
	defaultLogger = New(os.Stdout, level, format)
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

func Default() *slog.Logger {
	return defaultLogger
}

// WithContext returns the default logger enriched with the request id and
// user id found in ctx.
func WithContext(ctx context.Context) *slog.Logger {
	l := defaultLogger
	if ctx == nil {
		return l
	}
	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		l = l.With("request_id", requestID)
	}
	if userID := ctx.Value(UserIDKey); userID != nil {
		l = l.With("user_id", userID)
	}
	return l
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
