// Package log builds the slog loggers used across azdeck.
package log

import (
	"context"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// NewHandler returns a handler writing human-readable records to w.
func NewHandler(w io.Writer, debug bool) slog.Handler {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: debug,
		Prefix:          "azdeck",
		Level:           level,
	})
}

// New returns a logger writing to w. Debug records are dropped unless debug is set.
func New(w io.Writer, debug bool) *slog.Logger {
	return slog.New(NewHandler(w, debug))
}

type ctxKey struct{}

// IntoContext adds a logger to a context. Use FromContext to
// pull the logger out.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or the default slog logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
