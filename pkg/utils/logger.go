package utils

import (
	"context"
	"log/slog"
	"os"
)

type logContextKey struct{}

// LogToContext returns a copy of the context with the logger stored in it
func LogToContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, logContextKey{}, log)
}

// LogFromContext returns the logger stored in the context, or the default logger
func LogFromContext(ctx context.Context) *slog.Logger {
	log, ok := ctx.Value(logContextKey{}).(*slog.Logger)
	if !ok || log == nil {
		return slog.Default()
	}
	return log
}

// FatalError logs the error and exits the process with a non-zero status code
func FatalError(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
