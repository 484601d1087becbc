package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"time"
)

// RunWithRecovery keeps a background goroutine alive across panics. Every
// restart doubles the wait, capped at one minute; cancelling ctx ends the
// loop.
func RunWithRecovery(ctx context.Context, logger *slog.Logger, name string, fn func(ctx context.Context)) {
	backoff := time.Second
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("background goroutine panicked",
						"name", name,
						"panic", r,
						"stack", string(debug.Stack()),
					)
				}
			}()
			fn(ctx)
		}()

		if ctx.Err() != nil {
			logger.Info("background goroutine stopped", "name", name)
			return
		}

		logger.Warn("background goroutine restarting", "name", name, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < time.Minute {
			backoff *= 2
		}
	}
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SetupLogger creates a structured slog.Logger with JSON output to stdout.
// Unknown level names fall back to info.
func SetupLogger(level string) *slog.Logger {
	lvl, ok := logLevels[level]
	if !ok {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// RequestLogger logs method, path, status, and duration for every request.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
