package server

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

const (
	baseBackoff = time.Second
	maxBackoff  = 5 * time.Minute
)

// RunWithRecovery runs fn until ctx is cancelled, restarting it after a panic
// or an early return. Restarts back off exponentially: 1s, 2s, 4s ... 5m.
func RunWithRecovery(ctx context.Context, logger *slog.Logger, name string, fn func(ctx context.Context)) {
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			logger.Info("goroutine stopped", "name", name, "reason", "context cancelled")
			return
		}

		runOnce(ctx, logger, name, attempt, fn)

		if ctx.Err() != nil {
			return
		}

		backoff := backoffFor(attempt + 1)
		logger.Warn("goroutine restarting",
			"name", name,
			"attempt", attempt+1,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func runOnce(ctx context.Context, logger *slog.Logger, name string, attempt int, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked",
				"name", name,
				"panic", r,
				"stack", string(debug.Stack()),
				"attempt", attempt,
			)
		}
	}()
	fn(ctx)
}

// backoffFor returns the delay before restart number attempt (1-based).
func backoffFor(attempt int) time.Duration {
	d := baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// SetupLogger creates a structured slog.Logger with JSON output to stdout.
func SetupLogger(level string) *slog.Logger {
	return NewLogger(os.Stdout, level)
}

// NewLogger creates a JSON slog.Logger writing to w at the named level
// (debug, info, warn, error; anything else means info).
func NewLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
