// Package log holds the provider's slog plumbing: handler construction for
// the Lambda and local entrypoints, per-resource log files, and caller-aware
// helpers on top of the clog context logger.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/chainguard-dev/clog"
)

// NewHandler returns a handler writing to w. "json" suits CloudWatch, "text"
// suits a terminal.
func NewHandler(w io.Writer, format string, level slog.Leveler) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}
	switch format {
	case "json", "":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Info logs step progress at info level, attributed to the calling provider
// code rather than to this package.
func Info(ctx context.Context, msg string, args ...any) {
	log(ctx, clog.FromContext(ctx), slog.LevelInfo, msg, args...)
}

// Debug logs per-invocation detail such as raw AWS identifiers. It is dropped
// unless LOG_LEVEL enables debug.
func Debug(ctx context.Context, msg string, args ...any) {
	log(ctx, clog.FromContext(ctx), slog.LevelDebug, msg, args...)
}

// Warn logs a condition the provider tolerates, such as an instance that is
// not visible yet.
func Warn(ctx context.Context, msg string, args ...any) {
	log(ctx, clog.FromContext(ctx), slog.LevelWarn, msg, args...)
}

// Error logs a failure that ends the current step before it is mapped to a
// CloudFormation error code.
func Error(ctx context.Context, msg string, args ...any) {
	log(ctx, clog.FromContext(ctx), slog.LevelError, msg, args...)
}

// With returns a context whose logger carries args on every record.
func With(ctx context.Context, args ...any) context.Context {
	logger := clog.FromContext(ctx).With(args...)
	return clog.WithLogger(ctx, logger)
}

// log skips its own frame and the exported wrapper so AddSource points at
// the provider code that logged.
func log(ctx context.Context, l *clog.Logger, level slog.Level, msg string, args ...any) {
	if !l.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	pc = pcs[0]

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}
