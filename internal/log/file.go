package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"github.com/gosimple/slug"
	slogmulti "github.com/samber/slog-multi"
)

// SetupFileLogging tees the context logger into
// <logsDirectory>/<slug(resourceID)>/<slug(name)>.log. Failing to create the
// file only disables it; the returned func closes the file.
func SetupFileLogging(ctx context.Context, logsDirectory, resourceID, name string) (context.Context, func()) {
	if logsDirectory == "" {
		return ctx, func() {}
	}

	// Create subdirectory for this resource
	dir := filepath.Join(logsDirectory, slug.Make(resourceID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		clog.WarnContext(ctx, "failed to create log directory", "path", dir, "error", err.Error())
		return ctx, func() {}
	}

	logPath := filepath.Join(dir, fmt.Sprintf("%s.log", slug.Make(name)))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		clog.WarnContext(ctx, "failed to create log file", "path", logPath, "error", err.Error())
		return ctx, func() {}
	}

	fileHandler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})

	// Use slog-multi to tee to both handlers
	handler := clog.FromContext(ctx).Handler()
	handler = slogmulti.Fanout(handler, fileHandler)

	clog.InfoContext(ctx, "logging to file", "path", logPath)
	ctx = clog.WithLogger(ctx, clog.New(handler))

	return ctx, func() {
		if err := logFile.Close(); err != nil {
			clog.WarnContext(ctx, "failed to close log file", "path", logPath, "error", err.Error())
		}
	}
}
