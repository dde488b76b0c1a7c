package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/config"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/handler"
	log2 "github.com/chainguard-dev/cloud9-environment-ssm/internal/log"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/o11y"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/provision"
	slogmulti "github.com/samber/slog-multi"
)

// these will be set by the goreleaser configuration
// to appropriate values for the compiled binary.
var version string = "dev"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err.Error())
	}

	otelLogs, shutdownLogs, err := o11y.SetupLogs(ctx)
	if err != nil {
		log.Printf("failed to set up log export, continuing without it: %v", err)
	}

	ctx, err = setupLog(ctx, cfg, otelLogs)
	if err != nil {
		log.Fatal(err.Error())
	}

	shutdownTracing, err := o11y.SetupTracing(ctx)
	if err != nil {
		clog.ErrorContext(ctx, "failed to set up tracing, continuing without it", "error", err)
	}

	machine := provision.NewMachine(provision.Options{
		IAMWaitAttempts: cfg.IAMWaitAttempts,
		IAMWaitInterval: cfg.IAMWaitInterval,
	})
	h := handler.New(machine,
		handler.WithRegion(cfg.Region),
		handler.WithLogDirectory(cfg.LogDirectory),
	)

	clog.InfoContext(ctx, "starting resource provider", "version", version)
	lambda.StartWithOptions(h.Invoke,
		lambda.WithContext(ctx),
		lambda.WithEnableSIGTERM(func() {
			if err := shutdownTracing(context.Background()); err != nil {
				clog.ErrorContext(ctx, "failed to flush traces", "error", err)
			}
			if err := shutdownLogs(context.Background()); err != nil {
				clog.ErrorContext(ctx, "failed to flush logs", "error", err)
			}
		}),
	)
}

// setupLog sets up the default logging configuration. Records go to stdout,
// which Lambda ships to CloudWatch, and to extra when it is non-nil.
func setupLog(ctx context.Context, cfg *config.Config, extra slog.Handler) (context.Context, error) {
	level, err := cfg.Level()
	if err != nil {
		return ctx, err
	}
	stdout, err := log2.NewHandler(os.Stdout, cfg.LogFormat, level)
	if err != nil {
		return ctx, err
	}

	handlers := []slog.Handler{stdout}
	if extra != nil {
		handlers = append(handlers, extra)
	}
	logger := clog.New(slogmulti.Fanout(handlers...))
	ctx = clog.WithLogger(ctx, logger)
	slog.SetDefault(&logger.Logger)
	return ctx, nil
}
