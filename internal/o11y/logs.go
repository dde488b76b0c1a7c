package o11y

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
)

// SetupLogs returns an slog handler exporting records via OTLP/HTTP when
// OTEL_EXPORTER_OTLP_LOGS_ENDPOINT is set. Otherwise the handler is nil. The
// returned shutdown func is always non-nil.
func SetupLogs(ctx context.Context) (slog.Handler, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT") == "" {
		return nil, noop, nil
	}

	exporter, err := otlploghttp.New(ctx)
	if err != nil {
		return nil, noop, err
	}

	res, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		return nil, noop, err
	}

	// Lambda freezes the process between invocations; export synchronously.
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)),
		sdklog.WithResource(res),
	)

	return otelslog.NewHandler(tracerName, otelslog.WithLoggerProvider(provider)), provider.Shutdown, nil
}
