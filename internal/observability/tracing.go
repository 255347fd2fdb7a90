// Package observability provides OpenTelemetry integration for
// distributed tracing.
//
// Traces are exported over OTLP HTTP to a local collector (OTel
// Collector, Datadog Agent, Grafana Alloy, anything that speaks OTLP).
// The collector owns authentication and forwarding, so the app never
// needs vendor credentials. Tracing is opt-in: an empty endpoint
// disables the whole pipeline.
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/taysluxe/tayai/internal/log"
)

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the OTLP HTTP host:port. Empty disables tracing.
	Endpoint string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// ServiceName is the service name shown in the APM backend.
	ServiceName string
}

// DefaultServiceName identifies this service in trace backends.
const DefaultServiceName = "tayai"

// SetupTracing registers an OTLP exporter with Genkit's
// TracerProvider, so model calls and flows are traced alongside our
// own spans.
//
// Returns a shutdown function that flushes pending spans. A failed
// exporter setup disables tracing rather than failing startup.
func SetupTracing(ctx context.Context, cfg Config, logger log.Logger) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop, nil
	}

	service := cfg.ServiceName
	if service == "" {
		service = DefaultServiceName
	}

	// Genkit's TracerProvider reads these at span creation time.
	_ = os.Setenv("OTEL_SERVICE_NAME", service)
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("failed to create OTLP exporter, tracing disabled", "error", err)
		return noop, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", service,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
