// Package telemetry bootstraps the OpenTelemetry SDK for the client.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/subsense/subsense/app"
)

// Setup installs the global tracer provider and propagators. Without an
// endpoint spans are still recorded against the SDK provider but never leave
// the process; with one they are batched to an OTLP/gRPC collector. The
// returned shutdown function flushes and tears the pipeline down.
func Setup(ctx context.Context, endpoint, deviceID string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(app.Name),
			semconv.ServiceVersionKey.String(app.Version),
			attribute.String("device.id", deviceID),
			attribute.String("platform", app.Platform),
			attribute.String("library.language.version", runtime.Version()),
			attribute.String("os.name", runtime.GOOS),
			attribute.String("os.arch", runtime.GOARCH),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	var exporter *otlptrace.Exporter
	if endpoint != "" {
		exporter, err = otlptrace.New(
			ctx,
			otlptracegrpc.NewClient(
				otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")),
				otlptracegrpc.WithEndpoint(endpoint),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		slog.Info("OpenTelemetry exporter configured", "endpoint", endpoint)
	} else {
		slog.Debug("No otel endpoint configured, spans stay in-process")
	}

	tracerProvider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tracerProvider)

	return func(ctx context.Context) error {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %w", err)
		}
		if exporter != nil {
			if err := exporter.Shutdown(ctx); err != nil {
				return fmt.Errorf("failed to shutdown exporter: %w", err)
			}
		}
		return nil
	}, nil
}
