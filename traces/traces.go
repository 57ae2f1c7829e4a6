// Package traces provides utilities for working with OpenTelemetry traces.
package traces

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// RecordError records err on the span in ctx and logs it. It returns err
// unchanged so call sites can use it as a pass-through.
func RecordError(ctx context.Context, err error, options ...trace.EventOption) error {
	if err == nil {
		return nil
	}
	slog.Error("Error occurred", "error", err)
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, options...)
	return err
}
