// Package tracing wraps OpenTelemetry spans around storage calls.
package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"authserver/pkg/platform/sentinel"
)

const instrumentationName = "authserver/storage"

// Tracer returns the process-wide tracer for storage spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartStorageSpan starts a client span named "<store>.<operation>".
func StartStorageSpan(ctx context.Context, tracer trace.Tracer, store, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.collection.name", store),
		attribute.String("db.operation.name", operation),
	)
	return tracer.Start(ctx, store+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err on span and ends it. A missing record is an expected
// outcome and does not mark the span as failed.
func EndSpan(span trace.Span, err error) {
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		span.SetAttributes(attribute.Bool("db.record.found", false))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
