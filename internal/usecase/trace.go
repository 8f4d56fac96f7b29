package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	usecaseTracer   = otel.Tracer("spinboard/internal/usecase")
	usecaseNoopSpan = trace.SpanFromContext(context.Background())
)

// startUsecaseSpan opens a child span only under a valid parent, so
// service helpers never show up as standalone root traces.
func startUsecaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if name == "" {
		return ctx, usecaseNoopSpan
	}
	if parent := trace.SpanFromContext(ctx); !parent.SpanContext().IsValid() {
		return ctx, usecaseNoopSpan
	}
	return usecaseTracer.Start(ctx, name)
}
