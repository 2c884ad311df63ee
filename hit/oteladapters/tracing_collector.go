package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

// TracingCollector implements hit.TracingCollector on an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a tracing collector starting spans on the given tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span carrying attrs and returns the context holding it.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, hit.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds attrs, applies status and ends the span. Spans not started by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx hit.SpanContext, status string, attrs map[string]string) {
	otelSpan, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpan.span.SetAttributes(toAttributes(attrs)...)
	otelSpan.SetStatus(status)
	otelSpan.span.End()
}

// OTelSpanContext implements hit.SpanContext by wrapping an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps a status string to an OpenTelemetry status code.
//
//   - "success": Ok
//   - "oversized": Ok, with the hit.oversized attribute set; the hits were built but some exceed the size limit
//   - "error", "failed": Error
//   - "cancelled", "canceled", "timeout": Error with a matching description
//
// Any other status is recorded as a "status" attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case "success", "ok":
		s.span.SetStatus(codes.Ok, "")
	case "oversized":
		s.span.SetStatus(codes.Ok, "")
		s.span.SetAttributes(attribute.Bool("hit.oversized", true))
	case "error", "failed":
		s.span.SetStatus(codes.Error, "operation failed")
	case "cancelled", "canceled":
		s.span.SetStatus(codes.Error, "operation cancelled")
	case "timeout":
		s.span.SetStatus(codes.Error, "operation timed out")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

// AddAttribute adds a string attribute to the span.
func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var (
	_ hit.TracingCollector = (*TracingCollector)(nil)
	_ hit.SpanContext      = (*OTelSpanContext)(nil)
)
