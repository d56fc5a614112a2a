package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the module.
const TracerName = "github.com/phyninja/zoom-recordings-backup"

// ResourceAttrRunID is the resource attribute carrying the run identifier.
const ResourceAttrRunID = "zrb.run_id"

// Span attribute keys for operations.
const (
	// SpanAttrWindow is the inclusive date window being fetched.
	SpanAttrWindow = "zrb.window"

	// SpanAttrMeeting is the meeting UUID.
	SpanAttrMeeting = "zrb.meeting"

	// SpanAttrPath is a local filesystem path.
	SpanAttrPath = "zrb.path"

	// SpanAttrBytes is the number of bytes transferred.
	SpanAttrBytes = "zrb.bytes"

	// SpanAttrAttempt is the 1-based attempt number.
	SpanAttrAttempt = "zrb.attempt"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 5),
	}
}

// WithWindow adds the date window attribute.
func (b *SpanAttributeBuilder) WithWindow(window string) *SpanAttributeBuilder {
	if window != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrWindow, window))
	}
	return b
}

// WithMeeting adds the meeting UUID attribute.
func (b *SpanAttributeBuilder) WithMeeting(uuid string) *SpanAttributeBuilder {
	if uuid != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrMeeting, uuid))
	}
	return b
}

// WithPath adds the local path attribute.
func (b *SpanAttributeBuilder) WithPath(path string) *SpanAttributeBuilder {
	if path != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrPath, path))
	}
	return b
}

// WithBytes adds the transferred byte count attribute.
func (b *SpanAttributeBuilder) WithBytes(n int64) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int64(SpanAttrBytes, n))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartClientSpan starts a client-kind span for an outbound call such as a
// Zoom API request, a download or a Drive upload.
func StartClientSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// EndSpan sets the span status from err and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	span.End()
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AttemptEvent returns the attributes of a retry attempt event.
func AttemptEvent(attempt int, err error) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int(SpanAttrAttempt, attempt)}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	return attrs
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
