package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithWindow("2024-01-15..2024-02-14").
		WithMeeting("abc==").
		WithPath("/tmp/rec.mp4").
		WithBytes(1024).
		Build()

	require.Len(t, attrs, 4)

	got := make(map[string]interface{})
	for _, attr := range attrs {
		got[string(attr.Key)] = attr.Value.AsInterface()
	}
	assert.Equal(t, "2024-01-15..2024-02-14", got[SpanAttrWindow])
	assert.Equal(t, "abc==", got[SpanAttrMeeting])
	assert.Equal(t, "/tmp/rec.mp4", got[SpanAttrPath])
	assert.Equal(t, int64(1024), got[SpanAttrBytes])
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithWindow("").
		WithMeeting("").
		WithPath("").
		Build()

	assert.Empty(t, attrs)
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestEndSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, okSpan := StartSpan(context.Background(), "zoom.fetch_window")
	EndSpan(okSpan, nil)

	_, errSpan := StartClientSpan(context.Background(), "transfer.download")
	EndSpan(errSpan, errors.New("connection reset"))

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "connection reset", ended[1].Status().Description)
	require.Len(t, ended[1].Events(), 1)
}

func TestAddSpanEvent_Attempt(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartClientSpan(context.Background(), "transfer.download")
	AddSpanEvent(span, "retry", AttemptEvent(2, errors.New("timeout"))...)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	events := ended[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "retry", events[0].Name)
	assert.Len(t, events[0].Attributes, 2)
}

func TestAttemptEvent_NilError(t *testing.T) {
	attrs := AttemptEvent(1, nil)
	require.Len(t, attrs, 1)
	assert.Equal(t, int64(1), attrs[0].Value.AsInt64())
}

func TestGetTraceID(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))

	withRecorder(t)
	ctx, span := StartSpan(context.Background(), "reconcile.verify")
	defer span.End()
	assert.Len(t, GetTraceID(ctx), 32)
}
