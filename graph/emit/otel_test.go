package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestEmitter(t *testing.T) (*OTelEmitter, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		// The test context is already canceled by cleanup time.
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Errorf("provider shutdown failed: %v", err)
		}
	})
	return NewOTelEmitter(provider.Tracer("threadflow-test")), recorder
}

func TestOTelEmitter_SpanAttributes(t *testing.T) {
	emitter, recorder := newTestEmitter(t)

	emitter.Emit(Event{
		ThreadID: "t-01",
		Seq:      3,
		NodeID:   "refund",
		Msg:      "node_completed",
		Meta:     map[string]any{"duration_ms": int64(12)},
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "node_completed" {
		t.Errorf("unexpected span name: %s", span.Name())
	}

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs["threadflow.thread_id"].AsString() != "t-01" {
		t.Errorf("missing thread id attribute: %v", attrs)
	}
	if attrs["threadflow.seq"].AsInt64() != 3 {
		t.Errorf("missing seq attribute: %v", attrs)
	}
	if attrs["threadflow.duration_ms"].AsInt64() != 12 {
		t.Errorf("missing duration attribute: %v", attrs)
	}
}

func TestOTelEmitter_ErrorStatus(t *testing.T) {
	emitter, recorder := newTestEmitter(t)

	emitter.Emit(Event{
		ThreadID: "t-02",
		Seq:      1,
		NodeID:   "issue",
		Msg:      "node_failed",
		Meta:     map[string]any{"error": "handler exploded"},
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status())
	}
}
