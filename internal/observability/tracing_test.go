package observability

import (
	"context"
	"errors"
	"testing"
)

func TestNewTracerNoEndpointIsNoOp(t *testing.T) {
	tracer, shutdown, err := NewTracer(TraceConfig{ServiceName: "ragcore-test"})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := tracer.StartQuery(context.Background(), "react", "sess-1")
	if ctx == nil || span == nil {
		t.Fatal("no-op tracer must still hand out spans")
	}
	span.End()
}

func TestTracerSpanHelpers(t *testing.T) {
	tracer, shutdown, err := NewTracer(TraceConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	_, llmSpan := tracer.StartLLMCall(context.Background(), "anthropic", "claude-sonnet")
	llmSpan.End()

	_, toolSpan := tracer.StartToolCall(context.Background(), "vector_search")
	tracer.RecordError(toolSpan, errors.New("tool failed"))
	tracer.RecordError(toolSpan, nil) // nil must be a no-op
	toolSpan.End()
}
