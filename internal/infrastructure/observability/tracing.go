package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "support-chat"
)

// GetTracer returns the tracer for the support chat service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartTurnSpan starts a span covering one chat turn.
func StartTurnSpan(ctx context.Context, transport, sessionID string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "chat.turn",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("chat.transport", transport),
			attribute.String("chat.session_id", sessionID),
		),
	)
}

// StartGenerationSpan starts a client span around an upstream generation call.
func StartGenerationSpan(ctx context.Context, mode, model string, historyLen int) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "llm.generate."+mode,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.String("llm.mode", mode),
			attribute.Int("llm.history_messages", historyLen),
		),
	)
}

// AddChunkEvent marks the first relayed fragment of a stream.
func AddChunkEvent(span trace.Span, index int) {
	span.AddEvent("llm.chunk", trace.WithAttributes(attribute.Int("llm.chunk_index", index)))
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error, severity string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.severity", severity))
}
