package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "nbassist"

// StartTurnSpan starts a span covering one user turn on a thread.
func StartTurnSpan(ctx context.Context, turnID, threadID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "turn",
		trace.WithAttributes(
			attribute.String("turn.id", turnID),
			attribute.String("thread.id", threadID),
		),
	)
}

// StartRoundSpan starts a span for one requires_action round.
func StartRoundSpan(ctx context.Context, runID string, round, calls int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "round",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("round", round),
			attribute.Int("round.calls", calls),
		),
	)
}

// StartToolCallSpan starts a span for a tool call within a round.
func StartToolCallSpan(ctx context.Context, callID, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toolcall",
		trace.WithAttributes(
			attribute.String("toolcall.id", callID),
			attribute.String("toolcall.tool", tool),
		),
	)
}
