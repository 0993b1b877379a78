package server

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/swapkit-dev/swapkit/pkg/protocol"
)

// startEventSpan opens a span for one replayed event. The tracer comes
// from the global provider; without one configured this is a no-op.
func startEventSpan(ctx context.Context, tracerName, sessionID string, ev *protocol.Event) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "swapkit."+ev.Type.String(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("swapkit.session_id", sessionID),
			attribute.String("swapkit.event_type", ev.Type.String()),
			attribute.String("swapkit.event_target", ev.Target),
		),
	)
}

// endEventSpan closes the span, recording err if the replay failed.
func endEventSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
