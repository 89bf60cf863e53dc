package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/middleware"
)

// SpanName is the name of the span opened around each dispatch.
const SpanName = "hafiza.dispatch"

// Attribute keys set on dispatch spans.
const (
	AttrKind = attribute.Key("hafiza.action.kind")
	AttrID   = attribute.Key("hafiza.action.id")
)

// Tracing returns a middleware that opens one span per dispatch. A nil
// tracer uses the global provider.
func Tracing(tracer trace.Tracer) middleware.Middleware {
	if tracer == nil {
		tracer = otel.Tracer("hafiza")
	}
	return func(api middleware.API) func(middleware.Next) middleware.Next {
		return func(next middleware.Next) middleware.Next {
			return func(ctx context.Context, a action.Action) error {
				ctx, span := tracer.Start(ctx, SpanName,
					trace.WithSpanKind(trace.SpanKindInternal),
					trace.WithAttributes(
						AttrKind.String(a.Kind),
						AttrID.String(a.ID),
					),
				)
				defer span.End()

				if err := next(ctx, a); err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, "dispatch failed")
					return err
				}
				span.SetStatus(codes.Ok, "")
				return nil
			}
		}
	}
}
