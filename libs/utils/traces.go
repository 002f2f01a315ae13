package utils

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetStatusAndEnd ends the span, marking it failed and recording err when it is not nil.
// A context cancellation is not treated as a failure of the traced operation.
func SetStatusAndEnd(span trace.Span, err error) {
	defer span.End()
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, context.Canceled):
		span.SetStatus(codes.Unset, "canceled")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
