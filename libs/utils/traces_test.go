package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetStatusAndEnd(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	_, span := tracer.Start(context.Background(), "ok")
	SetStatusAndEnd(span, nil)
	_, span = tracer.Start(context.Background(), "failed")
	SetStatusAndEnd(span, errors.New("relay gone"))
	_, span = tracer.Start(context.Background(), "canceled")
	SetStatusAndEnd(span, fmt.Errorf("fetching: %w", context.Canceled))

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	require.Equal(t, codes.Ok, spans[0].Status().Code)
	require.Equal(t, codes.Error, spans[1].Status().Code)
	require.Equal(t, "relay gone", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	require.Equal(t, codes.Unset, spans[2].Status().Code)
	require.Empty(t, spans[2].Events())
}

func TestResetContextOnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	require.Equal(t, ctx, ResetContextOnError(ctx))

	cancel()
	require.NoError(t, ResetContextOnError(ctx).Err())
}
