package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpans(t *testing.T) {
	require.NoError(t, InitOpenTelemetry("mistalic-test", "0.0.0"))
	require.NoError(t, InitOpenTelemetry("mistalic-test", "0.0.0"))
	t.Cleanup(func() { _ = ShutdownOpenTelemetry(context.Background()) })

	assert.Empty(t, TraceID(context.Background()))

	ctx := WithRequestID(context.Background(), "req-7")
	ctx, span := StartSpan(ctx, "test.operation")
	traceID := TraceID(ctx)
	assert.Len(t, traceID, 32)

	var buf bytes.Buffer
	spanLogger := Logger(ctx, zerolog.New(&buf))
	spanLogger.Info().Msg("inside span")
	assert.Contains(t, buf.String(), `"request_id":"req-7"`)
	assert.Contains(t, buf.String(), `"trace_id":"`+traceID+`"`)

	EndSpan(span, errors.New("boom"))
}

func TestShutdownWithoutInit(t *testing.T) {
	assert.NoError(t, ShutdownOpenTelemetry(context.Background()))
}
