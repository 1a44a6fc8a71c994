package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestWithContext(t *testing.T) {
	log := zap.NewNop()
	ctx := WithContext(context.Background(), log)

	assert.Same(t, log, FromContext(ctx))
}

func TestFromContext_Missing(t *testing.T) {
	log := FromContext(context.Background())

	// Must be usable even when nothing was attached.
	require.NotNil(t, log)
	log.Info("no-op")
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")

	require.NotNil(t, FromContext(ctx))
}

func TestWithRequestID(t *testing.T) {
	log, logs := observedLogger()

	ctx, enriched := WithRequestID(context.Background(), log, "req-123")
	enriched.Info("hit")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-123", logs.All()[0].ContextMap()["request_id"])
}

func TestWithTenantID(t *testing.T) {
	log, logs := observedLogger()

	ctx, enriched := WithTenantID(context.Background(), log, "tenant-9")
	enriched.Info("hit")

	assert.Equal(t, "tenant-9", GetTenantID(ctx))
	assert.Equal(t, "tenant-9", logs.All()[0].ContextMap()["tenant_id"])
}

func TestWithUserID(t *testing.T) {
	log, logs := observedLogger()

	ctx, enriched := WithUserID(context.Background(), log, "user-7")
	enriched.Info("hit")

	assert.Equal(t, "user-7", GetUserID(ctx))
	assert.Equal(t, "user-7", logs.All()[0].ContextMap()["user_id"])
}

func TestGetters_Missing(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTenantID(ctx))
	assert.Empty(t, GetUserID(ctx))
}

func TestContextChaining(t *testing.T) {
	log, _ := observedLogger()
	ctx := context.Background()

	ctx, log = WithRequestID(ctx, log, "req-1")
	ctx, log = WithTenantID(ctx, log, "tenant-1")
	ctx, _ = WithUserID(ctx, log, "user-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.NotNil(t, FromContext(ctx))
}

func TestWithRequestID_LastWins(t *testing.T) {
	log, _ := observedLogger()
	ctx := context.Background()

	ctx, log = WithRequestID(ctx, log, "first")
	ctx, _ = WithRequestID(ctx, log, "second")

	assert.Equal(t, "second", GetRequestID(ctx))
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	log := zap.NewNop()

	enriched := WithTraceContext(context.Background(), log)

	assert.Same(t, log, enriched)
}

func TestWithTraceContext_ValidSpan(t *testing.T) {
	log, logs := observedLogger()

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	WithTraceContext(ctx, log).Info("traced")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
}
