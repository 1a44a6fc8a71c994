package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled returns no-op provider", func(t *testing.T) {
		lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, lp)

		assert.False(t, lp.IsEnabled())
		assert.Nil(t, lp.GetLoggerProvider())
		assert.NoError(t, lp.ForceFlush(ctx))
		assert.NoError(t, lp.Shutdown(ctx))
	})

	t.Run("enabled builds a pipeline", func(t *testing.T) {
		// The OTLP gRPC exporter connects lazily, no collector is
		// needed for construction.
		lp, err := NewLoggerProvider(ctx, LogsConfig{
			Enabled:           true,
			CollectorEndpoint: "localhost:4317",
			ServiceName:       "orderflow-backend",
			Insecure:          true,
		}, zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, lp)

		assert.True(t, lp.IsEnabled())
		assert.NotNil(t, lp.GetLoggerProvider())
		assert.NoError(t, lp.Shutdown(ctx))
	})

	t.Run("config round trips", func(t *testing.T) {
		cfg := LogsConfig{
			Enabled:           false,
			CollectorEndpoint: "collector:4317",
			ServiceName:       "orderflow-backend",
			Insecure:          true,
		}
		lp, err := NewLoggerProvider(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, cfg, lp.GetConfig())
	})

	t.Run("shutdown is safe to repeat", func(t *testing.T) {
		lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, zap.NewNop())
		require.NoError(t, err)

		assert.NoError(t, lp.Shutdown(ctx))
		assert.NoError(t, lp.Shutdown(ctx))
	})
}

// discardExporter satisfies sdklog.Exporter so tests can build a provider
// with a real processor; without one the SDK reports every logger disabled.
type discardExporter struct{}

func (discardExporter) Export(context.Context, []sdklog.Record) error { return nil }
func (discardExporter) Shutdown(context.Context) error                { return nil }
func (discardExporter) ForceFlush(context.Context) error              { return nil }

func liveLoggerProvider(t *testing.T) *LoggerProvider {
	t.Helper()
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewSimpleProcessor(discardExporter{})))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return &LoggerProvider{
		provider: provider,
		logger:   zap.NewNop(),
		config:   LogsConfig{Enabled: true},
	}
}

func TestNewZapOTELCore(t *testing.T) {
	t.Run("nil provider yields no-op core", func(t *testing.T) {
		core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "orderflow-backend"})
		require.NotNil(t, core)
		assert.False(t, core.Enabled(zapcore.InfoLevel))
	})

	t.Run("disabled provider yields no-op core", func(t *testing.T) {
		lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
		require.NoError(t, err)

		core := NewZapOTELCore(ZapBridgeConfig{
			ServiceName:    "orderflow-backend",
			LoggerProvider: lp,
		})
		assert.False(t, core.Enabled(zapcore.ErrorLevel))
	})

	t.Run("enabled provider yields live core", func(t *testing.T) {
		lp := liveLoggerProvider(t)

		core := NewZapOTELCore(ZapBridgeConfig{
			ServiceName:    "orderflow-backend",
			LoggerProvider: lp,
			Level:          zapcore.DebugLevel,
		})
		require.NotNil(t, core)
		assert.True(t, core.Enabled(zapcore.InfoLevel))
	})

	t.Run("level filter wraps non-debug levels", func(t *testing.T) {
		lp := liveLoggerProvider(t)

		core := NewZapOTELCore(ZapBridgeConfig{
			ServiceName:    "orderflow-backend",
			LoggerProvider: lp,
			Level:          zapcore.WarnLevel,
		})

		assert.False(t, core.Enabled(zapcore.InfoLevel))
		assert.True(t, core.Enabled(zapcore.WarnLevel))
		assert.True(t, core.Enabled(zapcore.ErrorLevel))
	})
}

func TestLevelFilterCore(t *testing.T) {
	t.Run("drops entries below the threshold", func(t *testing.T) {
		inner, logs := observer.New(zap.DebugLevel)
		filtered := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}
		log := zap.New(filtered)

		log.Debug("routing rule evaluated")
		log.Info("purchase order created")
		log.Warn("stock below minimum")
		log.Error("receipt posting failed")

		entries := logs.All()
		require.Len(t, entries, 2)
		assert.Equal(t, "stock below minimum", entries[0].Message)
		assert.Equal(t, "receipt posting failed", entries[1].Message)
	})

	t.Run("With preserves the threshold", func(t *testing.T) {
		inner, logs := observer.New(zap.DebugLevel)
		filtered := &levelFilterCore{Core: inner, minLevel: zapcore.ErrorLevel}
		log := zap.New(filtered).With(zap.String("warehouse_id", "wh-1"))

		log.Warn("should be dropped")
		log.Error("should be kept")

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "should be kept", entries[0].Message)
		assert.Equal(t, "wh-1", entries[0].ContextMap()["warehouse_id"])
	})
}

func TestNewBridgedLogger(t *testing.T) {
	t.Run("writes to both cores", func(t *testing.T) {
		baseCore, baseLogs := observer.New(zap.DebugLevel)
		otelCore, otelLogs := observer.New(zap.DebugLevel)

		log := NewBridgedLogger(baseCore, otelCore)
		log.Info("reconciliation complete", zap.Int("lines", 12))

		require.Len(t, baseLogs.All(), 1)
		require.Len(t, otelLogs.All(), 1)
		assert.Equal(t, "reconciliation complete", baseLogs.All()[0].Message)
		assert.EqualValues(t, 12, otelLogs.All()[0].ContextMap()["lines"])
	})

	t.Run("no-op otel core only reaches the base", func(t *testing.T) {
		baseCore, baseLogs := observer.New(zap.DebugLevel)

		log := NewBridgedLogger(baseCore, zapcore.NewNopCore())
		log.Warn("tenant missing")

		require.Len(t, baseLogs.All(), 1)
	})

	t.Run("fields flow through the tee", func(t *testing.T) {
		baseCore, baseLogs := observer.New(zap.DebugLevel)
		otelCore, otelLogs := observer.New(zap.DebugLevel)

		log := NewBridgedLogger(baseCore, otelCore).With(zap.String("tenant_id", "t-9"))
		log.Info("ledger entry posted")

		assert.Equal(t, "t-9", baseLogs.All()[0].ContextMap()["tenant_id"])
		assert.Equal(t, "t-9", otelLogs.All()[0].ContextMap()["tenant_id"])
	})
}
