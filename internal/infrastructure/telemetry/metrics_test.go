package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func disabledMeterProvider(t *testing.T) *telemetry.MeterProvider {
	t.Helper()

	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "orderflow-backend",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return mp
}

// manualMeter returns a meter whose recordings can be read back in-process.
func manualMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	return provider.Meter("orderflow.test"), reader
}

func collectedMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMeterProvider(t *testing.T) {
	t.Run("disabled provider is inert", func(t *testing.T) {
		mp := disabledMeterProvider(t)

		assert.False(t, mp.IsEnabled())
		assert.NotNil(t, mp.Meter("orderflow.test"))
		assert.NoError(t, mp.ForceFlush(context.Background()))
		assert.NoError(t, mp.Shutdown(context.Background()))
	})

	t.Run("config round-trips", func(t *testing.T) {
		mp := disabledMeterProvider(t)

		cfg := mp.GetConfig()
		assert.Equal(t, "orderflow-backend", cfg.ServiceName)
		assert.Equal(t, "localhost:14317", cfg.CollectorEndpoint)
		assert.False(t, cfg.Enabled)
	})

	t.Run("disabled shutdown survives a cancelled context", func(t *testing.T) {
		mp := disabledMeterProvider(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, mp.Shutdown(ctx))
	})
}

func TestCounter(t *testing.T) {
	t.Run("Add and Inc accumulate per attribute set", func(t *testing.T) {
		meter, reader := manualMeter(t)

		counter, err := telemetry.NewCounter(meter, "routing_runs_total", "Routing executions", "{run}")
		require.NoError(t, err)

		ctx := context.Background()
		counter.Add(ctx, 5, telemetry.AttrTenantID.String("tenant-acme"))
		counter.Add(ctx, 2, telemetry.AttrTenantID.String("tenant-acme"))
		counter.Inc(ctx, telemetry.AttrTenantID.String("tenant-beta"))

		m := collectedMetric(t, reader, "routing_runs_total")
		require.NotNil(t, m)

		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 2)

		byTenant := make(map[string]int64, 2)
		for _, dp := range sum.DataPoints {
			v, found := dp.Attributes.Value(telemetry.AttrTenantID)
			require.True(t, found)
			byTenant[v.AsString()] = dp.Value
		}
		assert.Equal(t, int64(7), byTenant["tenant-acme"])
		assert.Equal(t, int64(1), byTenant["tenant-beta"])
	})

	t.Run("works against the disabled provider", func(t *testing.T) {
		mp := disabledMeterProvider(t)

		counter, err := telemetry.NewCounter(mp.Meter("orderflow.test"), "receipts_total", "Receipts posted", "{receipt}")
		require.NoError(t, err)
		counter.Inc(context.Background())
	})
}

func TestHistogram(t *testing.T) {
	t.Run("Record observes values into custom buckets", func(t *testing.T) {
		meter, reader := manualMeter(t)

		hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Description: "Database query duration",
			Unit:        "s",
			Boundaries:  telemetry.DBDurationBuckets,
		})
		require.NoError(t, err)

		ctx := context.Background()
		hist.Record(ctx, 0.002, telemetry.AttrDBOperation.String("SELECT"))
		hist.Record(ctx, 0.04, telemetry.AttrDBOperation.String("SELECT"))

		m := collectedMetric(t, reader, "db_query_duration_seconds")
		require.NotNil(t, m)

		data, ok := m.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, data.DataPoints, 1)

		dp := data.DataPoints[0]
		assert.Equal(t, uint64(2), dp.Count)
		assert.InDelta(t, 0.042, dp.Sum, 1e-9)
		assert.Equal(t, telemetry.DBDurationBuckets, dp.Bounds)
	})

	t.Run("RecordDuration converts to seconds", func(t *testing.T) {
		meter, reader := manualMeter(t)

		hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
			Name:        "receipt_post_duration_seconds",
			Description: "Receipt posting duration",
			Unit:        "s",
		})
		require.NoError(t, err)

		hist.RecordDuration(context.Background(), 250*time.Millisecond)

		m := collectedMetric(t, reader, "receipt_post_duration_seconds")
		require.NotNil(t, m)

		data, ok := m.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, data.DataPoints, 1)
		assert.InDelta(t, 0.25, data.DataPoints[0].Sum, 1e-9)
	})

	t.Run("omitted boundaries fall back to SDK defaults", func(t *testing.T) {
		meter, _ := manualMeter(t)

		hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
			Name:        "plain_histogram",
			Description: "No explicit buckets",
			Unit:        "s",
		})
		require.NoError(t, err)
		hist.Record(context.Background(), 1.5)
	})
}

func TestGauge(t *testing.T) {
	meter, reader := manualMeter(t)

	gauge, err := telemetry.NewGauge(meter, "low_stock_products", "Products under their reorder point", "{product}")
	require.NoError(t, err)

	ctx := context.Background()
	gauge.Record(ctx, 12, telemetry.AttrTenantID.String("tenant-acme"))
	gauge.Record(ctx, 3, telemetry.AttrTenantID.String("tenant-acme"))

	m := collectedMetric(t, reader, "low_stock_products")
	require.NotNil(t, m)

	data, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	// A gauge keeps only the last recorded value.
	assert.Equal(t, int64(3), data.DataPoints[0].Value)
}

func TestSharedAttributeKeys(t *testing.T) {
	assert.Equal(t, "tenant_id", string(telemetry.AttrTenantID))
	assert.Equal(t, "http.method", string(telemetry.AttrHTTPMethod))
	assert.Equal(t, "http.status_code", string(telemetry.AttrHTTPStatusCode))
	assert.Equal(t, "http.route", string(telemetry.AttrHTTPRoute))
	assert.Equal(t, "db.operation", string(telemetry.AttrDBOperation))
	assert.Equal(t, "db.table", string(telemetry.AttrDBTable))
	assert.Equal(t, "db.pool.state", string(telemetry.AttrDBState))
}

func TestDurationBuckets(t *testing.T) {
	// Boundaries must be strictly increasing for the SDK to accept them.
	for name, buckets := range map[string][]float64{
		"http": telemetry.HTTPDurationBuckets,
		"db":   telemetry.DBDurationBuckets,
	} {
		require.NotEmpty(t, buckets, name)
		for i := 1; i < len(buckets); i++ {
			assert.Greater(t, buckets[i], buckets[i-1], name)
		}
	}
}
