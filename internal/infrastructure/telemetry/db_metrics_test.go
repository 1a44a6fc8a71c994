package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newManualMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func hasMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

func counterValue(rm metricdata.ResourceMetrics, name string) int64 {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				return 0
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func mockGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics(t *testing.T) {
	provider, _ := newManualMeter(t)

	t.Run("zero config gets defaults", func(t *testing.T) {
		m, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{}, nil)
		require.NoError(t, err)

		assert.Equal(t, 200*time.Millisecond, m.config.SlowQueryThreshold)
		assert.Equal(t, 15*time.Second, m.config.PoolStatsInterval)
	})

	t.Run("explicit config kept", func(t *testing.T) {
		m, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{
			SlowQueryThreshold: time.Second,
			PoolStatsInterval:  time.Minute,
		}, zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, time.Second, m.config.SlowQueryThreshold)
		assert.Equal(t, time.Minute, m.config.PoolStatsInterval)
	})
}

func TestRecordQuery(t *testing.T) {
	ctx := context.Background()

	newMetrics := func(t *testing.T) (*DBMetrics, *sdkmetric.ManualReader) {
		provider, reader := newManualMeter(t)
		m, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 100 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)
		return m, reader
	}

	t.Run("counts queries and latency", func(t *testing.T) {
		m, reader := newMetrics(t)

		m.RecordQuery(ctx, "select", "purchase_orders", 5*time.Millisecond)
		m.RecordQuery(ctx, "INSERT", "stock_ledger", 10*time.Millisecond)

		rm := collectMetrics(t, reader)
		assert.Equal(t, int64(2), counterValue(rm, "db_query_total"))
		assert.True(t, hasMetric(rm, "db_query_duration_seconds"))
	})

	t.Run("fast query does not count as slow", func(t *testing.T) {
		m, reader := newMetrics(t)

		m.RecordQuery(ctx, "SELECT", "warehouses", 5*time.Millisecond)

		rm := collectMetrics(t, reader)
		assert.False(t, hasMetric(rm, "db_slow_query_total"))
	})

	t.Run("slow query bumps slow counter", func(t *testing.T) {
		m, reader := newMetrics(t)

		m.RecordQuery(ctx, "SELECT", "stock_ledger", 250*time.Millisecond)

		rm := collectMetrics(t, reader)
		assert.Equal(t, int64(1), counterValue(rm, "db_slow_query_total"))
	})

	t.Run("empty operation recorded as UNKNOWN", func(t *testing.T) {
		m, reader := newMetrics(t)

		m.RecordQuery(ctx, "", "", time.Millisecond)

		rm := collectMetrics(t, reader)
		assert.Equal(t, int64(1), counterValue(rm, "db_query_total"))
	})
}

func TestPoolStatsCollection(t *testing.T) {
	t.Run("samples pool gauges", func(t *testing.T) {
		provider, reader := newManualMeter(t)
		m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		m.SetSQLDB(mockDB)
		m.samplePool(context.Background())

		rm := collectMetrics(t, reader)
		assert.True(t, hasMetric(rm, "db_pool_connections"))
		assert.True(t, hasMetric(rm, "db_pool_connections_max"))
	})

	t.Run("start without sqlDB is a no-op", func(t *testing.T) {
		provider, _ := newManualMeter(t)
		m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		m.StartPoolStatsCollection(context.Background())
		m.Stop()
	})

	t.Run("stop terminates the collector", func(t *testing.T) {
		provider, _ := newManualMeter(t)
		m, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 10 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		m.SetSQLDB(mockDB)
		m.StartPoolStatsCollection(context.Background())
		time.Sleep(30 * time.Millisecond)

		m.Stop()

		// Second Stop must not panic on the closed channel.
		m.Stop()
	})
}

func TestDBMetricsPlugin(t *testing.T) {
	t.Run("name", func(t *testing.T) {
		plugin := NewDBMetricsPlugin(nil, nil)
		assert.Equal(t, "db_metrics", plugin.Name())
	})

	t.Run("initialize registers callbacks", func(t *testing.T) {
		provider, _ := newManualMeter(t)
		m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		gormDB := mockGormDB(t)
		require.NoError(t, gormDB.Use(NewDBMetricsPlugin(m, zap.NewNop())))
	})

	t.Run("queries feed the counters", func(t *testing.T) {
		provider, reader := newManualMeter(t)
		m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		db := openTracedDB(t)
		require.NoError(t, db.Use(NewDBMetricsPlugin(m, zap.NewNop())))

		require.NoError(t, db.Create(&stockRow{SKU: "SKU-DM-1"}).Error)
		var row stockRow
		require.NoError(t, db.First(&row, "sku = ?", "SKU-DM-1").Error)

		rm := collectMetrics(t, reader)
		assert.GreaterOrEqual(t, counterValue(rm, "db_query_total"), int64(2))
	})
}

func TestSQLVerb(t *testing.T) {
	cases := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM purchase_orders", "SELECT"},
		{"  select id from warehouses", "SELECT"},
		{"INSERT INTO stock_ledger VALUES (1)", "INSERT"},
		{"update routing_rules set priority = 1", "UPDATE"},
		{"DELETE FROM sales_orders WHERE id = 1", "DELETE"},
		{"TRUNCATE stock_ledger", "OTHER"},
		{"", "OTHER"},
	}

	for _, tc := range cases {
		t.Run(tc.want+"_"+tc.sql, func(t *testing.T) {
			assert.Equal(t, tc.want, sqlVerb(tc.sql))
		})
	}
}

func TestRegisterDBMetrics(t *testing.T) {
	logger := zap.NewNop()

	t.Run("disabled returns nil", func(t *testing.T) {
		metrics, err := RegisterDBMetrics(mockGormDB(t), nil, DBMetricsConfig{Enabled: false}, logger)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("nil meter provider returns nil", func(t *testing.T) {
		metrics, err := RegisterDBMetrics(mockGormDB(t), nil, DBMetricsConfig{Enabled: true}, logger)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("enabled registers plugin and instruments", func(t *testing.T) {
		sdkProvider, _ := newManualMeter(t)
		mp := &MeterProvider{
			provider: sdkProvider,
			logger:   logger,
			config:   MetricsConfig{Enabled: true},
		}

		metrics, err := RegisterDBMetrics(mockGormDB(t), mp, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 200 * time.Millisecond,
			PoolStatsInterval:  15 * time.Second,
		}, logger)

		require.NoError(t, err)
		require.NotNil(t, metrics)
		metrics.Stop()
	})
}

func TestRecordQueryConcurrent(t *testing.T) {
	provider, reader := newManualMeter(t)
	m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	const workers = 20
	const perWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.RecordQuery(context.Background(), "SELECT", "stock_ledger", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(workers*perWorker), counterValue(rm, "db_query_total"))
}
