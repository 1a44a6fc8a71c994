package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})

	return mp, reader
}

func collectInto(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func metricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumDatapoints adds up every datapoint of an int64 sum metric.
func sumDatapoints(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func datapointWithAttr(t *testing.T, m *metricdata.Metrics, key, value string) metricdata.DataPoint[int64] {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(attribute.Key(key)); found && v.AsString() == value {
			return dp
		}
	}
	t.Fatalf("no datapoint of %s with %s=%s", m.Name, key, value)
	return metricdata.DataPoint[int64]{}
}

func newMeteredRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/api/v1/warehouses/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	router.POST("/api/v1/routing/execute", func(c *gin.Context) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false})
	})
	return router
}

func TestHTTPMetrics(t *testing.T) {
	t.Run("disabled config serves without instruments", func(t *testing.T) {
		router := newMeteredRouter(HTTPMetrics(HTTPMetricsConfig{Enabled: false}))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/warehouses/7", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("nil meter provider is a passthrough", func(t *testing.T) {
		router := newMeteredRouter(HTTPMetrics(HTTPMetricsConfig{Enabled: true, MeterProvider: nil}))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/warehouses/7", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("enabled meter records requests", func(t *testing.T) {
		sdkProvider, reader := newManualMeter(t)
		router := newMeteredRouter(HTTPMetricsWithMeter(sdkProvider.Meter("http.server"), true))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/warehouses/7", nil))
		require.Equal(t, http.StatusOK, w.Code)

		rm := collectInto(t, reader)
		total := metricByName(rm, "http_server_request_total")
		require.NotNil(t, total)
		assert.Equal(t, int64(1), sumDatapoints(t, total))
	})
}

func TestHTTPMetricsWithMeter(t *testing.T) {
	t.Run("counts requests per route pattern and status", func(t *testing.T) {
		sdkProvider, reader := newManualMeter(t)
		router := newMeteredRouter(HTTPMetricsWithMeter(sdkProvider.Meter("http.server"), true))

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/warehouses/7", nil))
			require.Equal(t, http.StatusOK, w.Code)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/routing/execute", strings.NewReader(`{"order_id":"ord-1"}`)))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		rm := collectInto(t, reader)

		total := metricByName(rm, "http_server_request_total")
		require.NotNil(t, total)
		assert.Equal(t, int64(4), sumDatapoints(t, total))

		byRoute := datapointWithAttr(t, total, "http.route", "/api/v1/warehouses/:id")
		assert.Equal(t, int64(3), byRoute.Value)

		failed := datapointWithAttr(t, total, "http.route", "/api/v1/routing/execute")
		assert.Equal(t, int64(1), failed.Value)
		status, ok := failed.Attributes.Value("http.status_code")
		require.True(t, ok)
		assert.Equal(t, int64(http.StatusUnprocessableEntity), status.AsInt64())
	})

	t.Run("tenant claim becomes a counter attribute", func(t *testing.T) {
		sdkProvider, reader := newManualMeter(t)

		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set(JWTTenantIDKey, "tenant-acme")
			c.Next()
		})
		router.Use(HTTPMetricsWithMeter(sdkProvider.Meter("http.server"), true))
		router.GET("/api/v1/stock", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stock", nil))
		require.Equal(t, http.StatusOK, w.Code)

		rm := collectInto(t, reader)
		total := metricByName(rm, "http_server_request_total")
		require.NotNil(t, total)

		dp := datapointWithAttr(t, total, "tenant_id", "tenant-acme")
		assert.Equal(t, int64(1), dp.Value)
	})

	t.Run("latency histogram observes each request", func(t *testing.T) {
		sdkProvider, reader := newManualMeter(t)
		router := newMeteredRouter(HTTPMetricsWithMeter(sdkProvider.Meter("http.server"), true))

		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/warehouses/7", nil))
		}

		rm := collectInto(t, reader)
		duration := metricByName(rm, "http_server_request_duration_seconds")
		require.NotNil(t, duration)

		hist, ok := duration.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		var count uint64
		for _, dp := range hist.DataPoints {
			count += dp.Count
		}
		assert.Equal(t, uint64(2), count)
	})

	t.Run("request body size is observed when declared", func(t *testing.T) {
		sdkProvider, reader := newManualMeter(t)
		router := newMeteredRouter(HTTPMetricsWithMeter(sdkProvider.Meter("http.server"), true))

		body := `{"order_id":"ord-7","lines":[{"sku":"SKU-1","qty":4}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/routing/execute", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		rm := collectInto(t, reader)
		size := metricByName(rm, "http_server_request_size_bytes")
		require.NotNil(t, size)

		hist, ok := size.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		require.NotEmpty(t, hist.DataPoints)
		assert.Equal(t, float64(len(body)), hist.DataPoints[0].Sum)
	})

	t.Run("unmatched routes collapse into one series", func(t *testing.T) {
		sdkProvider, reader := newManualMeter(t)
		router := newMeteredRouter(HTTPMetricsWithMeter(sdkProvider.Meter("http.server"), true))

		for _, path := range []string{"/no-such-1", "/no-such-2", "/no-such-3"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusNotFound, w.Code)
		}

		rm := collectInto(t, reader)
		total := metricByName(rm, "http_server_request_total")
		require.NotNil(t, total)

		dp := datapointWithAttr(t, total, "http.route", "unknown")
		assert.Equal(t, int64(3), dp.Value)
	})

	t.Run("disabled flag is a passthrough", func(t *testing.T) {
		sdkProvider, reader := newManualMeter(t)
		router := newMeteredRouter(HTTPMetricsWithMeter(sdkProvider.Meter("http.server"), false))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/warehouses/7", nil))
		require.Equal(t, http.StatusOK, w.Code)

		rm := collectInto(t, reader)
		assert.Nil(t, metricByName(rm, "http_server_request_total"))
	})
}

func TestDefaultHTTPMetricsConfig(t *testing.T) {
	cfg := DefaultHTTPMetricsConfig()
	assert.Equal(t, "orderflow-backend", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Nil(t, cfg.MeterProvider)
}
