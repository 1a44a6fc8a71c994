package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystemEngine(version string) *gin.Engine {
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewSystemHandler(version).RegisterRoutes(api)
	return engine
}

func TestSystemEndpoints(t *testing.T) {
	engine := newSystemEngine("1.2.3")

	t.Run("health", func(t *testing.T) {
		rec, resp := serveJSON(t, engine, http.MethodGet, "/api/v1/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)

		var health HealthResponse
		decodeData(t, resp, &health)
		assert.Equal(t, "ok", health.Status)
	})

	t.Run("ping", func(t *testing.T) {
		rec, resp := serveJSON(t, engine, http.MethodGet, "/api/v1/system/ping", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var ping PingResponse
		decodeData(t, resp, &ping)
		assert.Equal(t, "pong", ping.Message)
	})

	t.Run("info carries version", func(t *testing.T) {
		rec, resp := serveJSON(t, engine, http.MethodGet, "/api/v1/system/info", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var info SystemInfoResponse
		decodeData(t, resp, &info)
		assert.Equal(t, "1.2.3", info.Version)
		assert.NotEmpty(t, info.GoVersion)
	})
}

func TestSystemHandlerDefaultVersion(t *testing.T) {
	engine := newSystemEngine("")

	rec, resp := serveJSON(t, engine, http.MethodGet, "/api/v1/system/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var info SystemInfoResponse
	decodeData(t, resp, &info)
	assert.Equal(t, "dev", info.Version)
}
