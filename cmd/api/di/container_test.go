package di

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-crud-service/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DB: config.DatabaseConfig{
			Driver:        config.DriverSQLite,
			Path:          filepath.Join(t.TempDir(), "users.db"),
			BusyTimeoutMS: 1000,
			MaxOpenConns:  4,
			MaxIdleConns:  2,
		},
		App: config.AppConfig{
			HTTPPort:               "0",
			ShutdownTimeoutSeconds: 1,
			SwaggerEnabled:         true,
		},
		Logger: config.LoggerConfig{Level: "debug", SlowQuerySeconds: 1},
	}
}

func serve(c *Container, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	c.Router.ServeHTTP(w, req)
	return w
}

func TestNewContainer_SQLite(t *testing.T) {
	c, err := NewContainer(context.Background(), testConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Close()) })

	assert.Nil(t, c.RedisClient)
	assert.Nil(t, c.RateLimiter)

	w := serve(c, http.MethodPost, "/users", `{"name":"Usuario Teste","email":"usuario_teste@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(c, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewContainer_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Host: host, Port: port, PoolSize: 2, CacheTTL: 60}
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 100, BurstCapacity: 100}

	c, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NotNil(t, c.RedisClient)
	require.NotNil(t, c.RateLimiter)

	w := serve(c, http.MethodPost, "/users", `{"name":"John","email":"john@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mr.Exists("user:1"))

	w = serve(c, http.MethodGet, "/users/1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	mr.SetError("LOADING server is loading")
	w = serve(c, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Driver = "mysql"

	c, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "config validation failed")
}
