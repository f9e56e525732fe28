package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func setupHealth(t *testing.T, deps map[string]Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(deps, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	return r
}

func TestHealth(t *testing.T) {
	called := false
	r := setupHealth(t, map[string]Pinger{
		"database": pingFunc(func(context.Context) error {
			called = true
			return errors.New("down")
		}),
	})

	w := doJSON(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.False(t, called)
}

func TestReady(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })

	t.Run("All Dependencies Up", func(t *testing.T) {
		r := setupHealth(t, map[string]Pinger{"database": ok, "redis": ok})

		w := doJSON(r, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
	})

	t.Run("Nil Dependency Skipped", func(t *testing.T) {
		r := setupHealth(t, map[string]Pinger{"database": ok, "redis": nil})

		w := doJSON(r, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Dependency Down", func(t *testing.T) {
		r := setupHealth(t, map[string]Pinger{
			"database": ok,
			"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		})

		w := doJSON(r, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"unavailable","checks":{"redis":"connection refused"}}`, w.Body.String())
	})
}
