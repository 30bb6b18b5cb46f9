package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	healthy := gin.New()
	healthy.GET("/health", NewHealthController(map[string]HealthCheck{
		"database": func(ctx context.Context) error { return nil },
	}).Health)
	assert.Equal(t, http.StatusOK, serve(healthy, http.MethodGet, "/health", nil).Code)

	degraded := gin.New()
	degraded.GET("/health", NewHealthController(map[string]HealthCheck{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	}).Health)
	w := serve(degraded, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
