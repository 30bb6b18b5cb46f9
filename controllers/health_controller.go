package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// HealthController reports liveness and dependency health
type HealthController struct {
	checks map[string]HealthCheck
}

// NewHealthController creates a new HealthController
func NewHealthController(checks map[string]HealthCheck) *HealthController {
	return &HealthController{checks: checks}
}

// Health runs every check with a short timeout.
// GET /health
func (h *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := gin.H{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			utils.LogWarn("Health check %s failed: %v", name, err)
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	if status != http.StatusOK {
		utils.Error(c, status, "Service degraded", results)
		return
	}
	utils.Success(c, "Service healthy", gin.H{"checks": results, "version": utils.APIVersion})
}
