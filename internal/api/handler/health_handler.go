package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/config"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck 依赖探活，返回 nil 表示正常
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler checks 为空时只报告进程存活
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health 健康检查接口
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	app := config.GetApp()
	c.JSON(status, gin.H{
		"status":       state,
		"service":      app.Name,
		"version":      app.Version,
		"timestamp":    time.Now().Format(time.RFC3339),
		"dependencies": deps,
	})
}
