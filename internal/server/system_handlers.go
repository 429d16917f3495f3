package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cnoloyalty/internal/api"
	"cnoloyalty/internal/logger"
)

const healthTimeout = 2 * time.Second

// Check tests one dependency. A nil Check is reported as skipped.
type Check func(ctx context.Context) error

// @Summary      Health check
// @Description  Reports database and Redis reachability
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.HealthResponse
// @Router       /health [get]
func Health(database, redis Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		resp := api.HealthResponse{
			Status:   "ok",
			Database: ping(ctx, "database", database),
			Redis:    ping(ctx, "redis", redis),
		}

		code := http.StatusOK
		if resp.Database == "down" || resp.Redis == "down" {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	}
}

func ping(ctx context.Context, name string, check Check) string {
	if check == nil {
		return ""
	}
	if err := check(ctx); err != nil {
		logger.Warn("Health check failed", "dependency", name, "error", err)
		return "down"
	}
	return "ok"
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
