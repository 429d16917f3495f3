package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"cnoloyalty/internal/auth"
	"cnoloyalty/internal/logger"
)

// RequestLoggingMiddleware logs one line per request. The query string is
// left out since coupon and ledger routes carry account data in it.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if accountID, ok := c.Get(auth.ContextAccountID); ok {
			args = append(args, "account_id", accountID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("HTTP request", args...)
		case status >= 400:
			logger.Warn("HTTP request", args...)
		default:
			logger.Info("HTTP request", args...)
		}
	}
}
