package httpt

import (
	"strconv"
	"time"

	"certalert/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	_requestIDHeader = "X-Request-ID"
	_requestIDKey    = "request_id"
)

func (h *Handler) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(_requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(_requestIDKey, id)
		c.Header(_requestIDHeader, id)
		c.Next()
	}
}

func (h *Handler) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HTTPRequests.WithLabelValues(path, c.Request.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(path, c.Request.Method).Observe(latency.Seconds())

		h.log.Info("HTTP request",
			zap.String("request_id", requestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(_requestIDKey)
}
