package httpmiddleware

import (
	"AskBot/backend/go/internal/models"
	"AskBot/backend/go/pkg/logger"
	"AskBot/backend/go/pkg/ratelimiter"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 是请求和响应中携带追踪 ID 的标头。
	RequestIDHeader = "X-Request-ID"
	traceIDKey      = "trace_id"
)

// TraceID 返回当前请求的追踪 ID。
func TraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}

// RequestLogger 为每个请求分配追踪 ID（沿用调用方提供的 X-Request-ID），并在请求结束后记录访问日志。
func RequestLogger(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(RequestIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceIDKey, traceID)
		c.Header(RequestIDHeader, traceID)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		log := logger.New(serviceName, traceID, c.GetString("userID")).WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     status,
			LatencyMs:  time.Since(start).Milliseconds(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("请求处理失败")
		case status >= http.StatusBadRequest:
			log.Warn("请求被拒绝")
		default:
			log.Info("请求完成")
		}
	}
}

// RateLimit 按客户端 IP 限流，超出时返回 429。
func RateLimit(limiter *ratelimiter.Keyed) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
			return
		}
		c.Next()
	}
}
